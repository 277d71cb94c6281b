// Package chat implements the plain interactive session: a line-based loop
// over stdin with slash commands for document management, used by the CLI's
// --plain mode and the one-shot prompt modes.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/entrepeneur4lyf/docchat/internal/markdown"
	"github.com/entrepeneur4lyf/docchat/internal/session"
	"github.com/entrepeneur4lyf/docchat/internal/upload"
)

// askTimeout bounds a single question round-trip in the REPL.
const askTimeout = 120 * time.Second

// ChatSession represents an interactive chat session over one backend session.
type ChatSession struct {
	session  *session.Client
	renderer *markdown.Renderer
	quiet    bool

	// printed tracks how much of the transcript has been displayed, so each
	// operation only flushes the entries it appended.
	printed int
}

// NewChatSession creates a chat session with markdown rendering for answers.
func NewChatSession(s *session.Client, quiet bool) (*ChatSession, error) {
	return &ChatSession{
		session:  s,
		renderer: markdown.New(markdown.DefaultWidth),
		quiet:    quiet,
	}, nil
}

// StartInteractive starts the interactive loop.
func (cs *ChatSession) StartInteractive() error {
	if !cs.quiet {
		fmt.Println("📄 DocChat Interactive Session")
		fmt.Printf("Session: %s\n", cs.session.ID())
		fmt.Println("Type 'exit', 'quit', or press Ctrl+C to end the session")
		fmt.Println("Type '/help' for available commands")
		fmt.Println()
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		if !cs.quiet {
			fmt.Print("> ")
		}

		if !scanner.Scan() {
			break // EOF or error
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if cs.handleCommand(input) {
				break // Exit command
			}
			continue
		}

		if input == "exit" || input == "quit" {
			if !cs.quiet {
				fmt.Println("Goodbye!")
			}
			break
		}

		if err := cs.ProcessMessage(input); err != nil && cs.quiet {
			fmt.Printf("Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	return nil
}

// ProcessMessage asks one question and prints whatever the session appended
// to the transcript: the answer with its sources, or a system message.
func (cs *ChatSession) ProcessMessage(input string) error {
	// The user's own line is already on screen; skip it when flushing.
	cs.printed = len(cs.session.Transcript())

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	err := cs.session.Ask(ctx, input)
	cs.flushTranscript(true)
	return err
}

// flushTranscript prints transcript entries appended since the last flush.
func (cs *ChatSession) flushTranscript(skipUser bool) {
	transcript := cs.session.Transcript()
	for _, msg := range transcript[cs.printed:] {
		switch msg.Role {
		case session.RoleUser:
			if !skipUser {
				fmt.Printf("You: %s\n", msg.Content)
			}
		case session.RoleAI:
			cs.printAnswer(msg)
		case session.RoleSystem:
			if cs.quiet {
				fmt.Println(msg.Content)
			} else {
				fmt.Printf("ℹ️  %s\n", msg.Content)
			}
		}
	}
	cs.printed = len(transcript)
}

// printAnswer renders an answer as markdown with its source citations.
func (cs *ChatSession) printAnswer(msg session.Message) {
	fmt.Println(strings.TrimSpace(cs.renderer.Render(msg.Content)))

	if len(msg.Sources) > 0 && !cs.quiet {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range msg.Sources {
			snippet := src.Text
			if len(snippet) > 120 {
				snippet = snippet[:120] + "..."
			}
			fmt.Printf("  • %s (%s): %s\n", src.Filename, src.Match(), snippet)
		}
	}
	fmt.Println()
}

// handleCommand processes special chat commands. Returns true to exit.
func (cs *ChatSession) handleCommand(command string) bool {
	fields := strings.Fields(command)
	args := fields[1:]

	switch fields[0] {
	case "/help":
		cs.showHelp()
	case "/docs":
		cs.showDocuments()
	case "/upload":
		cs.uploadFiles(args)
	case "/select":
		cs.updateSelection(args, true)
	case "/deselect":
		cs.updateSelection(args, false)
	case "/clear-docs":
		cs.deleteAll()
	case "/history":
		cs.showHistory()
	case "/exit", "/quit":
		if !cs.quiet {
			fmt.Println("Goodbye!")
		}
		return true
	default:
		if !cs.quiet {
			fmt.Printf("Unknown command: %s\nType '/help' for available commands.\n", fields[0])
		}
	}
	return false
}

// showHelp displays available commands.
func (cs *ChatSession) showHelp() {
	if cs.quiet {
		return
	}

	fmt.Println("Available commands:")
	fmt.Println("  /help             - Show this help message")
	fmt.Println("  /docs             - List uploaded documents")
	fmt.Printf("  /upload <files>   - Upload documents (%s)\n", strings.Join(upload.Extensions(), ", "))
	fmt.Println("  /select <n|all>   - Add a document to the retrieval scope")
	fmt.Println("  /deselect <n|all> - Remove a document from the retrieval scope")
	fmt.Println("  /clear-docs       - Delete all documents in this session")
	fmt.Println("  /history          - Show the conversation transcript")
	fmt.Println("  /exit             - Exit the session")
}

// showDocuments lists the session's documents with selection markers.
func (cs *ChatSession) showDocuments() {
	docs := cs.session.Documents()
	if len(docs) == 0 {
		fmt.Println("No documents uploaded yet. Use /upload <files>.")
		return
	}

	fmt.Printf("Documents (%d):\n", len(docs))
	for i, doc := range docs {
		marker := "[ ]"
		if cs.session.Selected(doc.ID) {
			marker = "[x]"
		}
		status := doc.Status
		if doc.Pending {
			status = "processing"
		} else if doc.TotalChunks > 0 {
			status = fmt.Sprintf("%d chunks", doc.TotalChunks)
		}
		fmt.Printf("  %s %d. %s (%s, %s)\n", marker, i+1, doc.Name, humanSize(doc.Size), status)
	}
}

// uploadFiles uploads the given paths and flushes the resulting entries.
func (cs *ChatSession) uploadFiles(paths []string) {
	if len(paths) == 0 {
		fmt.Println("Usage: /upload <file> [file...]")
		return
	}

	cs.printed = len(cs.session.Transcript())
	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	_ = cs.session.Upload(ctx, paths)
	cs.flushTranscript(false)
}

// updateSelection handles /select and /deselect with an index or "all".
func (cs *ChatSession) updateSelection(args []string, selecting bool) {
	if len(args) == 0 {
		fmt.Println("Usage: /select <number|all>")
		return
	}

	docs := cs.session.Documents()
	if args[0] == "all" {
		if selecting {
			cs.session.SelectAll()
			fmt.Printf("Selected all %d document(s).\n", len(docs))
		} else {
			cs.session.ClearSelection()
			fmt.Println("Selection cleared.")
		}
		return
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(docs) {
		fmt.Printf("No such document: %s (use /docs to list)\n", args[0])
		return
	}

	doc := docs[n-1]
	if selecting {
		cs.session.Select(doc.ID)
		fmt.Printf("Selected %s\n", doc.Name)
	} else {
		cs.session.Deselect(doc.ID)
		fmt.Printf("Deselected %s\n", doc.Name)
	}
}

// deleteAll clears the session's documents after the usual guard.
func (cs *ChatSession) deleteAll() {
	if len(cs.session.Documents()) == 0 {
		fmt.Println("No documents to delete.")
		return
	}

	cs.printed = len(cs.session.Transcript())
	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	_ = cs.session.DeleteAll(ctx)
	cs.flushTranscript(false)
}

// showHistory displays the conversation transcript.
func (cs *ChatSession) showHistory() {
	transcript := cs.session.Transcript()
	if len(transcript) == 0 {
		fmt.Println("No conversation history")
		return
	}

	fmt.Println("Conversation history:")
	for i, msg := range transcript {
		preview := msg.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		fmt.Printf("%d. %s: %s\n", i+1, strings.ToUpper(string(msg.Role)), preview)
	}
}

// humanSize formats a byte count for display.
func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
