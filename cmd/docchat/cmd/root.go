package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/entrepeneur4lyf/docchat/internal/backend"
	"github.com/entrepeneur4lyf/docchat/internal/chat"
	"github.com/entrepeneur4lyf/docchat/internal/config"
	"github.com/entrepeneur4lyf/docchat/internal/session"
	"github.com/entrepeneur4lyf/docchat/internal/tui"
	"github.com/entrepeneur4lyf/docchat/internal/watcher"
)

var (
	debug      bool
	workingDir string
)

var (
	quiet      bool
	plainMode  bool
	backendURL string
	sessionID  string
	watchDir   string
	uploads    []string
	logFile    *os.File // For cleanup
)

// Session and backend shared by all run modes.
var (
	appSession  *session.Client
	appWatcher  *watcher.Watcher
	watchCancel context.CancelFunc
)

// setupLogging redirects log output to a file unless running in debug mode.
func setupLogging(workingDir string, debug bool) error {
	if debug {
		log.SetLevel(log.DebugLevel)
		return nil
	}

	logDir := filepath.Join(workingDir, ".docchat")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "docchat.log")
	var err error
	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(logFile)
	return nil
}

// cleanupLogging closes the log file if it was opened.
func cleanupLogging() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "docchat [question]",
	Short: "Chat with your documents from the terminal",
	Long: `DocChat is a terminal client for a document question-answering backend.

Usage:
  docchat                          # Start the interactive UI
  docchat --plain                  # Line-based interactive session
  docchat --upload report.pdf "What is the summary?"
  echo "question" | docchat        # Pipe input

Upload PDF, DOCX, TXT, or Markdown files, pick which of them a question
should search, and get answers with source citations. Documents live on
the backend for the lifetime of the session identifier.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     false,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(workingDir, debug); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		cfg, err := config.Load(workingDir, debug)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		baseURL := cfg.BackendURL()
		if backendURL != "" {
			baseURL = strings.TrimRight(backendURL, "/")
		}
		client := backend.New(baseURL, cfg.RequestTimeout())

		opts := []session.Option{
			session.WithTopK(cfg.Query.TopK),
			session.WithPollPolicy(pollPolicy(cfg)),
		}
		if sessionID != "" {
			opts = append(opts, session.WithID(sessionID))
		}
		appSession = session.New(client, opts...)

		log.Info("session started", "id", appSession.ID(), "backend", baseURL)

		// An existing session identifier may already have documents.
		if sessionID != "" {
			if err := appSession.Refresh(cmd.Context()); err == nil {
				appSession.SelectAll()
			}
		}

		dir := watchDir
		if dir == "" {
			dir = cfg.Watch.Directory
		}
		if dir != "" {
			appWatcher, err = watcher.New(dir, appSession)
			if err != nil {
				return err
			}
			var wctx context.Context
			wctx, watchCancel = context.WithCancel(context.Background())
			go func() {
				if err := appWatcher.Run(wctx); err != nil && wctx.Err() == nil {
					log.Error("watcher stopped", "error", err)
				}
			}()
		}

		if len(uploads) > 0 {
			if err := appSession.Upload(cmd.Context(), uploads); err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			appSession.SelectAll()
		}

		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			// Direct prompt mode: docchat "question"
			prompt := strings.Join(args, " ")
			handleDirectPrompt(prompt)
			return
		}

		if hasStdinInput() {
			handlePipedInput()
			return
		}

		if plainMode {
			startInteractiveMode()
			return
		}

		if err := tui.Run(appSession); err != nil {
			fmt.Printf("Error running UI: %v\n", err)
			os.Exit(1)
		}
	},
}

func pollPolicy(cfg *config.Config) session.PollPolicy {
	p := session.DefaultPollPolicy
	if cfg.Reconcile.InitialDelayMs > 0 {
		p.InitialDelay = time.Duration(cfg.Reconcile.InitialDelayMs) * time.Millisecond
	}
	if cfg.Reconcile.Multiplier > 1 {
		p.Multiplier = cfg.Reconcile.Multiplier
	}
	if cfg.Reconcile.MaxAttempts > 0 {
		p.MaxAttempts = cfg.Reconcile.MaxAttempts
	}
	return p
}

func init() {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&workingDir, "wd", wd, "Working directory")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - output only the answer")
	rootCmd.Flags().BoolVar(&plainMode, "plain", false, "Line-based interactive session instead of the full-screen UI")
	rootCmd.Flags().StringVar(&backendURL, "backend", "", "Backend base URL (overrides configured environment)")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session identifier")
	rootCmd.Flags().StringVar(&watchDir, "watch", "", "Auto-upload supported files dropped into this directory")
	rootCmd.Flags().StringSliceVar(&uploads, "upload", nil, "Upload these files before starting")
}

func Execute() {
	defer func() {
		if watchCancel != nil {
			watchCancel()
		}
		if appWatcher != nil {
			appWatcher.Close()
		}
		if appSession != nil {
			appSession.Close()
		}
		cleanupLogging()
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// handleDirectPrompt processes a single question and exits.
func handleDirectPrompt(prompt string) {
	cs, err := chat.NewChatSession(appSession, quiet)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := cs.ProcessMessage(prompt); err != nil {
		os.Exit(1)
	}
}

func hasStdinInput() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	// If stdin is not a character device, it's piped or redirected
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func handlePipedInput() {
	scanner := bufio.NewScanner(os.Stdin)
	var lines []string

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading stdin: %v\n", err)
		return
	}

	if len(lines) == 0 {
		fmt.Println("No input received from stdin")
		return
	}

	handleDirectPrompt(strings.Join(lines, "\n"))
}

func startInteractiveMode() {
	cs, err := chat.NewChatSession(appSession, quiet)
	if err != nil {
		fmt.Printf("Error creating chat session: %v\n", err)
		os.Exit(1)
	}

	if err := cs.StartInteractive(); err != nil {
		fmt.Printf("Error in interactive mode: %v\n", err)
		os.Exit(1)
	}
}

// init sets up signal handling for graceful shutdown
func init() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\nShutting down gracefully...")

		if watchCancel != nil {
			watchCancel()
		}
		if appSession != nil {
			appSession.Close()
		}
		cleanupLogging()

		os.Exit(0)
	}()
}
