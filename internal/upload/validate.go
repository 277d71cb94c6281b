// Package upload validates files against the backend's supported document
// types before anything is sent over the wire. Validation is by extension
// mapped to the declared MIME type; unsupported files are never submitted.
package upload

import (
	"path/filepath"
	"sort"
	"strings"
)

// allowedTypes maps supported extensions to their declared MIME types.
var allowedTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// Allowed reports whether the named file is of a supported document type.
func Allowed(name string) bool {
	_, ok := allowedTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ContentType returns the declared MIME type for a supported file, or ""
// when the file type is not supported.
func ContentType(name string) string {
	return allowedTypes[strings.ToLower(filepath.Ext(name))]
}

// Split partitions paths into supported and unsupported files, preserving
// input order within each group.
func Split(paths []string) (allowed, rejected []string) {
	for _, p := range paths {
		if Allowed(p) {
			allowed = append(allowed, p)
		} else {
			rejected = append(rejected, p)
		}
	}
	return allowed, rejected
}

// Extensions returns the supported extensions in sorted order, for help and
// error messages.
func Extensions() []string {
	exts := make([]string, 0, len(allowedTypes))
	for ext := range allowedTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
