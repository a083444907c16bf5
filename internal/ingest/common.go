// Package ingest normalizes session-note files into Documents.
// It parses markdown into plain text, headings, links and images, and
// decodes YAML front matter, so downstream extraction never sees raw syntax.
package ingest

import (
	"context"
	"errors"
)

// ErrUnsupportedFile is returned for file types no importer can handle.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Heading is a single markdown heading.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Link is an inline or autolinked reference.
type Link struct {
	Text  string `json:"text"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Image is an embedded image reference.
type Image struct {
	Alt   string `json:"alt"`
	Src   string `json:"src"`
	Title string `json:"title,omitempty"`
}

// Document is a normalized markdown content record. It is read-only for
// consumers.
type Document struct {
	Raw         string         `json:"raw"`
	HTML        string         `json:"html"`
	Text        string         `json:"text"` // one block per line, headings included
	Frontmatter map[string]any `json:"frontmatter"`
	Headings    []Heading      `json:"headings"`
	Links       []Link         `json:"links"`
	Images      []Image        `json:"images"`
	SourceFile  string         `json:"source_file,omitempty"`
}

// Importer handles a specific file format.
type Importer interface {
	// CanHandle returns true if this importer supports the given file path.
	CanHandle(path string) bool

	// Import reads and normalizes the file.
	Import(ctx context.Context, path string) (*Document, error)
}

// ImportResult summarizes a multi-file import.
type ImportResult struct {
	FilesScanned  int
	FilesImported int
	FilesSkipped  int
	Errors        []ImportError
}

// Add merges another ImportResult into this one.
func (r *ImportResult) Add(other *ImportResult) {
	r.FilesScanned += other.FilesScanned
	r.FilesImported += other.FilesImported
	r.FilesSkipped += other.FilesSkipped
	r.Errors = append(r.Errors, other.Errors...)
}

// ImportError records a non-fatal error during import.
type ImportError struct {
	File    string
	Message string
}

// ImportOptions configures a multi-file import.
type ImportOptions struct {
	Recursive   bool
	MaxFileSize int64 // bytes, default 10MB
	ProgressFn  func(current, total int, file string)
}

// DefaultMaxFileSize is 10MB.
const DefaultMaxFileSize = 10 * 1024 * 1024
