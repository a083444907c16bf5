package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Engine dispatches files to the first importer that can handle them.
type Engine struct {
	importers []Importer
}

// NewEngine creates an Engine with the default importers.
func NewEngine() *Engine {
	return &Engine{
		importers: []Importer{&MarkdownImporter{}},
	}
}

// ImportFile normalizes a single file. Unknown extensions return
// ErrUnsupportedFile.
func (e *Engine) ImportFile(ctx context.Context, path string) (*Document, error) {
	imp := e.importerFor(path)
	if imp == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}
	return imp.Import(ctx, path)
}

// ImportPaths walks files and directories and calls fn for each normalized
// document, in lexical path order. Per-file failures are recorded in the
// result and do not stop the walk; an error from fn does.
func (e *Engine) ImportPaths(ctx context.Context, paths []string, opts ImportOptions, fn func(doc *Document) error) (*ImportResult, error) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	result := &ImportResult{}
	var files []string
	for _, p := range paths {
		found, err := e.collect(p, opts.Recursive)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{File: p, Message: err.Error()})
			continue
		}
		files = append(files, found...)
	}

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.FilesScanned++
		if opts.ProgressFn != nil {
			opts.ProgressFn(i+1, len(files), path)
		}

		info, err := os.Stat(path)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{File: path, Message: err.Error()})
			continue
		}
		if info.Size() > opts.MaxFileSize {
			result.FilesSkipped++
			continue
		}

		doc, err := e.ImportFile(ctx, path)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{File: path, Message: err.Error()})
			continue
		}
		if strings.TrimSpace(doc.Text) == "" {
			result.FilesSkipped++
			continue
		}
		if err := fn(doc); err != nil {
			return result, err
		}
		result.FilesImported++
	}
	return result, nil
}

func (e *Engine) collect(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if e.importerFor(p) != nil {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (e *Engine) importerFor(path string) Importer {
	for _, imp := range e.importers {
		if imp.CanHandle(path) {
			return imp
		}
	}
	return nil
}

// FormatImportResult renders a human-readable import summary.
func FormatImportResult(r *ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Files scanned:  %d\n", r.FilesScanned)
	fmt.Fprintf(&sb, "Files imported: %d\n", r.FilesImported)
	if r.FilesSkipped > 0 {
		fmt.Fprintf(&sb, "Files skipped:  %d\n", r.FilesSkipped)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "Errors:         %d\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "  %s: %s\n", e.File, e.Message)
		}
	}
	return sb.String()
}
