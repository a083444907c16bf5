package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hurttlocker/questlog/internal/extract"
	"github.com/hurttlocker/questlog/internal/ingest"
	"github.com/hurttlocker/questlog/internal/store"
)

func runExtract(args []string, out io.Writer) error {
	var path, filename string
	compact := false
	for i := 0; i < len(args); i++ {
		if v, next, ok := flagValue(args, i, "--filename"); ok {
			filename, i = v, next
			continue
		}
		switch arg := args[i]; {
		case arg == "--compact":
			compact = true
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		case path == "":
			path = arg
		default:
			return fmt.Errorf("extract takes one file, got extra argument %q", arg)
		}
	}
	if path == "" {
		return fmt.Errorf("usage: questlog extract <file> [--filename name] [--compact]")
	}
	if filename == "" {
		filename = path
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	doc, err := ingest.NewEngine().ImportFile(context.Background(), path)
	if err != nil {
		return err
	}

	entities := newExtractor(cfg, newLogger(os.Stderr)).Extract(doc, filename)
	if compact {
		return json.NewEncoder(out).Encode(entities)
	}
	return writeJSON(out, entities)
}

func runImport(args []string, out io.Writer) error {
	var paths []string
	opts := ingest.ImportOptions{}
	dryRun := false

	for _, arg := range args {
		switch {
		case arg == "--recursive" || arg == "-r":
			opts.Recursive = true
		case arg == "--dry-run" || arg == "-n":
			dryRun = true
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			paths = append(paths, arg)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("usage: questlog import <path>... [--recursive] [--dry-run]")
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	ex := newExtractor(cfg, newLogger(os.Stderr))

	var st store.Store
	if dryRun {
		fmt.Fprintln(out, "Dry run mode: nothing will be written")
		fmt.Fprintln(out)
	} else {
		if st, err = openStore(cfg); err != nil {
			return err
		}
		defer st.Close()
	}

	ctx := context.Background()
	opts.ProgressFn = func(current, total int, file string) {
		fmt.Fprintf(out, "  [%d/%d] %s\n", current, total, file)
	}

	result, err := ingest.NewEngine().ImportPaths(ctx, paths, opts, func(doc *ingest.Document) error {
		entities := ex.Extract(doc, doc.SourceFile)
		if dryRun {
			fmt.Fprintf(out, "    %s\n", summarizeEntities(entities))
			return nil
		}
		res, err := st.SaveExtraction(ctx, doc.SourceFile, entities)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "    %d new, %d merged", res.Created, res.Merged)
		if res.SummarySaved {
			fmt.Fprintf(out, ", session %d summary saved", res.SessionNumber)
		}
		fmt.Fprintln(out)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, ingest.FormatImportResult(result))
	return nil
}

func summarizeEntities(entities []extract.Entity) string {
	counts := map[extract.Kind]int{}
	for _, e := range entities {
		counts[e.Header().Kind]++
	}
	parts := []string{}
	if counts[extract.KindSessionSummary] > 0 {
		parts = append(parts, "summary")
	}
	for _, k := range extract.Kinds {
		parts = append(parts, fmt.Sprintf("%d %s", counts[k], k))
	}
	return strings.Join(parts, ", ")
}
