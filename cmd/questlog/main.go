package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/hurttlocker/questlog/internal/config"
	"github.com/hurttlocker/questlog/internal/extract"
	"github.com/hurttlocker/questlog/internal/store"
)

const version = "0.1.0"

// Global flags, stripped from os.Args before command dispatch.
var (
	globalDBPath        string
	globalConfigPath    string
	globalContextRadius string
	globalSynopsisMax   string
	globalVerbose       bool
	globalNoColor       bool
)

func main() {
	args := parseGlobalFlags(os.Args[1:])
	if globalNoColor {
		color.NoColor = true
	}
	if len(args) == 0 {
		printUsage(os.Stdout)
		os.Exit(0)
	}

	if err := run(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	switch args[0] {
	case "extract":
		return runExtract(args[1:], out)
	case "import":
		return runImport(args[1:], out)
	case "list":
		return runList(args[1:], out)
	case "show":
		return runShow(args[1:], out)
	case "sessions":
		return runSessions(args[1:], out)
	case "stats":
		return runStats(args[1:], out)
	case "vacuum":
		return runVacuum(args[1:], out)
	case "config":
		return runConfig(out)
	case "mcp":
		return runMCP()
	case "version", "--version", "-v":
		fmt.Fprintf(out, "questlog %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(out)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// parseGlobalFlags extracts the global flags from anywhere in args and
// returns the rest.
func parseGlobalFlags(args []string) []string {
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--db" && i+1 < len(args):
			globalDBPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--db="):
			globalDBPath = strings.TrimPrefix(arg, "--db=")
		case arg == "--config" && i+1 < len(args):
			globalConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			globalConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--context-radius" && i+1 < len(args):
			globalContextRadius = args[i+1]
			i++
		case strings.HasPrefix(arg, "--context-radius="):
			globalContextRadius = strings.TrimPrefix(arg, "--context-radius=")
		case arg == "--synopsis-max" && i+1 < len(args):
			globalSynopsisMax = args[i+1]
			i++
		case strings.HasPrefix(arg, "--synopsis-max="):
			globalSynopsisMax = strings.TrimPrefix(arg, "--synopsis-max=")
		case arg == "--verbose":
			globalVerbose = true
		case arg == "--no-color":
			globalNoColor = true
		default:
			rest = append(rest, arg)
		}
	}
	return rest
}

func resolveConfig() (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath:     globalConfigPath,
		CLIDBPath:      globalDBPath,
		CLIRadius:      globalContextRadius,
		CLISynopsisMax: globalSynopsisMax,
	})
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if globalVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newExtractor(cfg config.ResolvedConfig, logger *slog.Logger) *extract.Extractor {
	return extract.NewExtractor(
		extract.WithConfig(cfg.ExtractConfig()),
		extract.WithLogger(logger),
	)
}

func openStore(cfg config.ResolvedConfig) (store.Store, error) {
	s, err := store.NewStore(store.StoreConfig{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

// flagValue reads "--name value" or "--name=value" at args[i].
func flagValue(args []string, i int, name string) (string, int, bool) {
	arg := args[i]
	if arg == name {
		if i+1 >= len(args) {
			return "", i, false
		}
		return args[i+1], i + 1, true
	}
	if strings.HasPrefix(arg, name+"=") {
		return strings.TrimPrefix(arg, name+"="), i, true
	}
	return "", i, false
}

func runConfig(out io.Writer) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	return writeJSON(out, cfg)
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `questlog %s: structured campaign notes from free-form session write-ups

Usage:
  questlog [global flags] <command> [arguments]

Global Flags:
  --db path             Catalog database (default ~/.questlog/questlog.db)
  --config path         Config file (default ~/.questlog/config.yaml)
  --context-radius n    Characters of context around each mention
  --synopsis-max n      Maximum brief synopsis length
  --verbose             Debug logging to stderr
  --no-color            Plain output

Commands:
  extract <file>      Print the entities found in one session file as JSON
  import <path>...    Extract files or directories into the campaign catalog
  list                List catalog entities
  show <kind> <title> Show one catalog entity
  sessions            List imported session summaries
  stats               Show catalog statistics
  vacuum              Compact the catalog database
  config              Show the resolved configuration and where each value came from
  mcp                 Serve the catalog over MCP (stdio); logs to logs/mcp.log beside the db
  version             Print version

Extract Flags:
  --filename name     Name used for session number detection (default: the path)
  --compact           Single-line JSON

Import Flags:
  -r, --recursive     Recursively import from directories
  -n, --dry-run       Extract and report without writing

List Flags:
  --kind k            npc, location, item or quest
  --session n         Only entities seen in session n
  --limit n           Maximum entities (default 500)
  --json              JSON output

Environment (also read from .env beside the config file):
  QUESTLOG_DB, QUESTLOG_CONTEXT_RADIUS, QUESTLOG_SYNOPSIS_MAX, QUESTLOG_STOP_WORDS
`, version)
}
