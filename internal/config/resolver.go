// Package config resolves questlog settings from the config file, the
// environment and CLI flags, recording where each value came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/questlog/internal/extract"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// Int parses the value as an integer. Empty values return 0.
func (v ResolvedValue) Int() (int, error) {
	if strings.TrimSpace(v.Value) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.Value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q from %s: %w", v.Source, v.Value, v.From, err)
	}
	return n, nil
}

type ResolveOptions struct {
	ConfigPath     string
	EnvFile        string // dotenv fallback for QUESTLOG_* keys; default .env beside the config file
	CLIDBPath      string
	CLIRadius      string
	CLISynopsisMax string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`
	EnvFile    string `json:"env_file,omitempty"`

	DBPath        ResolvedValue `json:"db_path"`
	ContextRadius ResolvedValue `json:"context_radius"`
	SynopsisMin   ResolvedValue `json:"synopsis_min"`
	SynopsisMax   ResolvedValue `json:"synopsis_max"`

	StopWords         []string `json:"stop_words,omitempty"`
	CompletionMarkers []string `json:"completion_markers,omitempty"`
	RoleNouns         []string `json:"role_nouns,omitempty"`
}

type fileConfig struct {
	DBPath  string `yaml:"db_path"`
	Extract struct {
		ContextRadius     int      `yaml:"context_radius"`
		SynopsisMin       int      `yaml:"synopsis_min"`
		SynopsisMax       int      `yaml:"synopsis_max"`
		StopWords         []string `yaml:"stop_words"`
		CompletionMarkers []string `yaml:"completion_markers"`
		RoleNouns         []string `yaml:"role_nouns"`
	} `yaml:"extract"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".questlog", "config.yaml")
}

func DefaultDBPath() string {
	return "~/.questlog/questlog.db"
}

// ResolveConfig layers defaults, the config file, environment variables and
// CLI flags, later layers winning. A missing config file is not an error.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	defaults := extract.DefaultConfig()
	out := ResolvedConfig{
		ConfigPath:    path,
		DBPath:        ResolvedValue{Value: DefaultDBPath(), Source: SourceDefault, From: "built-in default"},
		ContextRadius: ResolvedValue{Value: strconv.Itoa(defaults.ContextRadius), Source: SourceDefault, From: "built-in default"},
		SynopsisMin:   ResolvedValue{Value: strconv.Itoa(defaults.SynopsisMin), Source: SourceDefault, From: "built-in default"},
		SynopsisMax:   ResolvedValue{Value: strconv.Itoa(defaults.SynopsisMax), Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		applyInt(&out.ContextRadius, cfg.Extract.ContextRadius, path)
		applyInt(&out.SynopsisMin, cfg.Extract.SynopsisMin, path)
		applyInt(&out.SynopsisMax, cfg.Extract.SynopsisMax, path)
		out.StopWords = nonEmpty(cfg.Extract.StopWords)
		out.CompletionMarkers = nonEmpty(cfg.Extract.CompletionMarkers)
		out.RoleNouns = nonEmpty(cfg.Extract.RoleNouns)
	}

	envFile := strings.TrimSpace(opts.EnvFile)
	if envFile == "" {
		envFile = filepath.Join(filepath.Dir(path), ".env")
	}
	dotenv, err := loadDotEnv(envFile)
	if err != nil {
		return out, err
	}
	if dotenv != nil {
		out.EnvFile = envFile
	}
	env := envLookup{dotenv: dotenv, file: envFile}

	env.apply(&out.DBPath, "QUESTLOG_DB")
	env.apply(&out.DBPath, "QUESTLOG_DB_PATH")
	env.apply(&out.ContextRadius, "QUESTLOG_CONTEXT_RADIUS")
	env.apply(&out.SynopsisMax, "QUESTLOG_SYNOPSIS_MAX")
	if v, _ := env.get("QUESTLOG_STOP_WORDS"); v != "" {
		out.StopWords = append(out.StopWords, nonEmpty(strings.Split(v, ","))...)
	}

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.ContextRadius, opts.CLIRadius, SourceCLI, "--context-radius")
	apply(&out.SynopsisMax, opts.CLISynopsisMax, SourceCLI, "--synopsis-max")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	for _, v := range []ResolvedValue{out.ContextRadius, out.SynopsisMin, out.SynopsisMax} {
		if _, err := v.Int(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// ExtractConfig converts the resolved values into extractor settings.
// Values that failed to parse were already rejected by ResolveConfig.
func (r ResolvedConfig) ExtractConfig() extract.Config {
	radius, _ := r.ContextRadius.Int()
	minLen, _ := r.SynopsisMin.Int()
	maxLen, _ := r.SynopsisMax.Int()
	return extract.Config{
		ContextRadius:     radius,
		SynopsisMin:       minLen,
		SynopsisMax:       maxLen,
		StopWords:         r.StopWords,
		CompletionMarkers: r.CompletionMarkers,
		RoleNouns:         r.RoleNouns,
	}
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyInt(dst *ResolvedValue, n int, from string) {
	if n <= 0 {
		return
	}
	*dst = ResolvedValue{Value: strconv.Itoa(n), Source: SourceConfig, From: from}
}

// envLookup reads the process environment first, then the dotenv file.
type envLookup struct {
	dotenv map[string]string
	file   string
}

func (l envLookup) get(key string) (value, from string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, key
	}
	if v := strings.TrimSpace(l.dotenv[key]); v != "" {
		return v, l.file + ":" + key
	}
	return "", ""
}

func (l envLookup) apply(dst *ResolvedValue, key string) {
	if v, from := l.get(key); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: from}
	}
}

// loadDotEnv parses a dotenv file without touching the process environment.
// A missing file yields nil.
func loadDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return vars, nil
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
