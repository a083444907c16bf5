package main

import (
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	questlogmcp "github.com/hurttlocker/questlog/internal/mcp"
)

func runMCP() error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Stdout carries the protocol; diagnostics go to a rotating file.
	logFile := &lumberjack.Logger{
		Filename:   mcpLogPath(cfg.DBPath.Value),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	defer logFile.Close()
	logger := newLogger(logFile)
	logger.Info("mcp server starting", "version", version, "db", cfg.DBPath.Value)

	return questlogmcp.ServeStdio(questlogmcp.ServerConfig{
		Store:     st,
		Extractor: newExtractor(cfg, logger),
		Version:   version,
		Logger:    logger,
	})
}

// mcpLogPath places the server log beside the catalog. In-memory catalogs
// log under the default data directory.
func mcpLogPath(dbPath string) string {
	dir := filepath.Dir(dbPath)
	if dbPath == ":memory:" || dbPath == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".questlog")
	}
	return filepath.Join(dir, "logs", "mcp.log")
}
