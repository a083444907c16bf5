// Package mcp provides a Model Context Protocol server for questlog.
//
// It exposes session-note extraction and the campaign catalog (entities,
// sessions) as MCP tools, and catalog statistics and the session list as MCP
// resources. Served over stdio for desktop MCP clients.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/questlog/internal/extract"
	"github.com/hurttlocker/questlog/internal/ingest"
	"github.com/hurttlocker/questlog/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store     store.Store
	Extractor *extract.Extractor // optional, defaults to NewExtractor()
	Version   string             // version string for MCP server info
	Logger    *slog.Logger       // optional
}

// dbMu serializes all MCP tool calls that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines and
// SQLite supports only one writer at a time.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all questlog tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	ex := cfg.Extractor
	if ex == nil {
		ex = extract.NewExtractor(extract.WithLogger(cfg.Logger))
	}

	s := server.NewMCPServer(
		"Questlog",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	// Register tools
	registerExtractTool(s, ex)
	registerImportTool(s, ex, cfg.Store)
	registerEntitiesTool(s, cfg.Store)
	registerEntityTool(s, cfg.Store)
	registerSessionsTool(s, cfg.Store)

	// Register resources
	registerStatsResource(s, cfg.Store)
	registerSessionsResource(s, cfg.Store)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(cfg ServerConfig) error {
	return server.ServeStdio(NewServer(cfg))
}

// --- Tools ---

func registerExtractTool(s *server.MCPServer, ex *extract.Extractor) {
	tool := mcp.NewTool("questlog_extract",
		mcp.WithDescription("Extract NPCs, locations, items, quests and the session summary from markdown session notes. Nothing is saved."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("markdown",
			mcp.Required(),
			mcp.Description("The session notes as markdown"),
		),
		mcp.WithString("filename",
			mcp.Description("Original filename, used to detect the session number (e.g. 'session_12.md')"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, filename, errResult := parseRequestDocument(req)
		if errResult != nil {
			return errResult, nil
		}
		return jsonResult(ex.Extract(doc, filename))
	})
}

func registerImportTool(s *server.MCPServer, ex *extract.Extractor, st store.Store) {
	tool := mcp.NewTool("questlog_import",
		mcp.WithDescription("Extract entities from markdown session notes and save them to the campaign catalog. Entities already in the catalog keep their attributes and gain the new session."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("markdown",
			mcp.Required(),
			mcp.Description("The session notes as markdown"),
		),
		mcp.WithString("filename",
			mcp.Description("Original filename, used to detect the session number and recorded as the source. Defaults to 'mcp-import'."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, filename, errResult := parseRequestDocument(req)
		if errResult != nil {
			return errResult, nil
		}
		source := filename
		if source == "" {
			source = "mcp-import"
		}

		entities := ex.Extract(doc, filename)

		dbMu.Lock()
		defer dbMu.Unlock()

		res, err := st.SaveExtraction(ctx, source, entities)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("import error: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{
			"result":   res,
			"entities": len(entities),
		})
	})
}

func registerEntitiesTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("questlog_entities",
		mcp.WithDescription("List catalog entities, optionally filtered by kind and session number."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("kind",
			mcp.Description("Entity kind: npc, location, item or quest. Empty = all kinds."),
			mcp.Enum(string(extract.KindNPC), string(extract.KindLocation), string(extract.KindItem), string(extract.KindQuest)),
		),
		mcp.WithNumber("session",
			mcp.Description("Only entities seen in this session number"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entities (default: 500)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		opts := store.ListOpts{}
		if k, err := req.RequireString("kind"); err == nil && k != "" {
			kind, err := extract.ParseKind(k)
			if err != nil || kind == extract.KindSessionSummary {
				return mcp.NewToolResultError(fmt.Sprintf("invalid kind %q", k)), nil
			}
			opts.Kind = kind
		}
		if n, err := req.RequireFloat("session"); err == nil {
			if n < 0 {
				return mcp.NewToolResultError(fmt.Sprintf("invalid session %v", n)), nil
			}
			opts.Session, opts.HasSession = int(n), true
		}
		if n, err := req.RequireFloat("limit"); err == nil && n > 0 {
			opts.Limit = int(n)
		}

		entities, err := st.ListEntities(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing entities: %v", err)), nil
		}
		if entities == nil {
			entities = []extract.Entity{}
		}
		return jsonResult(entities)
	})
}

func registerEntityTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("questlog_entity",
		mcp.WithDescription("Look up one catalog entity by kind and exact title."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Entity kind: npc, location, item or quest"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Exact entity title (e.g. 'Durnan')"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		k, err := req.RequireString("kind")
		if err != nil {
			return mcp.NewToolResultError("kind is required"), nil
		}
		title, err := req.RequireString("title")
		if err != nil || strings.TrimSpace(title) == "" {
			return mcp.NewToolResultError("title is required"), nil
		}
		kind, err := extract.ParseKind(k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid kind %q", k)), nil
		}

		e, err := st.GetEntity(ctx, kind, strings.TrimSpace(title))
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no %s named %q", kind, title)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("getting entity: %v", err)), nil
		}
		return jsonResult(e)
	})
}

func registerSessionsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("questlog_sessions",
		mcp.WithDescription("List stored session summaries, or fetch one by session number."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("session",
			mcp.Description("Session number to fetch. Omit to list all sessions."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		if n, err := req.RequireFloat("session"); err == nil && n >= 0 {
			ss, err := st.GetSession(ctx, int(n))
			if errors.Is(err, store.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("session %d not found", int(n))), nil
			}
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("getting session: %v", err)), nil
			}
			return jsonResult(ss)
		}

		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing sessions: %v", err)), nil
		}
		if sessions == nil {
			sessions = []*extract.SessionSummary{}
		}
		return jsonResult(sessions)
	})
}

// parseRequestDocument reads the markdown and filename arguments shared by
// the extract and import tools.
func parseRequestDocument(req mcp.CallToolRequest) (*ingest.Document, string, *mcp.CallToolResult) {
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return nil, "", mcp.NewToolResultError("markdown is required")
	}
	// Strip null bytes from content
	markdown = strings.ReplaceAll(markdown, "\x00", "")

	filename := ""
	if f, err := req.RequireString("filename"); err == nil {
		filename = sanitizeFilename(f)
	}

	doc, err := ingest.ParseMarkdown([]byte(markdown))
	if err != nil {
		return nil, "", mcp.NewToolResultError(fmt.Sprintf("parsing markdown: %v", err))
	}
	doc.SourceFile = filename
	return doc, filename, nil
}

// sanitizeFilename strips path traversal from a client-supplied name.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return name
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
