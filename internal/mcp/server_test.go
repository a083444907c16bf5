package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/questlog/internal/extract"
	"github.com/hurttlocker/questlog/internal/store"
)

const sessionNotes = `# Session 3: Trouble Brewing

## Summary

The party reached Waterdeep at dusk.
Later they met Durnan the barkeep at the Yawning Portal, a tavern.
`

// helper: create an empty in-memory test store
func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewServer(t *testing.T) {
	srv := NewServer(ServerConfig{Store: setupTestStore(t)})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
}

// callTool is a helper that invokes an MCP tool through the JSON-RPC entry point.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]interface{}) *mcplib.CallToolResult {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}))

	// Parse the JSON-RPC response
	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}

	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	callResult := &mcplib.CallToolResult{
		IsError: resp.Result.IsError,
	}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			callResult.Content = append(callResult.Content, mcplib.NewTextContent(c.Text))
		}
	}

	return callResult
}

// readResource reads an MCP resource and returns its text.
func readResource(t *testing.T, srv *server.MCPServer, uri string) string {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "resources/read",
		"params":  map[string]interface{}{"uri": uri},
	}))

	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var resp struct {
		Result struct {
			Contents []struct {
				URI  string `json:"uri"`
				Text string `json:"text"`
			} `json:"contents"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %s", resp.Error.Message)
	}
	if len(resp.Result.Contents) == 0 {
		t.Fatalf("no contents for %s", uri)
	}
	return resp.Result.Contents[0].Text
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func getTextContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content found")
	return ""
}

func decodeEntities(t *testing.T, text string) []extract.Entity {
	t.Helper()
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		t.Fatalf("parsing entity list: %v\n%s", err, text)
	}
	out := make([]extract.Entity, 0, len(raw))
	for _, r := range raw {
		e, err := extract.UnmarshalEntity(r)
		if err != nil {
			t.Fatalf("decoding entity: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func TestExtractTool(t *testing.T) {
	st := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: st})

	result := callTool(t, srv, "questlog_extract", map[string]interface{}{
		"markdown": sessionNotes,
		"filename": "session_summary_5.md",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", getTextContent(t, result))
	}

	entities := decodeEntities(t, getTextContent(t, result))
	if len(entities) == 0 {
		t.Fatal("expected entities")
	}
	summary, ok := entities[0].(*extract.SessionSummary)
	if !ok || summary.SessionNumber != 5 {
		t.Errorf("first entity = %+v, want session 5 summary", entities[0])
	}

	// Read-only: nothing reaches the catalog.
	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Entities != 0 || stats.Sessions != 0 {
		t.Errorf("extract should not write, got %+v", stats)
	}
}

func TestExtractTool_MissingMarkdown(t *testing.T) {
	srv := NewServer(ServerConfig{Store: setupTestStore(t)})

	result := callTool(t, srv, "questlog_extract", map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestImportAndQueryTools(t *testing.T) {
	srv := NewServer(ServerConfig{Store: setupTestStore(t)})

	result := callTool(t, srv, "questlog_import", map[string]interface{}{
		"markdown": sessionNotes,
		"filename": "../campaign/session_3.md",
	})
	if result.IsError {
		t.Fatalf("import failed: %s", getTextContent(t, result))
	}
	var imported struct {
		Result   store.SaveResult `json:"result"`
		Entities int              `json:"entities"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &imported); err != nil {
		t.Fatalf("parsing import result: %v", err)
	}
	if !imported.Result.SummarySaved || imported.Result.SessionNumber != 3 || imported.Result.ImportID == "" {
		t.Errorf("import result = %+v", imported.Result)
	}
	if strings.Contains(imported.Result.SourceFile, "..") || strings.Contains(imported.Result.SourceFile, "/") {
		t.Errorf("source file not sanitized: %q", imported.Result.SourceFile)
	}

	// Entities by kind
	result = callTool(t, srv, "questlog_entities", map[string]interface{}{"kind": "npc"})
	npcs := decodeEntities(t, getTextContent(t, result))
	if len(npcs) != 1 || npcs[0].Header().Title != "Durnan" {
		t.Fatalf("expected Durnan, got %+v", npcs)
	}

	// Entities by session
	result = callTool(t, srv, "questlog_entities", map[string]interface{}{"session": float64(3)})
	if got := decodeEntities(t, getTextContent(t, result)); len(got) < 2 {
		t.Errorf("expected NPCs and locations for session 3, got %d", len(got))
	}
	result = callTool(t, srv, "questlog_entities", map[string]interface{}{"session": float64(4)})
	if got := decodeEntities(t, getTextContent(t, result)); len(got) != 0 {
		t.Errorf("expected nothing for session 4, got %+v", got)
	}
	result = callTool(t, srv, "questlog_entities", map[string]interface{}{"session": float64(0)})
	if got := decodeEntities(t, getTextContent(t, result)); len(got) != 0 {
		t.Errorf("session 0 is a filter, not \"any session\"; got %+v", got)
	}
	result = callTool(t, srv, "questlog_entities", map[string]interface{}{"session": float64(-1)})
	if !result.IsError {
		t.Error("expected error for negative session")
	}

	// Single entity
	result = callTool(t, srv, "questlog_entity", map[string]interface{}{"kind": "location", "title": "Yawning Portal"})
	if result.IsError {
		t.Fatalf("entity lookup failed: %s", getTextContent(t, result))
	}
	loc, err := extract.UnmarshalEntity([]byte(getTextContent(t, result)))
	if err != nil {
		t.Fatalf("decoding entity: %v", err)
	}
	if l, ok := loc.(*extract.Location); !ok || l.Type != extract.LocationTavern {
		t.Errorf("location = %+v", loc)
	}

	// Sessions
	result = callTool(t, srv, "questlog_sessions", map[string]interface{}{})
	var sessions []extract.SessionSummary
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &sessions); err != nil {
		t.Fatalf("parsing sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Title != "Trouble Brewing" {
		t.Errorf("sessions = %+v", sessions)
	}

	result = callTool(t, srv, "questlog_sessions", map[string]interface{}{"session": float64(3)})
	if result.IsError {
		t.Fatalf("session lookup failed: %s", getTextContent(t, result))
	}
}

func TestEntityTool_Errors(t *testing.T) {
	srv := NewServer(ServerConfig{Store: setupTestStore(t)})

	result := callTool(t, srv, "questlog_entity", map[string]interface{}{"kind": "npc", "title": "Nobody"})
	if !result.IsError || !strings.Contains(getTextContent(t, result), "no npc named") {
		t.Errorf("expected not-found error, got %+v", result)
	}

	result = callTool(t, srv, "questlog_entity", map[string]interface{}{"kind": "dragon", "title": "Smaug"})
	if !result.IsError {
		t.Error("expected invalid kind error")
	}

	result = callTool(t, srv, "questlog_sessions", map[string]interface{}{"session": float64(9)})
	if !result.IsError {
		t.Error("expected missing session error")
	}
}

func TestEntitiesTool_EmptyCatalog(t *testing.T) {
	srv := NewServer(ServerConfig{Store: setupTestStore(t)})

	result := callTool(t, srv, "questlog_entities", map[string]interface{}{})
	if text := getTextContent(t, result); strings.TrimSpace(text) != "[]" {
		t.Errorf("expected empty JSON array, got %s", text)
	}
}

func TestStatsResource(t *testing.T) {
	srv := NewServer(ServerConfig{Store: setupTestStore(t)})

	callTool(t, srv, "questlog_import", map[string]interface{}{
		"markdown": sessionNotes,
		"filename": "session_3.md",
	})

	var stats store.CatalogStats
	if err := json.Unmarshal([]byte(readResource(t, srv, "questlog://stats")), &stats); err != nil {
		t.Fatalf("parsing stats: %v", err)
	}
	if stats.Sessions != 1 || stats.Imports != 1 || stats.ByKind["npc"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	var index struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(readResource(t, srv, "questlog://sessions")), &index); err != nil {
		t.Fatalf("parsing sessions resource: %v", err)
	}
	if index.Count != 1 {
		t.Errorf("session index count = %d", index.Count)
	}
}
