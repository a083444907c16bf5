package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/questlog/internal/extract"
	"github.com/hurttlocker/questlog/internal/store"
)

func registerStatsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"questlog://stats",
		"Catalog Statistics",
		mcp.WithResourceDescription("Campaign catalog statistics: session, entity and import counts, entities per kind, and storage size."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting stats: %w", err)
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerSessionsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"questlog://sessions",
		"Session Index",
		mcp.WithResourceDescription("Session numbers, titles, status and brief synopses for every stored session."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}

		type sessionInfo struct {
			Number int    `json:"session_number"`
			Title  string `json:"title"`
			Status string `json:"status"`
			Brief  string `json:"brief_synopsis"`
		}
		index := make([]sessionInfo, 0, len(sessions))
		for _, ss := range sessions {
			index = append(index, sessionInfo{Number: ss.SessionNumber, Title: ss.Title, Status: ss.Status, Brief: ss.BriefSynopsis})
		}

		payload := map[string]interface{}{
			"sessions": index,
			"count":    len(index),
			"kinds":    extract.Kinds,
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
