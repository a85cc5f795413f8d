package mcpadapter

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
)

const ToolName = "ask_university"

// AskInput is the MCP tool input schema (matches HTTP API field names).
type AskInput struct {
	Query     string `json:"query" jsonschema:"question about courses, students or faculty"`
	SessionID string `json:"session_id,omitempty" jsonschema:"optional client session identifier"`
}

// Asker runs a query through the whole pipeline.
type Asker interface {
	Handle(ctx context.Context, query models.Query) models.FinalResponse
}

// NewAskHandler returns a tool handler backed by asker.
// Pass the returned function to mcp.AddTool.
func NewAskHandler(asker Asker) func(context.Context, *mcp.CallToolRequest, AskInput) (*mcp.CallToolResult, models.FinalResponse, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, models.FinalResponse, error) {
		return Ask(ctx, asker, input)
	}
}

// Ask answers the question. Rejections are results, not tool errors; an
// unavailable pipeline is reported as a tool error so the caller can retry.
func Ask(ctx context.Context, asker Asker, input AskInput) (*mcp.CallToolResult, models.FinalResponse, error) {
	response := asker.Handle(ctx, models.Query{
		Text:      input.Query,
		SessionID: input.SessionID,
	})

	if response.Disposition == models.DispositionUnavailable {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: response.Text}},
		}, response, nil
	}

	return nil, response, nil
}

// NewServer builds an MCP server exposing the ask tool.
func NewServer(asker Asker, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "uni-guard",
			Version: version,
		}, nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Answer a question about university courses, students and faculty. Personal identifiers are never returned.",
	}, NewAskHandler(asker))

	return server
}
