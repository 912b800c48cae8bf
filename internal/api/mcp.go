package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/codevoice/internal/session"
	"github.com/kalambet/codevoice/internal/tone"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Sessions *session.Manager
	Version  string
}

// NewMCPServer creates an MCP server with the codevoice tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"codevoice",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("codevoice explains a code selection in response to a spoken or typed question, in a chosen tone."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("explain_code",
			mcp.WithDescription("Explain a piece of code in response to a question, using one of the codevoice tones."),
			mcp.WithString("code", mcp.Description("The selected source code"), mcp.Required()),
			mcp.WithString("phrase", mcp.Description("The question or command about the code"), mcp.Required()),
			mcp.WithString("tone", mcp.Description("Tone name: Casual, Mentor or Professional")),
		),
		mcpExplainCode(deps),
	)

	s.AddTool(
		mcp.NewTool("classify_intent",
			mcp.WithDescription("Classify a phrase into a codevoice intent without calling the completion service."),
			mcp.WithString("phrase", mcp.Description("Phrase to classify"), mcp.Required()),
		),
		mcpClassifyIntent(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"codevoice://tones",
			"Tones",
			mcp.WithResourceDescription("Available explanation tones as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTones,
	)

	s.AddResource(
		mcp.NewResource(
			"codevoice://intents",
			"Intents",
			mcp.WithResourceDescription("Intent catalog used to classify phrases, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceIntents(deps),
	)

	return s
}

func mcpExplainCode(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := req.RequireString("code")
		if err != nil {
			return mcpError("code is required"), nil
		}
		phrase, err := req.RequireString("phrase")
		if err != nil {
			return mcpError("phrase is required"), nil
		}
		toneName := req.GetString("tone", "")

		resp, err := deps.Sessions.Explain(ctx, code, toneName, phrase)
		if err != nil {
			if errors.Is(err, session.ErrEmptySelection) {
				return mcpError("code is empty: select some code first"), nil
			}
			return mcpError(fmt.Sprintf("explain failed: %v", err)), nil
		}

		return mcpText(resp.Text), nil
	}
}

func mcpClassifyIntent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		phrase, err := req.RequireString("phrase")
		if err != nil {
			return mcpError("phrase is required"), nil
		}

		in := deps.Sessions.Explainer().Catalog().Classify(phrase)
		b, err := json.Marshal(intentView{Name: in.Name, Description: in.Description, Keywords: in.Keywords})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal intent: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceTones(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(tone.All())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tones: %w", err)
	}
	return jsonResource(req.Params.URI, b), nil
}

func mcpResourceIntents(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(intentViews(deps.Sessions.Explainer().Catalog()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal intents: %w", err)
		}
		return jsonResource(req.Params.URI, b), nil
	}
}

func jsonResource(uri string, b []byte) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
