package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/pipeline"
	"github.com/kalambet/skinshop/internal/retrieval"
	"github.com/kalambet/skinshop/internal/session"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// KnowledgeSearcher returns scored snippets from the retrieval index.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]retrieval.ContextChunk, error)
}

// MCPDeps holds dependencies for the MCP server. Knowledge is optional; the
// search_knowledge tool is registered only when it is set.
type MCPDeps struct {
	Search    Searcher
	Catalog   catalog.Source
	Sessions  session.Store
	Knowledge KnowledgeSearcher
	Version   string
}

// NewMCPServer creates an MCP server exposing product search, the catalog
// and session state.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"skinshop",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("skinshop: skincare product search with answers, ranked recommendations and follow-up questions."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_products",
			mcp.WithDescription("Answer a skincare shopping query and return up to 5 ranked products."),
			mcp.WithString("query", mcp.Description("The shopper's question or request"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Session to continue; a new one is created when omitted")),
		),
		mcpSearchProducts(deps),
	)

	s.AddTool(
		mcp.NewTool("list_products",
			mcp.WithDescription("List catalog products in catalog order."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of products (default 20)")),
		),
		mcpListProducts(deps),
	)

	s.AddTool(
		mcp.NewTool("get_session",
			mcp.WithDescription("Show the turn count and learned preferences of a session."),
			mcp.WithString("session_id", mcp.Description("Session ID"), mcp.Required()),
		),
		mcpGetSession(deps),
	)

	if deps.Knowledge != nil {
		s.AddTool(
			mcp.NewTool("search_knowledge",
				mcp.WithDescription("Semantically search product and skincare notes and return scored snippets."),
				mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
				mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 3)")),
			),
			mcpSearchKnowledge(deps),
		)
	}

	s.AddResource(
		mcp.NewResource(
			"catalog://products",
			"Product Catalog",
			mcp.WithResourceDescription("Full product catalog as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(deps),
	)

	return s
}

func mcpSearchProducts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		resp, err := deps.Search.Search(ctx, pipeline.Request{
			Query:     query,
			SessionID: req.GetString("session_id", ""),
		})
		switch {
		case err == nil:
		case errors.Is(err, pipeline.ErrEmptyQuery):
			return mcpError("query is required"), nil
		case errors.Is(err, pipeline.ErrEmptyCatalog):
			return mcpError("No products found in catalog"), nil
		default:
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcpJSON(resp)
	}
}

func mcpListProducts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", defaultListLimit)
		if limit <= 0 {
			limit = defaultListLimit
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}

		products, err := deps.Catalog.Products(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load catalog: %v", err)), nil
		}
		if len(products) > limit {
			products = products[:limit]
		}
		if products == nil {
			products = []catalog.Product{}
		}
		return mcpJSON(products)
	}
}

func mcpGetSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		s, err := deps.Sessions.Get(ctx, id)
		if errors.Is(err, session.ErrNotFound) {
			return mcpError("Session not found"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get session: %v", err)), nil
		}
		return mcpJSON(NewSessionInfo(s))
	}
}

func mcpSearchKnowledge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", retrieval.DefaultLimit)
		if limit <= 0 {
			limit = retrieval.DefaultLimit
		}
		if limit > 50 {
			limit = 50
		}

		chunks, err := deps.Knowledge.Search(ctx, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(chunks) == 0 {
			return mcpText("[]"), nil
		}
		return mcpJSON(chunks)
	}
}

func mcpResourceCatalog(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		products, err := deps.Catalog.Products(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		if products == nil {
			products = []catalog.Product{}
		}

		b, err := json.Marshal(products)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
