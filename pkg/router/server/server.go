// Package server implements the Router Server: the host-facing MCP
// endpoint over stdio, exposing tools/list, tools/call, and the built-in
// search_tools (spec §4.6).
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/r1pc0rd/SemanticRouter/pkg/logger"
	"github.com/r1pc0rd/SemanticRouter/pkg/router"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/catalog"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/index"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/search"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/upstream"
)

// DefaultSubsetSize is N in spec §4.6: "tools/list: returns the default
// subset (§4.2) with N = 20."
const DefaultSubsetSize = 20

// SessionLookup resolves an upstream id to its Session, for dispatching
// tools/call.
type SessionLookup interface {
	Session(upstreamID string) (*upstream.Session, bool)
	AllSessions() []*upstream.Session
}

// Config holds the Router Server's identity and timing parameters.
type Config struct {
	Name             string
	Version          string
	CallDeadline     time.Duration
	ShutdownDeadline time.Duration
}

// Server is the Router Server.
type Server struct {
	cfg      Config
	catalog  *catalog.Catalog
	idx      *index.Index
	search   *search.Service
	sessions SessionLookup

	mcpServer *server.MCPServer
}

// New builds a Server. It registers every catalog entry (other than the
// built-in) as a dispatchable tool so tools/call works regardless of
// whether a given entry appears in the default subset shown by tools/list;
// an AfterListTools hook then trims the advertised list to the built-in
// plus default_subset(19) (spec §4.6), matching the teacher's pattern of
// wiring server.WithHooks(hooks) into server.NewMCPServer.
func New(cfg Config, cat *catalog.Catalog, idx *index.Index, searchSvc *search.Service, sessions SessionLookup) *Server {
	if cfg.CallDeadline <= 0 {
		cfg.CallDeadline = upstream.DefaultCallDeadline
	}
	if cfg.ShutdownDeadline <= 0 {
		cfg.ShutdownDeadline = 10 * time.Second
	}

	s := &Server{cfg: cfg, catalog: cat, idx: idx, search: searchSvc, sessions: sessions}

	hooks := &server.Hooks{}
	hooks.AddAfterListTools(func(_ context.Context, _ any, _ *mcp.ListToolsRequest, result *mcp.ListToolsResult) {
		s.trimToolList(result)
	})

	s.mcpServer = server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithHooks(hooks),
	)

	s.registerTools()
	return s
}

// defaultSubsetNames computes the set of public names tools/list should
// advertise: the built-in plus default_subset(19).
func (s *Server) defaultSubsetNames() map[string]bool {
	names := map[string]bool{catalog.BuiltInSearchToolsName: true}
	for _, n := range s.idx.DefaultSubset(DefaultSubsetSize - 1) {
		names[n] = true
	}
	return names
}

// trimToolList removes any registered tool not in the default subset from a
// tools/list response.
func (s *Server) trimToolList(result *mcp.ListToolsResult) {
	allowed := s.defaultSubsetNames()
	kept := result.Tools[:0]
	for _, t := range result.Tools {
		if allowed[t.Name] {
			kept = append(kept, t)
		}
	}
	result.Tools = kept
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        catalog.BuiltInSearchToolsName,
		Description: "Search the available tools by natural-language query.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query":   map[string]any{"type": "string"},
				"context": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			Required: []string{"query"},
		},
	}, s.handleSearchTools)

	for _, e := range s.catalog.Entries() {
		if e.IsBuiltIn {
			continue
		}
		name := e.PublicName
		s.mcpServer.AddTool(mcp.Tool{
			Name:        name,
			Description: e.Description,
			InputSchema: toToolInputSchema(e.InputSchema),
		}, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.handleToolCall(ctx, name, req)
		})
	}
}

// toToolInputSchema decodes a catalog entry's opaque JSON schema into the
// SDK's ToolInputSchema shape. The schema is carried through structurally,
// never interpreted or validated by the core (spec §4.4, §9).
func toToolInputSchema(raw json.RawMessage) mcp.ToolInputSchema {
	var decoded struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	if decoded.Type == "" {
		decoded.Type = "object"
	}
	if decoded.Properties == nil {
		decoded.Properties = map[string]any{}
	}
	return mcp.ToolInputSchema{Type: decoded.Type, Properties: decoded.Properties, Required: decoded.Required}
}

// handleSearchTools delegates to the Search Service and serializes the
// result list as a single JSON text block (spec §9: "keep the source's
// choice" of a text block containing JSON).
func (s *Server) handleSearchTools(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Query   string   `json:"query"`
		Context []string `json:"context"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	results, wireErr := s.search.Search(ctx, args.Query, args.Context)
	if wireErr != nil {
		if wireErr.Code == router.CodeInvalidParams {
			return mcp.NewToolResultError(wireErr.Error()), nil
		}
		return nil, newRPCError(wireErr)
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// handleToolCall dispatches a tools/call for a non-built-in public name to
// its owning Upstream Session (spec §4.6).
func (s *Server) handleToolCall(ctx context.Context, publicName string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	upstreamID, nativeName, ok := s.catalog.Lookup(publicName)
	if !ok {
		return nil, newRPCError(router.NewMethodNotFound(publicName))
	}

	sess, ok := s.sessions.Session(upstreamID)
	if !ok {
		return nil, newRPCError(router.NewUpstreamClosed(publicName, upstreamID))
	}

	args, _ := req.Params.Arguments.(map[string]any)
	deadline := time.Now().Add(s.cfg.CallDeadline)

	result, wireErr := sess.Call(ctx, nativeName, args, deadline)
	if wireErr != nil {
		wireErr.Name = publicName
		return nil, newRPCError(wireErr)
	}

	content := make([]mcp.Content, len(result.Content))
	for i, c := range result.Content {
		switch c.Type {
		case "image":
			content[i] = mcp.NewImageContent(c.Data, c.MimeType)
		default:
			content[i] = mcp.NewTextContent(c.Text)
		}
	}
	return &mcp.CallToolResult{Content: content, IsError: result.IsError}, nil
}

// Serve begins serving the host transport over stdio and blocks until ctx
// is cancelled or the host closes the connection (spec §4.6: "over stdio,
// the only required host transport").
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcpServer, server.WithStdioContextFunc(func(context.Context) context.Context { return ctx }))
}

// Shutdown stops every session in parallel within ShutdownDeadline (spec
// §4.7: "call stop() on every session in parallel").
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownDeadline)
	defer cancel()

	g, gctx := errgroup.WithContext(shutdownCtx)
	for _, sess := range s.sessions.AllSessions() {
		sess := sess
		g.Go(func() error {
			if err := sess.Stop(gctx); err != nil {
				logger.Warnf("upstream %s: shutdown error: %v", sess.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
