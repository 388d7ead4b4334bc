package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// sdkBackend speaks MCP to an sse or http upstream via the mark3labs/mcp-go
// client, which owns correlation and framing for those wire formats
// internally (spec §4.3: "for http/sse the transport is request/response or
// a long-lived event stream; the correlation table still keys by id").
type sdkBackend struct {
	upstreamID string
	endpoint   string
	transport  router.Transport

	client         *client.Client
	disconnectedCh chan struct{}
	disconnectOnce sync.Once
}

func newSDKBackend(upstreamID, endpoint string, tr router.Transport) *sdkBackend {
	return &sdkBackend{
		upstreamID:     upstreamID,
		endpoint:       endpoint,
		transport:      tr,
		disconnectedCh: make(chan struct{}),
	}
}

func (b *sdkBackend) Disconnected() <-chan struct{} {
	return b.disconnectedCh
}

func (b *sdkBackend) signalDisconnect() {
	b.disconnectOnce.Do(func() { close(b.disconnectedCh) })
}

// FailPending is a no-op: sdkBackend keeps no correlation table of its own.
// Each in-flight Call blocks inside the mcp-go client's own CallTool, which
// returns an error to that call directly once the broken transport
// surfaces it, without needing an external nudge.
func (b *sdkBackend) FailPending() {}

func (b *sdkBackend) Start(ctx context.Context) ([]router.NativeTool, error) {
	var c *client.Client
	var err error

	switch b.transport {
	case router.TransportHTTP:
		c, err = client.NewStreamableHttpClient(b.endpoint)
	case router.TransportSSE:
		c, err = client.NewSSEMCPClient(b.endpoint)
	default:
		return nil, fmt.Errorf("%w: unsupported sdk transport %q", router.ErrUpstreamUnreachable, b.transport)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", router.ErrUpstreamUnreachable, err)
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", router.ErrUpstreamUnreachable, err)
	}
	b.client = c

	if _, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "semantic-router",
				Version: "0.1.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", router.ErrHandshakeFailed, err)
	}

	listResult, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", router.ErrListToolsFailed, err)
	}

	tools := make([]router.NativeTool, len(listResult.Tools))
	for i, t := range listResult.Tools {
		schema, _ := json.Marshal(t.InputSchema)
		tools[i] = router.NativeTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
			UpstreamID:  b.upstreamID,
		}
	}
	return tools, nil
}

func (b *sdkBackend) Call(ctx context.Context, nativeName string, arguments map[string]any, deadline time.Time) (*router.ToolCallResult, *router.WireError) {
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	result, err := b.client.CallTool(callCtx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      nativeName,
			Arguments: arguments,
		},
	})
	if err != nil {
		if callCtx.Err() != nil {
			return nil, router.NewUpstreamTimeout(nativeName, b.upstreamID)
		}
		b.signalDisconnect()
		return nil, router.NewUpstreamError(nativeName, b.upstreamID, int(router.CodeUpstreamError), err.Error(), nil)
	}

	content := make([]router.ContentItem, len(result.Content))
	for i, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			content[i] = router.ContentItem{Type: "text", Text: tc.Text}
			continue
		}
		if ic, ok := mcp.AsImageContent(c); ok {
			content[i] = router.ContentItem{Type: "image", Data: ic.Data, MimeType: ic.MIMEType}
			continue
		}
		content[i] = router.ContentItem{Type: "text"}
	}

	return &router.ToolCallResult{Content: content, IsError: result.IsError}, nil
}

func (b *sdkBackend) Stop(_ context.Context) error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}
