package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/r1pc0rd/SemanticRouter/pkg/logger"
	"github.com/r1pc0rd/SemanticRouter/pkg/router"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/transport"
)

// rpcRequest and rpcResponse are the newline-delimited JSON envelopes used
// for stdio upstreams (spec §4.3: "Framing. For stdio: newline-delimited
// JSON objects").
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// stdioBackend speaks MCP over a child-process stdio transport, maintaining
// a local request-id correlation table (spec §4.3: "Each outbound request
// gets a monotonically increasing integer id local to the session. The
// session maintains a table id -> pending completion").
type stdioBackend struct {
	upstreamID string
	command    string
	args       []string

	tr      *transport.Stdio
	nextID  atomic.Int64
	mu      sync.Mutex // guards pending
	pending map[int64]chan rpcResponse

	disconnectedCh chan struct{}
	disconnectOnce sync.Once
}

func newStdioBackend(upstreamID, command string, args []string) *stdioBackend {
	return &stdioBackend{
		upstreamID:     upstreamID,
		command:        command,
		args:           args,
		pending:        map[int64]chan rpcResponse{},
		disconnectedCh: make(chan struct{}),
	}
}

func (b *stdioBackend) Disconnected() <-chan struct{} {
	return b.disconnectedCh
}

func (b *stdioBackend) signalDisconnect() {
	b.disconnectOnce.Do(func() { close(b.disconnectedCh) })
}

// FailPending drains the correlation table, failing every in-flight
// roundTrip with a closed channel (spec §4.3: degrade fails in-flight calls
// with UpstreamClosed; see roundTrip's !ok branch and call()'s translation
// of it).
func (b *stdioBackend) FailPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
}

func (b *stdioBackend) Start(ctx context.Context) (_ []router.NativeTool, err error) {
	tr, err := transport.NewStdio(context.WithoutCancel(ctx), b.command, b.args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", router.ErrUpstreamUnreachable, err)
	}
	defer func() {
		if err != nil {
			_ = tr.Close()
		}
	}()
	b.tr = tr
	b.disconnectedCh = make(chan struct{})
	b.disconnectOnce = sync.Once{}

	go b.readLoop()

	if _, err := b.roundTrip(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "semantic-router", "version": "0.1.0"},
		"capabilities":    map[string]any{},
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", router.ErrHandshakeFailed, err)
	}

	result, err := b.roundTrip(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", router.ErrListToolsFailed, err)
	}

	var parsed struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode tools/list result: %w", router.ErrListToolsFailed, err)
	}

	tools := make([]router.NativeTool, len(parsed.Tools))
	for i, t := range parsed.Tools {
		tools[i] = router.NativeTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			UpstreamID:  b.upstreamID,
		}
	}
	return tools, nil
}

func (b *stdioBackend) Call(ctx context.Context, nativeName string, arguments map[string]any, deadline time.Time) (*router.ToolCallResult, *router.WireError) {
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	raw, err := b.roundTrip(callCtx, "tools/call", map[string]any{
		"name":      nativeName,
		"arguments": arguments,
	})
	if err != nil {
		if callCtx.Err() != nil {
			return nil, router.NewUpstreamTimeout(nativeName, b.upstreamID)
		}
		return nil, router.NewUpstreamClosed(nativeName, b.upstreamID)
	}

	var result router.ToolCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, router.NewUpstreamError(nativeName, b.upstreamID, int(router.CodeUpstreamError), "malformed tool result", nil)
	}
	return &result, nil
}

func (b *stdioBackend) Stop(_ context.Context) error {
	b.FailPending()

	if b.tr != nil {
		return b.tr.Close()
	}
	return nil
}

// roundTrip sends a request and waits for its correlated response.
func (b *stdioBackend) roundTrip(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := b.nextID.Add(1)
	respCh := make(chan rpcResponse, 1)

	b.mu.Lock()
	b.pending[id] = respCh
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if err := b.tr.Send(ctx, body); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, fmt.Errorf("%w", router.ErrSessionNotReady)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("upstream error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readLoop continuously receives messages and routes responses to their
// correlation-table entry by id; notifications (no matching id) are logged
// and dropped. On a read failure the backend signals disconnection so the
// owning Session can apply the degrade/reconnect policy (spec §4.3).
func (b *stdioBackend) readLoop() {
	ctx := context.Background()
	for {
		msg, err := b.tr.Recv(ctx)
		if err != nil {
			logger.Debugf("upstream %s: read loop ended: %v", b.upstreamID, err)
			b.signalDisconnect()
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			logger.Warnf("upstream %s: malformed message: %v", b.upstreamID, err)
			continue
		}
		if resp.ID == 0 {
			logger.Debugf("upstream %s: dropping notification: %s", b.upstreamID, msg)
			continue // notification; not modeled further (spec §4.3: "a small internal log")
		}

		b.mu.Lock()
		ch, ok := b.pending[resp.ID]
		if ok {
			delete(b.pending, resp.ID)
		}
		b.mu.Unlock()

		if ok {
			ch <- resp
		}
	}
}
