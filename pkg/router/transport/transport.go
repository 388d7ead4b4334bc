// Package transport models the capability set an Upstream Session needs from
// its underlying wire: {send(msg), recv() -> msg, close()} (spec §9: "model
// transport as a capability set... with concrete variants for
// stdio/sse/http"). Only the stdio variant is implemented here; sse/http
// upstreams are served through the mark3labs/mcp-go SDK client directly
// (see pkg/router/upstream), which already implements this capability set
// internally for those wire formats.
package transport

import "context"

// Transport sends and receives whole JSON-RPC messages over a single
// duplex channel to one upstream.
type Transport interface {
	// Send writes one complete message.
	Send(ctx context.Context, msg []byte) error

	// Recv blocks until one complete message is available, ctx is
	// cancelled, or the transport is closed.
	Recv(ctx context.Context) ([]byte, error)

	// Close releases the underlying connection or process.
	Close() error
}
