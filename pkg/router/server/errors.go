package server

import "github.com/r1pc0rd/SemanticRouter/pkg/router"

// rpcError carries a wire error's code and data to the mcp-go dispatcher
// through the standard error interface. mcp-go surfaces a handler's returned
// error as a JSON-RPC protocol-level error rather than a tool-result
// isError, which is what spec §7's code table requires for everything but
// InvalidParams (handled separately as a tool-result error so the host sees
// it as a normal, correctable call failure).
type rpcError struct {
	wire *router.WireError
}

func newRPCError(w *router.WireError) error {
	return &rpcError{wire: w}
}

func (e *rpcError) Error() string {
	return e.wire.Error()
}

// Code exposes the JSON-RPC error code, for any dispatcher-level error
// translation that inspects a returned error for a Code() method.
func (e *rpcError) Code() int {
	return int(e.wire.Code)
}

// Data exposes the JSON-RPC error's data object.
func (e *rpcError) Data() map[string]any {
	return e.wire.ToData()
}
