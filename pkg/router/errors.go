// Package router holds the domain types and sentinel errors shared across
// the router's subpackages (config, upstream, catalog, index, search,
// server, orchestrator).
package router

import (
	"errors"
	"fmt"
)

// Code is a JSON-RPC error code as assigned by the wire error taxonomy.
type Code int

// Wire error codes. Every value here can appear in a JSON-RPC error response
// sent to the host client.
const (
	CodeInvalidParams     Code = -32602
	CodeMethodNotFound    Code = -32601
	CodeUpstreamTimeout   Code = -32000
	CodeUpstreamError     Code = -32603
	CodeUpstreamClosed    Code = -32000
	CodeSearchUnavailable Code = -32000
)

// WireError is a JSON-RPC error that crosses the host-facing wire.
// Name identifies the public tool name the error concerns, when applicable;
// UpstreamID identifies the upstream the failure originated from, when the
// failure is upstream-caused. Data carries machine-readable detail.
type WireError struct {
	Code       Code
	Message    string
	Name       string
	UpstreamID string
	Data       map[string]any
}

func (e *WireError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	}
	return e.Message
}

// ToData builds the JSON-RPC "data" object for this error, merging Name and
// UpstreamID into any caller-supplied data.
func (e *WireError) ToData() map[string]any {
	data := map[string]any{}
	for k, v := range e.Data {
		data[k] = v
	}
	if e.Name != "" {
		data["name"] = e.Name
	}
	if e.UpstreamID != "" {
		data["upstreamId"] = e.UpstreamID
	}
	return data
}

// NewInvalidParams builds an InvalidParams wire error.
func NewInvalidParams(name, message string) *WireError {
	return &WireError{Code: CodeInvalidParams, Message: message, Name: name}
}

// NewMethodNotFound builds a MethodNotFound wire error for an unknown tool name.
func NewMethodNotFound(name string) *WireError {
	return &WireError{Code: CodeMethodNotFound, Message: "unknown tool", Name: name}
}

// NewUpstreamTimeout builds an UpstreamTimeout wire error.
func NewUpstreamTimeout(name, upstreamID string) *WireError {
	return &WireError{Code: CodeUpstreamTimeout, Message: "upstream call timed out", Name: name, UpstreamID: upstreamID}
}

// NewUpstreamError builds an UpstreamError wire error, carrying the
// upstream's own code/message/data through in Data.upstreamError.
func NewUpstreamError(name, upstreamID string, upstreamCode int, upstreamMessage string, upstreamData any) *WireError {
	return &WireError{
		Code:       CodeUpstreamError,
		Message:    "upstream returned an error",
		Name:       name,
		UpstreamID: upstreamID,
		Data: map[string]any{
			"upstreamError": map[string]any{
				"code":    upstreamCode,
				"message": upstreamMessage,
				"data":    upstreamData,
			},
		},
	}
}

// NewUpstreamClosed builds an UpstreamClosed wire error.
func NewUpstreamClosed(name, upstreamID string) *WireError {
	return &WireError{Code: CodeUpstreamClosed, Message: "upstream session is not ready", Name: name, UpstreamID: upstreamID}
}

// NewSearchUnavailable builds a SearchUnavailable wire error.
func NewSearchUnavailable(message string) *WireError {
	return &WireError{Code: CodeSearchUnavailable, Message: message}
}

// Fatal startup errors. These are never serialized to the host wire; they
// abort the Orchestrator's startup sequence and set the process exit code.
var (
	// ErrCatalogConflict indicates two upstreams produced the same public_name.
	ErrCatalogConflict = errors.New("catalog conflict: duplicate public name")

	// ErrEmbeddingUnavailable indicates the Embedding Provider failed during
	// catalog/index construction.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrAllUpstreamsFailed indicates every configured upstream failed to start.
	ErrAllUpstreamsFailed = errors.New("all upstreams failed to start")
)

// Per-session lifecycle errors, used internally by the Upstream Session and
// wrapped into WireError at the Router Server boundary.
var (
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrHandshakeFailed     = errors.New("upstream handshake failed")
	ErrListToolsFailed     = errors.New("upstream tools/list failed")
	ErrSessionNotReady     = errors.New("upstream session not ready")
	ErrCallTimeout         = errors.New("upstream call timed out")
	ErrCancelled           = errors.New("operation cancelled")
)
