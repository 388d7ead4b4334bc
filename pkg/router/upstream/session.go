// Package upstream implements the Upstream Session: ownership of one
// transport to one upstream MCP server, the MCP handshake, tools/list, and
// subsequent tools/call with correlation and timeout (spec §4.3).
package upstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/r1pc0rd/SemanticRouter/pkg/logger"
	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// DefaultCallDeadline is the absolute deadline applied to a call() when the
// caller does not supply one (spec §4.3: "Default when unspecified is 30
// seconds from submission.").
const DefaultCallDeadline = 30 * time.Second

// Backend is the transport-specific implementation a Session drives. Exactly
// one of stdioBackend or sdkBackend backs any given Session in production;
// it is exported so a Session can be constructed around a test double via
// NewWithBackend.
type Backend interface {
	Start(ctx context.Context) ([]router.NativeTool, error)
	Call(ctx context.Context, nativeName string, arguments map[string]any, deadline time.Time) (*router.ToolCallResult, *router.WireError)
	Stop(ctx context.Context) error
	Disconnected() <-chan struct{}

	// FailPending fails every call currently awaiting a response with
	// UpstreamClosed, without closing the underlying transport (spec §4.3:
	// "moving to degraded... fails all in-flight calls with
	// UpstreamClosed"). Called by watchDisconnect when a backend signals
	// disconnection, before any reconnect attempt. Implementations with no
	// independent correlation table to drain (backends that delegate
	// request/response matching entirely to an SDK client) may no-op: their
	// in-flight calls fail on their own once the broken transport surfaces
	// an error to the blocked call.
	FailPending()
}

// Session is one Upstream Session: the state machine, its current backend,
// and the degrade/reconnect policy (spec §4.3).
type Session struct {
	descriptor router.UpstreamDescriptor

	mu        sync.RWMutex
	status    router.Status
	lastError error
	backend   Backend

	// fixedBackend, when non-nil, is used instead of newBackend()'s
	// transport switch; set via NewWithBackend to inject a test double. No
	// reconnect is attempted once a fixed backend disconnects, since there
	// is nothing to recreate it from.
	fixedBackend bool

	watchCancel context.CancelFunc
}

// New creates a Session for descriptor. It does not connect; call Start.
func New(descriptor router.UpstreamDescriptor) *Session {
	return &Session{descriptor: descriptor, status: router.StatusInit}
}

// NewWithBackend creates a Session that drives the given Backend directly
// instead of constructing one from descriptor.Transport. This is the
// injection seam used to test the Session state machine and callers of
// *Session (e.g. the Orchestrator) against a fake Backend.
func NewWithBackend(descriptor router.UpstreamDescriptor, b Backend) *Session {
	return &Session{descriptor: descriptor, status: router.StatusInit, backend: b, fixedBackend: true}
}

// ID returns the upstream id this session owns.
func (s *Session) ID() string {
	return s.descriptor.ID
}

// Status returns the session's current lifecycle state.
func (s *Session) Status() router.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) setStatus(status router.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Start opens the transport, performs the MCP handshake, and fetches the
// upstream's tool list (spec §4.3). On success the session transitions to
// ready and Start returns the native tool list.
func (s *Session) Start(ctx context.Context) ([]router.NativeTool, error) {
	s.setStatus(router.StatusConnecting)

	b, err := s.resolveBackend()
	if err != nil {
		s.setStatus(router.StatusClosed)
		s.lastError = err
		return nil, err
	}

	tools, err := b.Start(ctx)
	if err != nil {
		s.setStatus(router.StatusClosed)
		s.lastError = err
		return nil, err
	}

	s.mu.Lock()
	s.backend = b
	s.status = router.StatusReady
	s.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	go s.watchDisconnect(watchCtx, b)

	logger.Infof("upstream %s: ready with %d tools", s.descriptor.ID, len(tools))
	return tools, nil
}

// resolveBackend returns the fixed backend if one was injected via
// NewWithBackend, otherwise constructs one from descriptor.Transport.
func (s *Session) resolveBackend() (Backend, error) {
	if s.fixedBackend {
		return s.backend, nil
	}
	return s.newBackend()
}

func (s *Session) newBackend() (Backend, error) {
	switch s.descriptor.Transport {
	case router.TransportStdio:
		return newStdioBackend(s.descriptor.ID, s.descriptor.Command, s.descriptor.Args), nil
	case router.TransportHTTP:
		return newSDKBackend(s.descriptor.ID, s.descriptor.Endpoint, router.TransportHTTP), nil
	case router.TransportSSE:
		return newSDKBackend(s.descriptor.ID, s.descriptor.Endpoint, router.TransportSSE), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", router.ErrUpstreamUnreachable, s.descriptor.Transport)
	}
}

// watchDisconnect observes a backend's disconnect signal and applies the
// degrade/reconnect policy (spec §4.3: "the session moves to degraded...
// and attempts at most one reconnect... Two consecutive failures move it to
// closed"). Any call still in flight on the disconnected backend is failed
// with UpstreamClosed before a reconnect is attempted.
func (s *Session) watchDisconnect(ctx context.Context, b Backend) {
	select {
	case <-b.Disconnected():
	case <-ctx.Done():
		return
	}

	s.setStatus(router.StatusDegraded)
	logger.Warnf("upstream %s: degraded, failing in-flight calls", s.descriptor.ID)
	b.FailPending()

	if s.fixedBackend {
		logger.Errorf("upstream %s: fixed backend disconnected, closing", s.descriptor.ID)
		s.setStatus(router.StatusClosed)
		return
	}

	logger.Warnf("upstream %s: attempting one reconnect", s.descriptor.ID)
	reconnectCtx, cancel := context.WithTimeout(context.Background(), DefaultCallDeadline)
	defer cancel()

	newB, err := s.newBackend()
	if err == nil {
		if _, startErr := newB.Start(reconnectCtx); startErr == nil {
			s.mu.Lock()
			s.backend = newB
			s.status = router.StatusReady
			s.mu.Unlock()

			watchCtx, wcancel := context.WithCancel(context.Background())
			s.watchCancel = wcancel
			go s.watchDisconnect(watchCtx, newB)
			logger.Infof("upstream %s: reconnected", s.descriptor.ID)
			return
		}
		s.lastError = err
	}

	logger.Errorf("upstream %s: reconnect failed, closing", s.descriptor.ID)
	s.setStatus(router.StatusClosed)
}

// Call submits a tools/call to the upstream for nativeName and awaits the
// correlated response, failing at deadline with UpstreamTimeout (spec
// §4.3). If the session is not ready, it fails immediately with
// UpstreamClosed.
func (s *Session) Call(ctx context.Context, nativeName string, arguments map[string]any, deadline time.Time) (*router.ToolCallResult, *router.WireError) {
	s.mu.RLock()
	status := s.status
	b := s.backend
	s.mu.RUnlock()

	if status != router.StatusReady || b == nil {
		return nil, router.NewUpstreamClosed(nativeName, s.descriptor.ID)
	}

	if deadline.IsZero() {
		deadline = time.Now().Add(DefaultCallDeadline)
	}
	return b.Call(ctx, nativeName, arguments, deadline)
}

// Stop initiates graceful shutdown: closes the transport and fails any
// pending calls (spec §4.3).
func (s *Session) Stop(ctx context.Context) error {
	if s.watchCancel != nil {
		s.watchCancel()
	}

	s.mu.Lock()
	b := s.backend
	s.status = router.StatusClosed
	s.mu.Unlock()

	if b == nil {
		return nil
	}
	return b.Stop(ctx)
}
