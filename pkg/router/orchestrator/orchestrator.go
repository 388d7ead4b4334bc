// Package orchestrator wires the router's components together: it starts
// every configured Upstream Session, builds the Tool Catalog and Tool Index
// from whichever sessions came up ready, and runs the Router Server until
// shutdown (spec §4.7).
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/r1pc0rd/SemanticRouter/pkg/logger"
	"github.com/r1pc0rd/SemanticRouter/pkg/router"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/catalog"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/config"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/embedding"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/index"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/search"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/server"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/upstream"
)

// Orchestrator owns the startup sequence, the live session set, and
// graceful shutdown.
type Orchestrator struct {
	cfg *config.Config

	mu       sync.RWMutex
	sessions map[string]*upstream.Session

	srv *server.Server

	// newSession builds the Session for a configured descriptor. It is
	// upstream.New in production; tests override it to inject sessions
	// backed by a fake upstream.Backend via upstream.NewWithBackend.
	newSession func(router.UpstreamDescriptor) *upstream.Session
}

// New creates an Orchestrator for cfg. Call Run to start it.
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{cfg: cfg, sessions: map[string]*upstream.Session{}, newSession: upstream.New}
}

// Session implements server.SessionLookup.
func (o *Orchestrator) Session(upstreamID string) (*upstream.Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[upstreamID]
	return s, ok
}

// AllSessions implements server.SessionLookup.
func (o *Orchestrator) AllSessions() []*upstream.Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*upstream.Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		out = append(out, s)
	}
	return out
}

// Run executes the full startup sequence and then serves until ctx is
// cancelled, at which point it shuts down gracefully (spec §4.7).
func (o *Orchestrator) Run(ctx context.Context) error {
	provider, err := o.buildProvider()
	if err != nil {
		return fmt.Errorf("%w: %w", router.ErrEmbeddingUnavailable, err)
	}

	startupCtx, cancel := context.WithTimeout(ctx, o.cfg.Server.StartupDeadline)
	sessionTools, err := o.startSessions(startupCtx)
	cancel()
	if err != nil {
		return err
	}

	cat, err := catalog.Build(sessionTools)
	if err != nil {
		return err
	}
	logger.Infof("catalog built with %d entries", cat.Size())

	buildEntries := make([]index.BuildEntry, len(cat.Entries()))
	for i, e := range cat.Entries() {
		buildEntries[i] = index.BuildEntry{
			PublicName:    e.PublicName,
			UpstreamID:    e.UpstreamID,
			EmbeddingText: e.EmbeddingText,
			IsBuiltIn:     e.IsBuiltIn,
		}
	}
	idx, err := index.Build(ctx, buildEntries, provider)
	if err != nil {
		return err
	}

	searchSvc := search.New(provider, idx, cat, o.cfg.Search.TopK)

	o.srv = server.New(server.Config{
		Name:             o.cfg.Server.Name,
		Version:          o.cfg.Server.Version,
		CallDeadline:     o.cfg.Server.CallDeadline,
		ShutdownDeadline: o.cfg.Server.ShutdownDeadline,
	}, cat, idx, searchSvc, o)

	serveErr := make(chan error, 1)
	go func() { serveErr <- o.srv.Serve(ctx) }()

	select {
	case <-ctx.Done():
		return o.srv.Shutdown(context.Background())
	case err := <-serveErr:
		_ = o.srv.Shutdown(context.Background())
		return err
	}
}

func (o *Orchestrator) buildProvider() (embedding.Provider, error) {
	switch o.cfg.Search.Provider {
	case "http":
		return embedding.NewHTTPProvider(o.cfg.Search.HTTPEndpoint, o.cfg.Search.Dimension, 10*time.Second), nil
	case "deterministic":
		return embedding.NewDeterministicProvider(o.cfg.Search.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", o.cfg.Search.Provider)
	}
}

// startSessions starts every configured upstream in parallel (spec §4.7:
// "Start every configured Upstream Session in parallel"). A session that
// fails to start is logged and excluded; the aggregate only fails if every
// upstream fails (router.ErrAllUpstreamsFailed).
func (o *Orchestrator) startSessions(ctx context.Context) ([]catalog.SessionTools, error) {
	descriptors := o.cfg.Descriptors()
	results := make([]*catalog.SessionTools, len(descriptors))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range descriptors {
		i, d := i, d
		sess := o.newSession(d)

		o.mu.Lock()
		o.sessions[d.ID] = sess
		o.mu.Unlock()

		g.Go(func() error {
			tools, err := sess.Start(gctx)
			if err != nil {
				logger.Errorf("upstream %s: failed to start: %v", d.ID, err)
				o.mu.Lock()
				delete(o.sessions, d.ID)
				o.mu.Unlock()
				return nil
			}
			results[i] = &catalog.SessionTools{Descriptor: d, Tools: tools}
			return nil
		})
	}
	_ = g.Wait()

	var ready []catalog.SessionTools
	for _, r := range results {
		if r != nil {
			ready = append(ready, *r)
		}
	}

	if len(descriptors) > 0 && len(ready) == 0 {
		return nil, router.ErrAllUpstreamsFailed
	}
	return ready, nil
}

// Shutdown tears down a running Orchestrator outside the normal ctx-driven
// path, e.g. from a signal handler that wants an explicit deadline.
func (o *Orchestrator) Shutdown(timeout time.Duration) error {
	if o.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return o.srv.Shutdown(ctx)
}
