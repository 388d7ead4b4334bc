package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/catalog"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/config"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/embedding"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/index"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/upstream"
)

// fakeBackend is a test double for upstream.Backend, letting these tests
// drive an Orchestrator's startup and dispatch pipeline end to end without a
// real transport (spec §8 scenarios).
type fakeBackend struct {
	upstreamID string
	tools      []router.NativeTool
	startErr   error
	callResult *router.ToolCallResult
	callErr    *router.WireError
	hang       bool

	disconnectCh chan struct{}
}

func newFakeBackend(id string, tools []router.NativeTool) *fakeBackend {
	return &fakeBackend{upstreamID: id, tools: tools, disconnectCh: make(chan struct{})}
}

func (b *fakeBackend) Start(context.Context) ([]router.NativeTool, error) {
	return b.tools, b.startErr
}

// Call mirrors the real backends' deadline handling (e.g. stdioBackend.Call):
// a hung upstream never responds, so the call only ends when deadline
// expires, surfacing as UpstreamTimeout rather than hanging forever.
func (b *fakeBackend) Call(ctx context.Context, nativeName string, _ map[string]any, deadline time.Time) (*router.ToolCallResult, *router.WireError) {
	if b.hang {
		callCtx, cancel := context.WithDeadline(ctx, deadline)
		defer cancel()
		<-callCtx.Done()
		return nil, router.NewUpstreamTimeout(nativeName, b.upstreamID)
	}
	return b.callResult, b.callErr
}

func (b *fakeBackend) Stop(context.Context) error { return nil }

func (b *fakeBackend) Disconnected() <-chan struct{} { return b.disconnectCh }

func (b *fakeBackend) FailPending() {}

func newTestOrchestrator(cfg *config.Config, backends map[string]*fakeBackend) *Orchestrator {
	o := New(cfg)
	o.newSession = func(d router.UpstreamDescriptor) *upstream.Session {
		return upstream.NewWithBackend(d, backends[d.ID])
	}
	return o
}

func TestOrchestratorAggregatesTwoUpstreams(t *testing.T) {
	t.Parallel()

	filesBackend := newFakeBackend("files", []router.NativeTool{{Name: "read_file", Description: "read a file"}})
	gitBackend := newFakeBackend("git", []router.NativeTool{{Name: "commit", Description: "commit changes"}})

	cfg := &config.Config{Upstreams: []config.UpstreamConfig{
		{ID: "files", Transport: router.TransportStdio, Command: "files-mcp"},
		{ID: "git", Transport: router.TransportStdio, Command: "git-mcp"},
	}}
	o := newTestOrchestrator(cfg, map[string]*fakeBackend{"files": filesBackend, "git": gitBackend})

	sessionTools, err := o.startSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessionTools, 2)

	cat, err := catalog.Build(sessionTools)
	require.NoError(t, err)
	require.Equal(t, 3, cat.Size()) // two tools plus the built-in

	require.Len(t, o.AllSessions(), 2)
	_, ok := o.Session("files")
	require.True(t, ok)
	_, ok = o.Session("git")
	require.True(t, ok)
}

func TestOrchestratorExcludesFailingUpstreamWithoutAbortingStartup(t *testing.T) {
	t.Parallel()

	okBackend := newFakeBackend("files", []router.NativeTool{{Name: "read_file", Description: "read a file"}})
	badBackend := newFakeBackend("flaky", nil)
	badBackend.startErr = router.ErrUpstreamUnreachable

	cfg := &config.Config{Upstreams: []config.UpstreamConfig{
		{ID: "files", Transport: router.TransportStdio, Command: "files-mcp"},
		{ID: "flaky", Transport: router.TransportStdio, Command: "flaky-mcp"},
	}}
	o := newTestOrchestrator(cfg, map[string]*fakeBackend{"files": okBackend, "flaky": badBackend})

	sessionTools, err := o.startSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessionTools, 1)
	require.Equal(t, "files", sessionTools[0].Descriptor.ID)

	_, ok := o.Session("flaky")
	require.False(t, ok)
	_, ok = o.Session("files")
	require.True(t, ok)
}

func TestOrchestratorHungCallSurfacesUpstreamTimeoutOtherToolsStillWork(t *testing.T) {
	t.Parallel()

	hungBackend := newFakeBackend("hangs", []router.NativeTool{{Name: "slow_call", Description: "never returns"}})
	hungBackend.hang = true

	healthyBackend := newFakeBackend("files", []router.NativeTool{{Name: "read_file", Description: "read a file"}})
	healthyBackend.callResult = &router.ToolCallResult{Content: []router.ContentItem{{Type: "text", Text: "ok"}}}

	cfg := &config.Config{Upstreams: []config.UpstreamConfig{
		{ID: "hangs", Transport: router.TransportStdio, Command: "hangs-mcp"},
		{ID: "files", Transport: router.TransportStdio, Command: "files-mcp"},
	}}
	o := newTestOrchestrator(cfg, map[string]*fakeBackend{"hangs": hungBackend, "files": healthyBackend})

	sessionTools, err := o.startSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessionTools, 2)

	cat, err := catalog.Build(sessionTools)
	require.NoError(t, err)

	provider := embedding.NewDeterministicProvider(32)
	buildEntries := make([]index.BuildEntry, len(cat.Entries()))
	for i, e := range cat.Entries() {
		buildEntries[i] = index.BuildEntry{
			PublicName:    e.PublicName,
			UpstreamID:    e.UpstreamID,
			EmbeddingText: e.EmbeddingText,
			IsBuiltIn:     e.IsBuiltIn,
		}
	}
	idx, err := index.Build(context.Background(), buildEntries, provider)
	require.NoError(t, err)
	require.Equal(t, cat.Size(), idx.Size())

	hangSess, ok := o.Session("hangs")
	require.True(t, ok)

	upstreamID, nativeName, ok := cat.Lookup("hangs.slow_call")
	require.True(t, ok)
	require.Equal(t, "hangs", upstreamID)

	_, wireErr := hangSess.Call(context.Background(), nativeName, nil, time.Now().Add(10*time.Millisecond))
	require.NotNil(t, wireErr)
	require.Equal(t, router.CodeUpstreamTimeout, wireErr.Code)

	wireErr.Name = "hangs.slow_call"
	data := wireErr.ToData()
	require.Equal(t, "hangs.slow_call", data["name"])
	require.Equal(t, "hangs", data["upstreamId"])

	filesSess, ok := o.Session("files")
	require.True(t, ok)
	upstreamID, nativeName, ok = cat.Lookup("files.read_file")
	require.True(t, ok)
	require.Equal(t, "files", upstreamID)

	result, wireErr := filesSess.Call(context.Background(), nativeName, nil, time.Now().Add(time.Second))
	require.Nil(t, wireErr)
	require.Equal(t, "ok", result.Content[0].Text)
}
