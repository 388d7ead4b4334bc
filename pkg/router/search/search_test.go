package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/embedding"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/index"
)

type fakeDescriber struct {
	descriptions map[string]string
}

func (d fakeDescriber) DescribeText(publicName string) (string, bool) {
	desc, ok := d.descriptions[publicName]
	return desc, ok
}

func buildTestService(t *testing.T, topK int) *Service {
	t.Helper()
	provider := embedding.NewDeterministicProvider(32)

	entries := []index.BuildEntry{
		{PublicName: "files.read", UpstreamID: "files", EmbeddingText: "read a file from disk"},
		{PublicName: "files.write", UpstreamID: "files", EmbeddingText: "write a file to disk"},
		{PublicName: "search_tools", EmbeddingText: "search the available tools", IsBuiltIn: true},
	}
	idx, err := index.Build(context.Background(), entries, provider)
	require.NoError(t, err)

	describer := fakeDescriber{descriptions: map[string]string{
		"files.read":  "reads a file from disk",
		"files.write": "writes a file to disk",
	}}

	return New(provider, idx, describer, topK)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	svc := buildTestService(t, 0)
	_, wireErr := svc.Search(context.Background(), "   ", nil)
	require.NotNil(t, wireErr)
	require.Equal(t, router.CodeInvalidParams, wireErr.Code)
}

func TestSearchExcludesBuiltInAndRanks(t *testing.T) {
	t.Parallel()

	svc := buildTestService(t, 10)
	results, wireErr := svc.Search(context.Background(), "read a file from disk", nil)
	require.Nil(t, wireErr)
	require.Len(t, results, 2)
	require.Equal(t, "files.read", results[0].PublicName)
	require.Equal(t, "reads a file from disk", results[0].Description)

	for _, r := range results {
		require.NotEqual(t, "search_tools", r.PublicName)
	}
}

func TestSearchOnEmptyCatalogReturnsEmptyList(t *testing.T) {
	t.Parallel()

	provider := embedding.NewDeterministicProvider(32)
	idx, err := index.Build(context.Background(), nil, provider)
	require.NoError(t, err)

	svc := New(provider, idx, fakeDescriber{}, 0)
	results, wireErr := svc.Search(context.Background(), "anything", nil)
	require.Nil(t, wireErr)
	require.NotNil(t, results)
	require.Empty(t, results)
}

func TestBuildQueryTextJoinsContext(t *testing.T) {
	t.Parallel()

	text := buildQueryText("find a tool", []string{"previous step A", "previous step B"})
	require.Equal(t, "find a tool\nprevious step A\nprevious step B", text)
}

func TestBuildQueryTextWithoutContext(t *testing.T) {
	t.Parallel()
	require.Equal(t, "find a tool", buildQueryText("find a tool", nil))
}
