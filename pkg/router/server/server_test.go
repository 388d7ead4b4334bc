package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/r1pc0rd/SemanticRouter/pkg/router/catalog"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/embedding"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/index"
)

func TestToToolInputSchemaDefaultsWhenEmpty(t *testing.T) {
	t.Parallel()

	schema := toToolInputSchema(nil)
	require.Equal(t, "object", schema.Type)
	require.NotNil(t, schema.Properties)
}

func TestToToolInputSchemaPreservesDeclaredShape(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`)
	schema := toToolInputSchema(raw)
	require.Equal(t, "object", schema.Type)
	require.Contains(t, schema.Properties, "path")
	require.Equal(t, []string{"path"}, schema.Required)
}

func TestTrimToolListKeepsOnlyDefaultSubset(t *testing.T) {
	t.Parallel()

	entries := []index.BuildEntry{
		{PublicName: "files.read", UpstreamID: "files", EmbeddingText: "reads a file"},
		{PublicName: "files.write", UpstreamID: "files", EmbeddingText: "writes a file"},
		{PublicName: catalog.BuiltInSearchToolsName, EmbeddingText: catalog.BuiltInSearchToolsEmbeddingText, IsBuiltIn: true},
	}
	idx, err := index.Build(context.Background(), entries, embedding.NewDeterministicProvider(16))
	require.NoError(t, err)

	s := &Server{idx: idx}

	result := &mcp.ListToolsResult{
		Tools: []mcp.Tool{
			{Name: "files.read"},
			{Name: "files.write"},
			{Name: catalog.BuiltInSearchToolsName},
		},
	}
	s.trimToolList(result)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	require.ElementsMatch(t, []string{"files.read", "files.write", catalog.BuiltInSearchToolsName}, names)
}

func TestDefaultSubsetNamesAlwaysIncludesBuiltIn(t *testing.T) {
	t.Parallel()

	idx, err := index.Build(context.Background(), nil, embedding.NewDeterministicProvider(16))
	require.NoError(t, err)

	s := &Server{idx: idx}
	names := s.defaultSubsetNames()
	require.True(t, names[catalog.BuiltInSearchToolsName])
}
