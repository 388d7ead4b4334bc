package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWireErrorMessageIncludesName(t *testing.T) {
	t.Parallel()

	err := NewUpstreamTimeout("files.read", "files")
	require.Equal(t, "files.read: upstream call timed out", err.Error())
	require.Equal(t, CodeUpstreamTimeout, err.Code)
}

func TestWireErrorToDataMergesNameAndUpstream(t *testing.T) {
	t.Parallel()

	err := NewUpstreamError("files.read", "files", -1, "boom", map[string]any{"detail": "disk full"})
	data := err.ToData()

	require.Equal(t, "files.read", data["name"])
	require.Equal(t, "files", data["upstreamId"])

	upstreamErr, ok := data["upstreamError"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, -1, upstreamErr["code"])
	require.Equal(t, "boom", upstreamErr["message"])
}

func TestNewMethodNotFoundCarriesName(t *testing.T) {
	t.Parallel()

	err := NewMethodNotFound("unknown.tool")
	require.Equal(t, CodeMethodNotFound, err.Code)
	require.Equal(t, "unknown.tool", err.ToData()["name"])
}

func TestNewInvalidParamsHasNoUpstream(t *testing.T) {
	t.Parallel()

	err := NewInvalidParams("search_tools", "query must be a non-empty string")
	require.Equal(t, CodeInvalidParams, err.Code)
	require.NotContains(t, err.ToData(), "upstreamId")
}
