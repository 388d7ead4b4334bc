package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicNameAndSplitRoundTrip(t *testing.T) {
	t.Parallel()

	name := PublicName("files", "read_file")
	require.Equal(t, "files.read_file", name)

	prefix, native, err := SplitPublicName(name)
	require.NoError(t, err)
	require.Equal(t, "files", prefix)
	require.Equal(t, "read_file", native)
}

func TestSplitPublicNameSplitsOnFirstPeriodOnly(t *testing.T) {
	t.Parallel()

	prefix, native, err := SplitPublicName("files.read.v2")
	require.NoError(t, err)
	require.Equal(t, "files", prefix)
	require.Equal(t, "read.v2", native)
}

func TestSplitPublicNameRejectsUnnamespaced(t *testing.T) {
	t.Parallel()

	_, _, err := SplitPublicName("read_file")
	require.Error(t, err)
}

func TestSplitPublicNameRejectsEmptyHalves(t *testing.T) {
	t.Parallel()

	_, _, err := SplitPublicName(".read_file")
	require.Error(t, err)

	_, _, err = SplitPublicName("files.")
	require.Error(t, err)
}
