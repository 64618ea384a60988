package rawlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilenameIncludesPrefixAndTimestamp(t *testing.T) {
	now := time.Date(2014, 3, 4, 5, 6, 7, 0, time.UTC)
	name := Filename("", "run", now)
	require.Equal(t, "run-20140304-050607.bin", name)
}

func TestParseSizeLimit(t *testing.T) {
	n, err := ParseSizeLimit("128M")
	require.NoError(t, err)
	require.Equal(t, int64(128_000_000), n)

	n, err = ParseSizeLimit("2G")
	require.NoError(t, err)
	require.Equal(t, int64(2_000_000_000), n)

	_, err = ParseSizeLimit("2X")
	require.Error(t, err)

	_, err = ParseSizeLimit("abcM")
	require.Error(t, err)
}

func TestWriterRotatesOnSizeLimit(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "test.bin")

	w, err := New(base, 3)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, base, w.CurrentName())

	_, err = w.Write([]byte{4, 5})
	require.NoError(t, err)
	require.Equal(t, base+".1", w.CurrentName())

	data, err := os.ReadFile(base)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)

	data, err = os.ReadFile(base + ".1")
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5}, data)
}
