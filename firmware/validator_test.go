package firmware

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fw.s19")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateFileUnixEOL(t *testing.T) {
	content := "S0050000686929\n" +
		"S1117AF00102030405060708090A0B0C0D0E1B\n" +
		"S9030000FC\n"
	path := writeTemp(t, content)

	records, err := ValidateFile(path, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestValidateFileReportsLineNumber(t *testing.T) {
	content := "S0050000686929\n" +
		"S1137AF000000102030405060708090A0B0C0D0E80\n"
	path := writeTemp(t, content)

	_, err := ValidateFile(path, nil)
	require.ErrorContains(t, err, "line 2")
}

func TestClassifyEOL(t *testing.T) {
	require.Equal(t, EOLUnix, classifyEOL([]byte("a\nb\n")))
	require.Equal(t, EOLOldMac, classifyEOL([]byte("a\rb\r")))
	require.Equal(t, EOLWindows, classifyEOL([]byte("a\r\nb\r\n")))
	require.Equal(t, EOLMixed, classifyEOL([]byte("a\rb\n")))
	require.Equal(t, EOLNone, classifyEOL([]byte("ab")))
}
