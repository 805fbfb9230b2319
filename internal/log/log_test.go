package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackendLevels(t *testing.T) {
	var buf bytes.Buffer
	b, err := NewWithWriter(&buf, "NOTICE")
	require.NoError(t, err)

	l := b.GetLogger("bench")
	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Notice("shown notice")
	l.Errorf("shown error %d", 42)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "NOTI bench: shown notice")
	require.Contains(t, out, "ERRO bench: shown error 42")
}

func TestInvalidLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "LOUD")
	require.Error(t, err)

	b, err := NewWithWriter(&bytes.Buffer{}, "debug")
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestFileBackend(t *testing.T) {
	f := filepath.Join(t.TempDir(), "spn.log")
	b, err := New(f, "INFO", false)
	require.NoError(t, err)

	b.GetLogger("file").Info("written to file")
	require.NoError(t, b.Close())

	raw, err := os.ReadFile(f)
	require.NoError(t, err)
	require.Contains(t, string(raw), "INFO file: written to file")
}

func TestDisabledBackend(t *testing.T) {
	b, err := New("", "DEBUG", true)
	require.NoError(t, err)
	b.GetLogger("quiet").Error("dropped")
	require.NoError(t, b.Close())
}
