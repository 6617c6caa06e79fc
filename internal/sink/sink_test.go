package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/mcastdump/internal/core"
)

func TestOpenStdout(t *testing.T) {
	for _, path := range []string{"", "-"} {
		s, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, "stdout", s.Name())
		assert.Same(t, os.Stdout, s.f)
		assert.NoError(t, s.Flush())
		assert.NoError(t, s.Close())
	}
}

func TestFileSinkConcatenatesPayloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Name())

	for _, p := range []string{"A", "BB", "CCC"} {
		n, err := s.Write([]byte(p))
		require.NoError(t, err)
		assert.Equal(t, len(p), n)
	}
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ABBCCC", string(data))
}

func TestOpenTruncatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, []byte("stale contents"), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Write([]byte{0x00, 0xff})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, data)
}

func TestOpenFailure(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "capture.bin"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSinkOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "capture.bin"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Write([]byte("late"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSinkWrite)
	assert.ErrorIs(t, err, os.ErrClosed)
}
