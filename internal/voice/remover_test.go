package voice

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRemover(t *testing.T) {
	root := t.TempDir()
	remover, err := NewFileRemover(root)
	require.NoError(t, err)

	t.Run("removes existing file", func(t *testing.T) {
		path := filepath.Join(root, "sessions", "a.webm")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("raw audio bytes"), 0o600))

		existed, err := remover.Remove(context.Background(), "sessions/a.webm")
		require.NoError(t, err)
		assert.True(t, existed)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		existed, err := remover.Remove(context.Background(), "sessions/missing.webm")
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("second removal is idempotent", func(t *testing.T) {
		path := filepath.Join(root, "b.webm")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := remover.Remove(context.Background(), "b.webm")
		require.NoError(t, err)
		existed, err := remover.Remove(context.Background(), "b.webm")
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("locator cannot escape root", func(t *testing.T) {
		outside := filepath.Join(t.TempDir(), "keep.webm")
		require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

		_, err := remover.Remove(context.Background(), "../"+filepath.Base(filepath.Dir(outside))+"/keep.webm")
		if err == nil {
			_, statErr := os.Stat(outside)
			assert.NoError(t, statErr, "file outside root must survive")
		}
	})
}

func TestZeroFill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.webm")
	audio := bytes.Repeat([]byte("pcm!"), 20_000)
	require.NoError(t, os.WriteFile(path, audio, 0o600))

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	require.NoError(t, zeroFill(f))
	require.NoError(t, f.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, len(audio))
	assert.Equal(t, make([]byte, len(audio)), got)
}
