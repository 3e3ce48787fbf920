package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collaborators.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRoster(t *testing.T) {
	t.Run("resolves display names with digit normalization", func(t *testing.T) {
		path := writeRoster(t, "\"+55 11 99999-9999\": Maria\n\"5511888888888\": Joao\n")
		r := New(path, true)
		require.NoError(t, r.Load())

		assert.True(t, r.Allowed("5511999999999"))
		assert.Equal(t, "Maria", r.DisplayName("5511999999999"))
		assert.Equal(t, "Joao", r.DisplayName("5511888888888"))
	})

	t.Run("matches when one side carries a country prefix", func(t *testing.T) {
		path := writeRoster(t, "\"11999999999\": Maria\n")
		r := New(path, true)
		require.NoError(t, r.Load())

		assert.True(t, r.Allowed("5511999999999"))
		assert.Equal(t, "Maria", r.DisplayName("5511999999999"))
	})

	t.Run("rejects unknown senders when roster has entries", func(t *testing.T) {
		path := writeRoster(t, "\"5511999999999\": Maria\n")
		r := New(path, true)
		require.NoError(t, r.Load())

		assert.False(t, r.Allowed("5521777777777"))
		assert.Equal(t, "", r.DisplayName("5521777777777"))
	})

	t.Run("empty roster follows allowAllWhenEmpty", func(t *testing.T) {
		path := writeRoster(t, "")
		open := New(path, true)
		require.NoError(t, open.Load())
		assert.True(t, open.Allowed("5511999999999"))

		closed := New(path, false)
		require.NoError(t, closed.Load())
		assert.False(t, closed.Allowed("5511999999999"))
	})

	t.Run("missing file leaves roster empty without error", func(t *testing.T) {
		r := New(filepath.Join(t.TempDir(), "missing.yaml"), false)
		require.NoError(t, r.Load())
		assert.False(t, r.Allowed("5511999999999"))
	})

	t.Run("malformed file keeps previous entries", func(t *testing.T) {
		path := writeRoster(t, "\"5511999999999\": Maria\n")
		r := New(path, true)
		require.NoError(t, r.Load())

		require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))
		assert.Error(t, r.Load())
		assert.Equal(t, "Maria", r.DisplayName("5511999999999"))
	})
}
