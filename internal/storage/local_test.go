package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fotolote/intake-bot-go/internal/model"
)

func TestLocalStoreSaveBatch(t *testing.T) {
	photos := []model.Photo{
		{Content: []byte("one"), FileName: "a.jpg"},
		{Content: []byte("two"), FileName: "b.png"},
	}

	t.Run("saves coded batch under the code folder", func(t *testing.T) {
		dir := t.TempDir()
		clock := clockwork.NewFakeClockAt(fixedNow)
		store := NewLocalStore(dir, clock)

		res := store.SaveBatch(context.Background(), photos, "Maria", "2025000001")

		assert.True(t, res.FullSuccess())
		assert.Equal(t, 2, res.Saved)
		assert.Equal(t, "2025000001", res.Folder)

		data, err := os.ReadFile(filepath.Join(dir, "2025000001", "001_15-01-2026_14h30_Maria_2025000001.jpg"))
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), data)

		_, err = os.Stat(filepath.Join(dir, "2025000001", "002_15-01-2026_14h30_Maria_2025000001.png"))
		assert.NoError(t, err)
	})

	t.Run("saves uncoded batch under SEM_AS", func(t *testing.T) {
		dir := t.TempDir()
		clock := clockwork.NewFakeClockAt(fixedNow)
		store := NewLocalStore(dir, clock)

		res := store.SaveBatch(context.Background(), photos, "João", "")

		assert.True(t, res.FullSuccess())
		assert.Equal(t, "SEM_AS/Joao_15-01-2026_14h30", res.Folder)

		_, err := os.Stat(filepath.Join(dir, "SEM_AS", "Joao_15-01-2026_14h30", "001_15-01-2026_14h30_Joao.jpg"))
		assert.NoError(t, err)
	})

	t.Run("counts every photo as failed when the folder cannot be created", func(t *testing.T) {
		dir := t.TempDir()
		// A plain file where the batch folder should go makes MkdirAll fail.
		require.NoError(t, os.WriteFile(filepath.Join(dir, "2025000001"), []byte("x"), 0o644))

		clock := clockwork.NewFakeClockAt(fixedNow)
		store := NewLocalStore(dir, clock)

		res := store.SaveBatch(context.Background(), photos, "Maria", "2025000001")
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, 0, res.Saved)
		assert.Equal(t, 2, res.Failed)
		assert.False(t, res.FullSuccess())
	})
}
