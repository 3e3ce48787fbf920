package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/model"
)

// LocalStore writes batches under a base directory on the local filesystem.
type LocalStore struct {
	baseDir string
	clock   clockwork.Clock
}

func NewLocalStore(baseDir string, clock clockwork.Clock) *LocalStore {
	return &LocalStore{baseDir: baseDir, clock: clock}
}

func (s *LocalStore) SaveBatch(ctx context.Context, photos []model.Photo, collaboratorName, legend string) Result {
	now := s.clock.Now()
	folder := DestinationFolder(legend, collaboratorName, now)
	dir := filepath.Join(s.baseDir, filepath.FromSlash(folder))

	res := Result{Total: len(photos), Folder: folder}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("failed to create batch folder")
		res.Failed = len(photos)
		return res
	}

	for i, photo := range photos {
		name := FileName(i+1, collaboratorName, legend, Extension(photo.FileName), now)
		if err := os.WriteFile(filepath.Join(dir, name), photo.Content, 0o644); err != nil {
			log.Error().Err(err).Str("file", name).Msg("failed to save photo")
			res.Failed++
			continue
		}
		res.Saved++
	}

	return res
}
