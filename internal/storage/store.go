// Package storage persists committed photo batches, either on the local
// filesystem or on a Microsoft Graph drive.
package storage

import (
	"context"

	"github.com/fotolote/intake-bot-go/internal/model"
)

// Result reports per-batch save counts. Failed photos never abort the rest
// of the batch.
type Result struct {
	Total  int
	Saved  int
	Failed int
	Folder string
}

func (r Result) FullSuccess() bool {
	return r.Failed == 0 && r.Saved == r.Total
}

// Store persists one batch under a destination keyed by the confirmed code,
// or under the uncoded bucket when legend is empty.
type Store interface {
	SaveBatch(ctx context.Context, photos []model.Photo, collaboratorName, legend string) Result
}
