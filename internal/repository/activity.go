package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fotolote/intake-bot-go/internal/model"
)

type ActivityRepository interface {
	Create(ctx context.Context, params model.CreateActivityParams) (*model.Activity, error)
	ListForDay(ctx context.Context, day time.Time) ([]model.Activity, error)
	SummaryForDay(ctx context.Context, day time.Time) (*model.ActivitySummary, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type activityRepo struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, params model.CreateActivityParams) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.GetContext(ctx, &activity, `
		INSERT INTO activities
			(type, sender, collaborator, code, photo_count, duplicate_count,
			 saved_count, failed_count, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, params.Type, params.Sender, params.Collaborator, params.Code,
		params.PhotoCount, params.DuplicateCount, params.SavedCount,
		params.FailedCount, params.Detail)
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepo) ListForDay(ctx context.Context, day time.Time) ([]model.Activity, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var activities []model.Activity
	err := r.db.SelectContext(ctx, &activities, `
		SELECT * FROM activities
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC
	`, start, end)
	return activities, err
}

func (r *activityRepo) SummaryForDay(ctx context.Context, day time.Time) (*model.ActivitySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var summary model.ActivitySummary
	err := r.db.GetContext(ctx, &summary, `
		SELECT
			COUNT(*) FILTER (WHERE type = 'batch_complete' OR type = 'batch_no_code') as batches,
			COUNT(*) FILTER (WHERE type = 'batch_no_code') as batches_no_code,
			COALESCE(SUM(photo_count) FILTER (WHERE type IN ('batch_complete', 'batch_no_code')), 0) as photos,
			COALESCE(SUM(duplicate_count), 0) as duplicates,
			COALESCE(SUM(saved_count), 0) as saved,
			COALESCE(SUM(failed_count), 0) as failed,
			COUNT(*) FILTER (WHERE type = 'rejected_sender') as rejected_senders,
			COUNT(*) FILTER (WHERE type = 'forward_failed') as forward_failures
		FROM activities
		WHERE created_at >= $1 AND created_at < $2
	`, start, end)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *activityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM activities WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
