package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/fotolote/intake-bot-go/internal/config"
)

type DB struct {
	*sqlx.DB
}

func Connect(databaseURL string) (*DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(config.DBConnMaxLifetime)

	return &DB{db}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// EnsureSchema creates the activity table on first boot. The deployment has
// no separate migration step.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS activities (
			id              BIGSERIAL PRIMARY KEY,
			type            TEXT NOT NULL,
			sender          TEXT NOT NULL DEFAULT '',
			collaborator    TEXT NOT NULL DEFAULT '',
			code            TEXT NOT NULL DEFAULT '',
			photo_count     INTEGER NOT NULL DEFAULT 0,
			duplicate_count INTEGER NOT NULL DEFAULT 0,
			saved_count     INTEGER NOT NULL DEFAULT 0,
			failed_count    INTEGER NOT NULL DEFAULT 0,
			detail          TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS activities_created_at_idx ON activities (created_at);
	`)
	return err
}

func (db *DB) Close() error {
	return db.DB.Close()
}
