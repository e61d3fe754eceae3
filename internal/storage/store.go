package storage

import (
	"context"
	"errors"
	"fmt"

	"upload-ai/internal/models"
)

var ErrRecordNotFound = errors.New("video record not found")

// RecordStore persists video records. Implementations must allow concurrent
// reads and writes keyed by video id; SetTranscription is last writer wins.
type RecordStore interface {
	CreateVideo(ctx context.Context, video *models.VideoRecord) error
	GetVideo(ctx context.Context, id string) (*models.VideoRecord, error)
	SetTranscription(ctx context.Context, id, transcription string) error
	Close() error
}

// Open returns the record store selected by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (RecordStore, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
