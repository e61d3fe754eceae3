package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"upload-ai/internal/models"
)

// PostgresStore keeps video records in Postgres. The pool gives each request
// its own connection, so concurrent sessions never share one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dbURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			transcription TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create videos table: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateVideo(ctx context.Context, video *models.VideoRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO videos (id, name, path, transcription, created_at) VALUES ($1, $2, $3, $4, $5)`,
		video.ID, video.Name, video.Path, video.Transcription, video.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert video %s: %w", video.ID, err)
	}
	log.Printf("Video %s (%s) saved to postgres.", video.ID, video.Name)
	return nil
}

func (s *PostgresStore) GetVideo(ctx context.Context, id string) (*models.VideoRecord, error) {
	var video models.VideoRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, path, transcription, created_at FROM videos WHERE id = $1`, id,
	).Scan(&video.ID, &video.Name, &video.Path, &video.Transcription, &video.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("video %s: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query video %s: %w", id, err)
	}
	return &video, nil
}

func (s *PostgresStore) SetTranscription(ctx context.Context, id, transcription string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE videos SET transcription = $1 WHERE id = $2`, transcription, id)
	if err != nil {
		return fmt.Errorf("failed to update transcription for video %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, ErrRecordNotFound)
	}
	log.Printf("Transcription for video %s saved to postgres (%d chars).", id, len(transcription))
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
