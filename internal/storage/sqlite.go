package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"upload-ai/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(databasePath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", databasePath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; serializing connections avoids SQLITE_BUSY
	// when uploads and transcriptions for different videos overlap.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initDB() error {
	query := `
    CREATE TABLE IF NOT EXISTS videos (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        path TEXT NOT NULL,
        transcription TEXT,
        created_at TIMESTAMP NOT NULL
    );`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) CreateVideo(ctx context.Context, video *models.VideoRecord) error {
	query := `INSERT INTO videos (id, name, path, transcription, created_at) VALUES (?, ?, ?, ?, ?);`

	var transcription sql.NullString
	if video.Transcription != nil {
		transcription = sql.NullString{String: *video.Transcription, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query, video.ID, video.Name, video.Path, transcription, video.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert video %s: %w", video.ID, err)
	}
	log.Printf("Video %s (%s) saved to DB.", video.ID, video.Name)
	return nil
}

func (s *SQLiteStore) GetVideo(ctx context.Context, id string) (*models.VideoRecord, error) {
	var video models.VideoRecord
	query := `SELECT id, name, path, transcription, created_at FROM videos WHERE id = ?`

	// Use sql.NullString for the nullable transcription column
	var transcription sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&video.ID,
		&video.Name,
		&video.Path,
		&transcription,
		&video.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("video %s: %w", id, ErrRecordNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to query video %s: %w", id, err)
	}

	if transcription.Valid {
		text := transcription.String
		video.Transcription = &text
	}

	return &video, nil
}

func (s *SQLiteStore) SetTranscription(ctx context.Context, id, transcription string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE videos SET transcription = ? WHERE id = ?;`, transcription, id)
	if err != nil {
		return fmt.Errorf("failed to update transcription for video %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update transcription for video %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("video %s: %w", id, ErrRecordNotFound)
	}
	log.Printf("Transcription for video %s saved to DB (%d chars).", id, len(transcription))
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
