package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrTooLarge = errors.New("payload exceeds size limit")

// AudioFiles stores uploaded audio tracks in a local directory.
type AudioFiles struct {
	BaseDir string
}

func NewAudioFiles(baseDir string) (*AudioFiles, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	return &AudioFiles{BaseDir: abs}, nil
}

// Save streams reader into BaseDir/name and returns the final path. Data is
// written to a temporary file first and only renamed into place once the
// whole payload has been read within limit bytes, so a rejected upload never
// leaves a file behind.
func (s *AudioFiles) Save(name string, reader io.Reader, limit int64) (string, error) {
	tmp, err := os.CreateTemp(s.BaseDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(reader, limit+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	if n > limit {
		return "", ErrTooLarge
	}

	dst := filepath.Join(s.BaseDir, name)
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("failed to move audio file into place: %w", err)
	}
	committed = true
	return dst, nil
}

func (s *AudioFiles) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %w", path, err)
	}
	return f, nil
}

// Remove deletes a stored file; used to roll back when the record insert fails.
func (s *AudioFiles) Remove(path string) error {
	return os.Remove(path)
}
