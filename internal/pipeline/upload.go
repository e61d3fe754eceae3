package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"upload-ai/internal/models"
	"upload-ai/internal/storage"
)

const (
	MaxUploadBytes    = 25 << 20
	requiredExtension = ".mp3"
)

// UploadStage stores an audio track and creates its video record.
type UploadStage struct {
	store    storage.RecordStore
	files    *storage.AudioFiles
	maxBytes int64
}

func NewUploadStage(store storage.RecordStore, files *storage.AudioFiles) *UploadStage {
	return &UploadStage{store: store, files: files, maxBytes: MaxUploadBytes}
}

// Upload validates the file name and content type, streams the audio to
// storage and inserts a record with no transcription. Retrying creates a new
// record every time.
func (u *UploadStage) Upload(ctx context.Context, audio io.Reader, fileName, contentType string) (*models.VideoRecord, error) {
	if err := ValidateAudioInput(fileName, contentType); err != nil {
		return nil, err
	}

	storageName := StorageName(fileName)
	path, err := u.files.Save(storageName, audio, u.maxBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		log.Printf("Upload of %s rejected: larger than %d bytes", fileName, u.maxBytes)
		return nil, ErrPayloadTooLarge
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", fileName, err)
	}

	video := &models.VideoRecord{
		ID:        uuid.NewString(),
		Name:      filepath.Base(fileName),
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.store.CreateVideo(ctx, video); err != nil {
		if rmErr := u.files.Remove(path); rmErr != nil {
			log.Printf("Failed to remove orphaned upload %s: %v", path, rmErr)
		}
		return nil, err
	}

	log.Printf("Video %s uploaded as %s", video.ID, storageName)
	return video, nil
}

// ValidateAudioInput accepts only .mp3 files whose declared content type is
// audio or unspecified.
func ValidateAudioInput(fileName, contentType string) error {
	if filepath.Ext(fileName) != requiredExtension {
		return ErrInvalidInputType
	}
	if contentType == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrInvalidInputType
	}
	if mediaType == "application/octet-stream" || strings.HasPrefix(mediaType, "audio/") {
		return nil
	}
	return ErrInvalidInputType
}

// StorageName keeps the original base name and extension and adds a random
// suffix so uploads with the same name never collide.
func StorageName(fileName string) string {
	base := filepath.Base(fileName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s%s", stem, uuid.NewString(), ext)
}
