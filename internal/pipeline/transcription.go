package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"upload-ai/internal/ai"
	"upload-ai/internal/storage"
)

// TranscriptionStage sends a stored audio track to the speech service and
// saves the text on the video record.
type TranscriptionStage struct {
	store       storage.RecordStore
	files       *storage.AudioFiles
	transcriber ai.Transcriber
	language    string
}

func NewTranscriptionStage(store storage.RecordStore, files *storage.AudioFiles, transcriber ai.Transcriber, language string) *TranscriptionStage {
	return &TranscriptionStage{store: store, files: files, transcriber: transcriber, language: language}
}

// Transcribe returns the transcription for videoID. contextPrompt is passed
// to the speech service as a hint. Errors wrap ErrRecordNotFound,
// ErrTranscriptionFailed or ErrRecordUpdateFailed; none of them is retried.
func (s *TranscriptionStage) Transcribe(ctx context.Context, videoID, contextPrompt string) (string, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return "", err
	}

	audio, err := s.files.Open(video.Path)
	if err != nil {
		log.Printf("Error opening audio for video %s: %v", videoID, err)
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	defer audio.Close()

	text, err := s.transcriber.Transcribe(ctx, ai.TranscriptionParams{
		Audio:    audio,
		FileName: filepath.Base(video.Path),
		Language: s.language,
		Prompt:   contextPrompt,
	})
	if err != nil {
		log.Printf("Error transcribing video %s: %v", videoID, err)
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	if err := s.store.SetTranscription(ctx, videoID, text); err != nil {
		log.Printf("Error saving transcription for video %s: %v", videoID, err)
		return "", fmt.Errorf("%w: %w", ErrRecordUpdateFailed, err)
	}

	return text, nil
}
