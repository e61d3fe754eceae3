package pipeline

import (
	"errors"

	"upload-ai/internal/storage"
)

// Validation errors are raised before any stage work begins.
var (
	ErrInvalidInputType   = errors.New("invalid input type, expected an mp3 audio file")
	ErrPayloadTooLarge    = errors.New("payload exceeds the upload size limit")
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 1")
)

var (
	// ErrRecordNotFound is terminal and never retried.
	ErrRecordNotFound = storage.ErrRecordNotFound
	// ErrTranscriptionNotReady means the completion was requested before the
	// transcription stage stored a result.
	ErrTranscriptionNotReady = errors.New("video transcription was not generated yet")
)

// Remote and persistence failures of the transcription stage.
var (
	ErrTranscriptionFailed = errors.New("transcription error")
	ErrRecordUpdateFailed  = errors.New("update video error")
)
