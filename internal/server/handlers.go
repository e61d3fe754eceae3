package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"upload-ai/internal/pipeline"
)

// multipartOverhead is the slack allowed on top of the file limit for
// boundaries and part headers.
const multipartOverhead = 1 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, pipeline.MaxUploadBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "error_missing_file")
		return
	}

	part, err := firstFilePart(mr)
	if err != nil {
		if isMaxBytesError(err) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "error_payload_too_large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "error_missing_file")
		return
	}
	defer part.Close()

	video, err := s.uploads.Upload(r.Context(), part, part.FileName(), part.Header.Get("Content-Type"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, video)
	case errors.Is(err, pipeline.ErrInvalidInputType):
		s.writeError(w, http.StatusBadRequest, "error_invalid_type")
	case errors.Is(err, pipeline.ErrPayloadTooLarge), isMaxBytesError(err):
		s.writeError(w, http.StatusRequestEntityTooLarge, "error_payload_too_large")
	default:
		log.Printf("Upload of %s failed: %v", part.FileName(), err)
		s.writeError(w, http.StatusInternalServerError, "error_internal")
	}
}

// firstFilePart skips plain form fields and returns the first part carrying a
// file. io.EOF means the form had no file.
func firstFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		p, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if p.FileName() != "" {
			return p, nil
		}
		p.Close()
	}
}

type transcriptionRequest struct {
	Prompt *string `json:"prompt"`
}

type transcriptionResponse struct {
	Transcription string `json:"transcription"`
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoId")
	if _, err := uuid.Parse(videoID); err != nil {
		s.writeError(w, http.StatusBadRequest, "error_invalid_video_id")
		return
	}

	var body transcriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Prompt == nil {
		s.writeError(w, http.StatusBadRequest, "error_invalid_body")
		return
	}

	text, err := s.transcriptions.Transcribe(r.Context(), videoID, *body.Prompt)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, transcriptionResponse{Transcription: text})
	case errors.Is(err, pipeline.ErrRecordNotFound):
		s.writeError(w, http.StatusNotFound, "error_video_not_found")
	case errors.Is(err, pipeline.ErrTranscriptionFailed):
		s.writeError(w, s.transcriptionFailureStatus(http.StatusBadGateway), "error_transcription_failed")
	case errors.Is(err, pipeline.ErrRecordUpdateFailed):
		s.writeError(w, s.transcriptionFailureStatus(http.StatusInternalServerError), "error_update_failed")
	default:
		log.Printf("Transcription of video %s failed: %v", videoID, err)
		s.writeError(w, http.StatusInternalServerError, "error_internal")
	}
}

func (s *Server) transcriptionFailureStatus(status int) int {
	if s.lenientTranscriptionErrors {
		return http.StatusOK
	}
	return status
}

type completionRequest struct {
	VideoID     *string  `json:"videoId"`
	Prompt      *string  `json:"prompt"`
	Temperature *float64 `json:"temperature"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var body completionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VideoID == nil || body.Prompt == nil {
		s.writeError(w, http.StatusBadRequest, "error_invalid_body")
		return
	}
	if _, err := uuid.Parse(*body.VideoID); err != nil {
		s.writeError(w, http.StatusBadRequest, "error_invalid_video_id")
		return
	}
	temperature := pipeline.DefaultTemperature
	if body.Temperature != nil {
		temperature = *body.Temperature
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	relay, err := s.completions.Complete(ctx, pipeline.CompletionRequest{
		VideoID:        *body.VideoID,
		PromptTemplate: *body.Prompt,
		Temperature:    temperature,
	})
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrInvalidTemperature):
		s.writeError(w, http.StatusBadRequest, "error_invalid_temperature")
		return
	case errors.Is(err, pipeline.ErrRecordNotFound):
		s.writeError(w, http.StatusNotFound, "error_video_not_found")
		return
	case errors.Is(err, pipeline.ErrTranscriptionNotReady):
		s.writeError(w, http.StatusBadRequest, "error_transcription_not_ready")
		return
	default:
		s.writeError(w, http.StatusBadGateway, "error_completion_failed")
		return
	}

	s.relayTokens(w, cancel, *body.VideoID, relay)
}

// relayTokens writes each token as soon as it arrives. Headers are committed
// with the first token, so a stream that fails before producing anything can
// still be answered with an error status.
func (s *Server) relayTokens(w http.ResponseWriter, cancel context.CancelFunc, videoID string, relay *pipeline.TokenRelay) {
	rc := http.NewResponseController(w)
	committed := false
	commit := func() {
		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST")
		w.WriteHeader(http.StatusOK)
		committed = true
	}

	for token := range relay.Tokens() {
		if !committed {
			commit()
		}
		if _, err := io.WriteString(w, token); err != nil {
			log.Printf("Client for video %s went away: %v", videoID, err)
			cancel()
			for range relay.Tokens() {
			}
			return
		}
		if err := rc.Flush(); err != nil {
			log.Printf("Flush for video %s failed: %v", videoID, err)
		}
	}

	err := relay.Err()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Completion stream for video %s ended with error: %v", videoID, err)
	}
	if !committed {
		if err != nil {
			s.writeError(w, http.StatusBadGateway, "error_completion_failed")
			return
		}
		commit()
	}
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.List())
}
