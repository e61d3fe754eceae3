package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"upload-ai/internal/i18n"
	"upload-ai/internal/models"
	"upload-ai/internal/pipeline"
	"upload-ai/internal/prompts"
)

type Uploader interface {
	Upload(ctx context.Context, audio io.Reader, fileName, contentType string) (*models.VideoRecord, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, videoID, contextPrompt string) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, req pipeline.CompletionRequest) (*pipeline.TokenRelay, error)
}

type Server struct {
	uploads        Uploader
	transcriptions Transcriber
	completions    Completer
	catalog        *prompts.Catalog
	tr             *i18n.Translator
	// lenientTranscriptionErrors answers transcription failures with 200 and
	// an error body, for clients written against the original API.
	lenientTranscriptionErrors bool
}

func New(uploads Uploader, transcriptions Transcriber, completions Completer, catalog *prompts.Catalog, tr *i18n.Translator, lenientTranscriptionErrors bool) *Server {
	return &Server{
		uploads:                    uploads,
		transcriptions:             transcriptions,
		completions:                completions,
		catalog:                    catalog,
		tr:                         tr,
		lenientTranscriptionErrors: lenientTranscriptionErrors,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /videos", s.handleUpload)
	mux.HandleFunc("POST /videos/{videoId}/transcription", s.handleTranscription)
	mux.HandleFunc("POST /ai/complete", s.handleComplete)
	mux.HandleFunc("GET /prompts", s.handleListPrompts)
	return withCORS(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully. No write
// timeout is set: completion streams stay open for as long as generation runs.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server is running on %s.", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// withCORS allows any origin, matching a browser client served elsewhere.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if headers := r.Header.Get("Access-Control-Request-Headers"); headers != "" {
				w.Header().Set("Access-Control-Allow-Headers", headers)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, messageID string) {
	writeJSON(w, status, errorResponse{Error: s.tr.T(messageID)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write json error: %v", err)
	}
}

func isMaxBytesError(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
