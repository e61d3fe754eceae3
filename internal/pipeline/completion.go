package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"upload-ai/internal/ai"
	"upload-ai/internal/storage"
)

const (
	// TranscriptionPlaceholder is replaced by the stored transcription in templates.
	TranscriptionPlaceholder = "{transcription}"
	DefaultTemperature       = 0.5
)

type CompletionRequest struct {
	VideoID        string
	PromptTemplate string
	Temperature    float64
}

// CompletionStage runs a prompt template against a stored transcription and
// streams the generated text.
type CompletionStage struct {
	store     storage.RecordStore
	completer ai.Completer
}

func NewCompletionStage(store storage.RecordStore, completer ai.Completer) *CompletionStage {
	return &CompletionStage{store: store, completer: completer}
}

// Complete checks the preconditions, opens the remote stream and returns a
// relay delivering its tokens. Precondition failures never reach the
// completion service. Cancelling ctx stops the relay and closes the remote
// stream.
func (c *CompletionStage) Complete(ctx context.Context, req CompletionRequest) (*TokenRelay, error) {
	if req.Temperature < 0 || req.Temperature > 1 {
		return nil, ErrInvalidTemperature
	}

	video, err := c.store.GetVideo(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}
	if !video.HasTranscription() {
		return nil, ErrTranscriptionNotReady
	}

	stream, err := c.completer.StreamCompletion(ctx, ai.CompletionParams{
		Prompt:      BuildPrompt(req.PromptTemplate, *video.Transcription),
		Temperature: req.Temperature,
	})
	if err != nil {
		log.Printf("Error opening completion stream for video %s: %v", req.VideoID, err)
		return nil, err
	}

	relay := newTokenRelay()
	go relay.run(ctx, stream)
	return relay, nil
}

// BuildPrompt substitutes every placeholder occurrence with the transcription.
func BuildPrompt(template, transcription string) string {
	return strings.ReplaceAll(template, TranscriptionPlaceholder, transcription)
}

// TokenRelay forwards tokens from the remote stream to a single consumer.
// The channel is unbuffered, so at most one token is in flight at a time and
// order is preserved.
type TokenRelay struct {
	tokens chan string
	err    error
}

func newTokenRelay() *TokenRelay {
	return &TokenRelay{tokens: make(chan string)}
}

// Tokens is closed when the remote stream ends, fails or is cancelled.
func (r *TokenRelay) Tokens() <-chan string {
	return r.tokens
}

// Err reports why the stream stopped. It is only meaningful once Tokens is
// closed; a clean end of generation yields nil.
func (r *TokenRelay) Err() error {
	return r.err
}

func (r *TokenRelay) run(ctx context.Context, stream ai.TokenStream) {
	defer close(r.tokens)
	defer stream.Close()

	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				r.err = ctxErr
			} else {
				r.err = err
			}
			return
		}
		if token == "" {
			continue
		}

		select {
		case r.tokens <- token:
		case <-ctx.Done():
			r.err = ctx.Err()
			return
		}
	}
}
