package ai

import (
	"context"
	"io"
)

// TranscriptionParams describes one speech-to-text call.
type TranscriptionParams struct {
	Audio    io.Reader
	FileName string
	Language string
	// Prompt biases recognition toward the given keywords; it is not an instruction.
	Prompt string
}

// CompletionParams describes one streamed text generation with a single user message.
type CompletionParams struct {
	Prompt      string
	Temperature float64
}

// TokenStream yields generated text fragments in arrival order. Recv returns
// io.EOF once generation is finished. Close releases the underlying connection
// and may be called at any time.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

type Transcriber interface {
	Transcribe(ctx context.Context, params TranscriptionParams) (string, error)
}

type Completer interface {
	StreamCompletion(ctx context.Context, params CompletionParams) (TokenStream, error)
}
