package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiService struct {
	client    *genai.Client
	modelName string
}

func NewGeminiService(ctx context.Context, apiKey, modelName string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("could not create new genai client: %w", err)
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
	}, nil
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}

// Transcribe sends the whole audio track inline. Uploads are capped well
// below the inline request limit, so the file API is not needed.
func (s *GeminiService) Transcribe(ctx context.Context, params TranscriptionParams) (string, error) {
	log.Printf("Transcribing %s with %s (language=%s)", params.FileName, s.modelName, params.Language)

	audio, err := io.ReadAll(params.Audio)
	if err != nil {
		return "", fmt.Errorf("could not read audio: %w", err)
	}

	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0)

	prompt := fmt.Sprintf(
		"Transcribe this audio verbatim. The spoken language is '%s'. Return only the transcription text, with no commentary.",
		params.Language,
	)
	if params.Prompt != "" {
		prompt += fmt.Sprintf(" Keywords that may appear in the audio: %s", params.Prompt)
	}

	res, err := model.GenerateContent(ctx, genai.Blob{MIMEType: "audio/mpeg", Data: audio}, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini transcription failed: %w", err)
	}

	return extractText(res)
}

func (s *GeminiService) StreamCompletion(ctx context.Context, params CompletionParams) (TokenStream, error) {
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(float32(params.Temperature))

	ctx, cancel := context.WithCancel(ctx)
	iter := model.GenerateContentStream(ctx, genai.Text(params.Prompt))
	return &geminiTokenStream{iter: iter, cancel: cancel}, nil
}

type geminiTokenStream struct {
	iter   *genai.GenerateContentResponseIterator
	cancel context.CancelFunc
}

func (s *geminiTokenStream) Recv() (string, error) {
	res, err := s.iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("gemini stream: %w", err)
	}
	text, err := extractText(res)
	if err != nil {
		// Chunks carrying only safety or usage metadata have no text.
		return "", nil
	}
	return text, nil
}

func (s *geminiTokenStream) Close() error {
	s.cancel()
	return nil
}

func extractText(res *genai.GenerateContentResponse) (string, error) {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			b.WriteString(string(textPart))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini response did not contain text")
	}
	return b.String(), nil
}
