package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIService struct {
	client             *openai.Client
	transcriptionModel string
	completionModel    string
}

func NewOpenAIService(apiKey, baseURL, transcriptionModel, completionModel string) *OpenAIService {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIService{
		client:             openai.NewClientWithConfig(clientConfig),
		transcriptionModel: transcriptionModel,
		completionModel:    completionModel,
	}
}

func (s *OpenAIService) Transcribe(ctx context.Context, params TranscriptionParams) (string, error) {
	log.Printf("Transcribing %s with %s (language=%s)", params.FileName, s.transcriptionModel, params.Language)

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       s.transcriptionModel,
		FilePath:    params.FileName,
		Reader:      params.Audio,
		Prompt:      params.Prompt,
		Temperature: 0,
		Language:    params.Language,
		Format:      openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription failed: %w", err)
	}
	return resp.Text, nil
}

func (s *OpenAIService) StreamCompletion(ctx context.Context, params CompletionParams) (TokenStream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.completionModel,
		Temperature: requestTemperature(params.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: params.Prompt,
			},
		},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	return &openAITokenStream{stream: stream}, nil
}

// requestTemperature works around the omitempty tag on the request field: a
// literal zero would be dropped and the API would fall back to its default of 1.
func requestTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

type openAITokenStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAITokenStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("openai stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAITokenStream) Close() error {
	s.stream.Close()
	return nil
}
