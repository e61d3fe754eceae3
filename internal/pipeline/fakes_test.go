package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"upload-ai/internal/ai"
	"upload-ai/internal/models"
	"upload-ai/internal/storage"
)

// memStore is an in-memory RecordStore that counts mutations.
type memStore struct {
	mu        sync.Mutex
	videos    map[string]models.VideoRecord
	creates   int
	updates   int
	createErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{videos: map[string]models.VideoRecord{}}
}

func (s *memStore) CreateVideo(ctx context.Context, video *models.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.creates++
	s.videos[video.ID] = *video
	return nil
}

func (s *memStore) GetVideo(ctx context.Context, id string) (*models.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %s: %w", id, storage.ErrRecordNotFound)
	}
	return &v, nil
}

func (s *memStore) SetTranscription(ctx context.Context, id, transcription string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	v, ok := s.videos[id]
	if !ok {
		return fmt.Errorf("video %s: %w", id, storage.ErrRecordNotFound)
	}
	s.updates++
	v.Transcription = &transcription
	s.videos[id] = v
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) put(id, path string, transcription *string) {
	s.videos[id] = models.VideoRecord{ID: id, Name: "lecture.mp3", Path: path, Transcription: transcription}
}

type fakeTranscriber struct {
	calls  int
	params ai.TranscriptionParams
	audio  string
	text   string
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, params ai.TranscriptionParams) (string, error) {
	f.calls++
	f.params = params
	data, _ := io.ReadAll(params.Audio)
	f.audio = string(data)
	return f.text, f.err
}

type fakeCompleter struct {
	calls   int
	params  ai.CompletionParams
	stream  *fakeTokenStream
	openErr error
}

func (f *fakeCompleter) StreamCompletion(ctx context.Context, params ai.CompletionParams) (ai.TokenStream, error) {
	f.calls++
	f.params = params
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.stream.ctx = ctx
	return f.stream, nil
}

// fakeTokenStream yields tokens, then err (io.EOF by default). When block is
// set it waits for ctx cancellation after the tokens, like a stalled remote.
type fakeTokenStream struct {
	ctx    context.Context
	tokens []string
	err    error
	block  bool
	closed chan struct{}
	once   sync.Once
}

func newFakeTokenStream(tokens ...string) *fakeTokenStream {
	return &fakeTokenStream{tokens: tokens, closed: make(chan struct{})}
}

func (s *fakeTokenStream) Recv() (string, error) {
	if len(s.tokens) > 0 {
		tok := s.tokens[0]
		s.tokens = s.tokens[1:]
		return tok, nil
	}
	if s.block {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeTokenStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
