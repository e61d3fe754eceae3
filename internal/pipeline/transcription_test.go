package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"upload-ai/internal/storage"
)

const testVideoID = "0b7f7c3e-4c59-4a0c-9f0e-3f7a1d2b9c11"

func newTestTranscriptionStage(t *testing.T, transcriber *fakeTranscriber) (*TranscriptionStage, *memStore) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewAudioFiles(dir)
	if err != nil {
		t.Fatalf("NewAudioFiles() error = %v", err)
	}
	path := filepath.Join(dir, "lecture-x.mp3")
	if err := os.WriteFile(path, []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := newMemStore()
	store.put(testVideoID, path, nil)
	return NewTranscriptionStage(store, files, transcriber, "pt"), store
}

func TestTranscribeStoresAndReturnsText(t *testing.T) {
	transcriber := &fakeTranscriber{text: "Hello world"}
	stage, store := newTestTranscriptionStage(t, transcriber)

	text, err := stage.Transcribe(context.Background(), testVideoID, "keywords: AI, systems")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "Hello world" {
		t.Fatalf("text = %q, want Hello world", text)
	}

	video, _ := store.GetVideo(context.Background(), testVideoID)
	if video.Transcription == nil || *video.Transcription != "Hello world" {
		t.Fatalf("stored transcription = %v", video.Transcription)
	}

	if transcriber.params.Language != "pt" {
		t.Fatalf("language = %q, want pt", transcriber.params.Language)
	}
	if transcriber.params.Prompt != "keywords: AI, systems" {
		t.Fatalf("prompt = %q", transcriber.params.Prompt)
	}
	if transcriber.params.FileName != "lecture-x.mp3" {
		t.Fatalf("file name = %q", transcriber.params.FileName)
	}
	if transcriber.audio != "mp3-bytes" {
		t.Fatalf("audio = %q, want stored file contents", transcriber.audio)
	}
}

func TestTranscribeUnknownVideo(t *testing.T) {
	transcriber := &fakeTranscriber{text: "unused"}
	stage, store := newTestTranscriptionStage(t, transcriber)

	_, err := stage.Transcribe(context.Background(), "6e0f4f55-0000-4000-8000-000000000000", "")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Transcribe() error = %v, want ErrRecordNotFound", err)
	}
	if store.updates != 0 || transcriber.calls != 0 {
		t.Fatalf("updates = %d, remote calls = %d; want none", store.updates, transcriber.calls)
	}
}

func TestTranscribeRemoteFailure(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("503 service unavailable")}
	stage, store := newTestTranscriptionStage(t, transcriber)

	_, err := stage.Transcribe(context.Background(), testVideoID, "")
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("Transcribe() error = %v, want ErrTranscriptionFailed", err)
	}
	if store.updates != 0 {
		t.Fatalf("updates = %d, want 0", store.updates)
	}
	if transcriber.calls != 1 {
		t.Fatalf("remote calls = %d, want exactly 1 (no retries)", transcriber.calls)
	}
}

func TestTranscribeStoreFailure(t *testing.T) {
	transcriber := &fakeTranscriber{text: "Hello world"}
	stage, store := newTestTranscriptionStage(t, transcriber)
	store.updateErr = errors.New("disk full")

	_, err := stage.Transcribe(context.Background(), testVideoID, "")
	if !errors.Is(err, ErrRecordUpdateFailed) {
		t.Fatalf("Transcribe() error = %v, want ErrRecordUpdateFailed", err)
	}
}

func TestTranscribeMissingAudioFile(t *testing.T) {
	transcriber := &fakeTranscriber{text: "Hello world"}
	stage, store := newTestTranscriptionStage(t, transcriber)
	store.put(testVideoID, filepath.Join(t.TempDir(), "gone.mp3"), nil)

	_, err := stage.Transcribe(context.Background(), testVideoID, "")
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("Transcribe() error = %v, want ErrTranscriptionFailed", err)
	}
	if transcriber.calls != 0 {
		t.Fatal("remote must not be called without audio")
	}
}
