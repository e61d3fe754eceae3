package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"upload-ai/internal/i18n"
	"upload-ai/internal/session"
	"upload-ai/internal/transcode"
)

type fakeTranscoder struct {
	audio []byte
	err   error
}

func (f *fakeTranscoder) Transcode(ctx context.Context, video io.Reader, progress chan<- float64) ([]byte, error) {
	io.Copy(io.Discard, video)
	if progress != nil {
		progress <- 0.5
		progress <- 1
	}
	return f.audio, f.err
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lecture.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newAPI(t *testing.T, transcriptionStatus int) (*httptest.Server, *string) {
	t.Helper()
	var uploadedName string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /videos", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		}
		uploadedName = header.Filename
		fmt.Fprint(w, `{"id":"3f1c","name":"lecture.mp3","path":"tmp/x.mp3","transcription":null}`)
	})
	mux.HandleFunc("POST /videos/{videoId}/transcription", func(w http.ResponseWriter, r *http.Request) {
		if transcriptionStatus != http.StatusOK {
			w.WriteHeader(transcriptionStatus)
			fmt.Fprint(w, `{"error":"Transcription error."}`)
			return
		}
		fmt.Fprint(w, `{"transcription":"Hello world"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &uploadedName
}

func recordTransitions(m *session.Machine) func() []session.Status {
	var mu sync.Mutex
	var seen []session.Status
	m.OnChange(func(_, to session.Status) {
		mu.Lock()
		seen = append(seen, to)
		mu.Unlock()
	})
	return func() []session.Status {
		mu.Lock()
		defer mu.Unlock()
		return append([]session.Status(nil), seen...)
	}
}

func TestSubmitWalksEveryStatus(t *testing.T) {
	srv, uploadedName := newAPI(t, http.StatusOK)
	runner := NewRunner(New(srv.URL, nil), &fakeTranscoder{audio: []byte("mp3")}, i18n.NewTranslator("en"))
	m := session.NewMachine("test")
	transitions := recordTransitions(m)

	video, err := runner.Submit(context.Background(), m, Submission{VideoPath: writeVideo(t), Prompt: "AI"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if video.Transcription == nil || *video.Transcription != "Hello world" {
		t.Fatalf("transcription = %v", video.Transcription)
	}
	if *uploadedName != "lecture.mp3" {
		t.Fatalf("uploaded name = %q, want lecture.mp3", *uploadedName)
	}

	want := []session.Status{session.StatusConverting, session.StatusUploading, session.StatusGenerating, session.StatusSuccess}
	got := transitions()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
}

func TestSubmitStopsOnFailedStage(t *testing.T) {
	t.Run("conversion", func(t *testing.T) {
		srv, _ := newAPI(t, http.StatusOK)
		runner := NewRunner(New(srv.URL, nil), &fakeTranscoder{err: transcode.ErrUnsupportedMedia}, i18n.NewTranslator("en"))
		m := session.NewMachine("test")

		_, err := runner.Submit(context.Background(), m, Submission{VideoPath: writeVideo(t)})
		if !errors.Is(err, transcode.ErrUnsupportedMedia) {
			t.Fatalf("Submit() error = %v", err)
		}
		if m.Status() != session.StatusConverting {
			t.Fatalf("status = %s, want converting", m.Status())
		}
	})

	t.Run("transcription", func(t *testing.T) {
		srv, _ := newAPI(t, http.StatusBadGateway)
		runner := NewRunner(New(srv.URL, nil), &fakeTranscoder{audio: []byte("mp3")}, i18n.NewTranslator("en"))
		m := session.NewMachine("test")

		_, err := runner.Submit(context.Background(), m, Submission{VideoPath: writeVideo(t)})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
			t.Fatalf("Submit() error = %v", err)
		}
		if m.Status() != session.StatusGenerating {
			t.Fatalf("status = %s, want generating", m.Status())
		}
	})
}

func TestSubmitRejectsBusyMachine(t *testing.T) {
	srv, _ := newAPI(t, http.StatusOK)
	runner := NewRunner(New(srv.URL, nil), &fakeTranscoder{audio: []byte("mp3")}, i18n.NewTranslator("en"))
	m := session.NewMachine("test")
	if err := m.Begin(); err != nil {
		t.Fatal(err)
	}

	_, err := runner.Submit(context.Background(), m, Submission{VideoPath: writeVideo(t)})
	if !errors.Is(err, session.ErrBusy) {
		t.Fatalf("Submit() error = %v, want ErrBusy", err)
	}
}

func TestSubmitMissingVideoLeavesMachineWaiting(t *testing.T) {
	runner := NewRunner(New("http://127.0.0.1:0", nil), &fakeTranscoder{}, i18n.NewTranslator("en"))
	m := session.NewMachine("test")

	if _, err := runner.Submit(context.Background(), m, Submission{VideoPath: filepath.Join(t.TempDir(), "missing.mp4")}); err == nil {
		t.Fatal("expected error for missing video")
	}
	if !m.Accepting() {
		t.Fatalf("status = %s, want waiting", m.Status())
	}
}
