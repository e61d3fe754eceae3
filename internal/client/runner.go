package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"upload-ai/internal/i18n"
	"upload-ai/internal/models"
	"upload-ai/internal/session"
	"upload-ai/internal/transcode"
)

// Submission is one video plus the keyword prompt that guides transcription.
type Submission struct {
	VideoPath string
	Prompt    string
}

// Runner drives a submission through the session machine: convert the video
// locally, upload the audio, then request the transcription.
type Runner struct {
	client     *Client
	transcoder transcode.Transcoder
	tr         *i18n.Translator
}

func NewRunner(client *Client, transcoder transcode.Transcoder, tr *i18n.Translator) *Runner {
	return &Runner{client: client, transcoder: transcoder, tr: tr}
}

// Submit runs the pipeline and returns the transcribed record. On failure the
// machine stays on the stage that failed.
func (r *Runner) Submit(ctx context.Context, m *session.Machine, sub Submission) (*models.VideoRecord, error) {
	video, err := os.Open(sub.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer video.Close()

	m.OnChange(func(_, to session.Status) {
		log.Println(r.tr.T("status_" + string(to)))
	})
	if err := m.Begin(); err != nil {
		return nil, err
	}

	audio, err := r.convert(ctx, video)
	if err != nil {
		return nil, err
	}

	if err := m.Advance(session.StatusUploading); err != nil {
		return nil, err
	}
	record, err := r.client.Upload(ctx, audioFileName(sub.VideoPath), bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	if err := m.Advance(session.StatusGenerating); err != nil {
		return nil, err
	}
	text, err := r.client.Transcribe(ctx, record.ID, sub.Prompt)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	record.Transcription = &text

	if err := m.Advance(session.StatusSuccess); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Runner) convert(ctx context.Context, video *os.File) ([]byte, error) {
	progress := make(chan float64, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			log.Println(r.tr.T("convert_progress", map[string]any{"Percent": int(p * 100)}))
		}
	}()

	audio, err := r.transcoder.Transcode(ctx, video, progress)
	close(progress)
	<-done
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}
	return audio, nil
}

// Generate runs the completion for an already transcribed video.
func (r *Runner) Generate(ctx context.Context, videoID, template string, temperature float64, w io.Writer) error {
	return r.client.Complete(ctx, videoID, template, temperature, w)
}

func audioFileName(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".mp3"
}
