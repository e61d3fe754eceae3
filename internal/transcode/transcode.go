// Package transcode turns a video container into a compact mono audio track
// before anything is sent over the network.
package transcode

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUnsupportedMedia is returned when the input carries no audio track.
	ErrUnsupportedMedia = errors.New("transcode: input has no audio track")
	// ErrEngine is returned when the codec engine cannot be started.
	ErrEngine = errors.New("transcode: engine unavailable")
)

// Transcoder converts video to compressed audio in the caller's process.
//
// Progress, when non-nil, receives fractions in [0, 1] that never decrease.
// Sends never block: a subscriber that falls behind misses intermediate
// values. The channel is not closed by the transcoder.
type Transcoder interface {
	Transcode(ctx context.Context, video io.Reader, progress chan<- float64) ([]byte, error)
}

// progressReporter enforces monotonic, non-blocking progress delivery.
type progressReporter struct {
	ch   chan<- float64
	last float64
}

func (p *progressReporter) report(fraction float64) {
	if p.ch == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction <= p.last {
		return
	}
	p.last = fraction
	select {
	case p.ch <- fraction:
	default:
	}
}
