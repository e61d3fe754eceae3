package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Output settings for upload: mono, ~20 kbit/s MP3.
const (
	audioBitrate  = "20k"
	audioChannels = "1"
	audioCodec    = "libmp3lame"
	stderrTailLen = 20
)

var (
	reDuration = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	reTime     = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return cmd.Wait()
}

// FFmpeg transcodes with a local ffmpeg binary, keeping the output in memory.
type FFmpeg struct {
	binary   string
	runner   commandRunner
	lookPath func(string) (string, error)
}

func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary, runner: execRunner{}, lookPath: exec.LookPath}
}

func (f *FFmpeg) Transcode(ctx context.Context, video io.Reader, progress chan<- float64) ([]byte, error) {
	bin, err := f.lookPath(f.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}

	// A seekable file lets ffmpeg find an index stored at the end of the
	// container; anything else is piped through stdin.
	input, stdin := "pipe:0", video
	if file, ok := video.(*os.File); ok {
		if _, statErr := os.Stat(file.Name()); statErr == nil {
			input, stdin = file.Name(), nil
		}
	}

	var out bytes.Buffer
	pr, pw := io.Pipe()
	diag := &diagnostics{reporter: &progressReporter{ch: progress}}

	var g errgroup.Group
	g.Go(func() error {
		err := f.runner.Run(ctx, bin, buildArgs(input, stdin == nil), stdin, &out, pw)
		pw.Close()
		return err
	})
	g.Go(func() error {
		diag.consume(pr)
		return nil
	})

	if err := g.Wait(); err != nil {
		switch {
		case errors.Is(err, ErrEngine):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case diag.noAudio:
			return nil, ErrUnsupportedMedia
		default:
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, diag.tailString())
		}
	}
	if out.Len() == 0 {
		return nil, ErrUnsupportedMedia
	}

	diag.reporter.report(1)
	log.Printf("Transcode finished: %d bytes of audio", out.Len())
	return out.Bytes(), nil
}

func buildArgs(input string, fromFile bool) []string {
	args := []string{"-hide_banner"}
	if fromFile {
		args = append(args, "-nostdin")
	}
	return append(args,
		"-i", input,
		"-map", "0:a:0",
		"-vn",
		"-ac", audioChannels,
		"-b:a", audioBitrate,
		"-acodec", audioCodec,
		"-f", "mp3",
		"pipe:1",
	)
}

// diagnostics reads ffmpeg's stderr, turning status lines into progress and
// remembering the tail for error messages.
type diagnostics struct {
	reporter *progressReporter
	duration float64
	noAudio  bool
	tail     []string
}

func (d *diagnostics) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Split(splitLines)
	for scanner.Scan() {
		d.handle(scanner.Text())
	}
	// Keep draining so ffmpeg never blocks on a full stderr pipe.
	io.Copy(io.Discard, r)
}

func (d *diagnostics) handle(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	d.tail = append(d.tail, line)
	if len(d.tail) > stderrTailLen {
		d.tail = d.tail[1:]
	}

	if strings.Contains(line, "matches no streams") || strings.Contains(line, "does not contain any stream") {
		d.noAudio = true
	}

	if d.duration == 0 {
		if m := reDuration.FindStringSubmatch(line); m != nil {
			d.duration = clockSeconds(m[1], m[2], m[3])
		}
	}
	if d.duration > 0 {
		if m := reTime.FindStringSubmatch(line); m != nil {
			d.reporter.report(clockSeconds(m[1], m[2], m[3]) / d.duration)
		}
	}
}

func (d *diagnostics) tailString() string {
	if len(d.tail) > 3 {
		return strings.Join(d.tail[len(d.tail)-3:], "; ")
	}
	return strings.Join(d.tail, "; ")
}

func clockSeconds(h, m, s string) float64 {
	hours, _ := strconv.ParseFloat(h, 64)
	minutes, _ := strconv.ParseFloat(m, 64)
	seconds, _ := strconv.ParseFloat(s, 64)
	return hours*3600 + minutes*60 + seconds
}

// splitLines splits on \n and on the bare \r ffmpeg uses to redraw its status line.
func splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
