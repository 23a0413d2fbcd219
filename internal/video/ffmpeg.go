package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpegOpener decodes any container ffmpeg understands (WebM from browser
// recorders in particular) by streaming frames as PNG over a pipe.
type FFmpegOpener struct {
	// Path is the ffmpeg binary, "ffmpeg" resolves through PATH.
	Path string
	// MaxDuration caps how much of the clip is decoded. Zero means no cap.
	MaxDuration time.Duration
}

func NewFFmpegOpener(path string, maxDuration time.Duration) *FFmpegOpener {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegOpener{Path: path, MaxDuration: maxDuration}
}

func (o *FFmpegOpener) args(path string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-i", path}
	if o.MaxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(o.MaxDuration.Seconds(), 'f', 3, 64))
	}
	return append(args, "-f", "image2pipe", "-vcodec", "png", "-")
}

// Open starts ffmpeg. The process is killed when ctx is cancelled or when
// the source is closed, whichever happens first.
func (o *FFmpegOpener) Open(ctx context.Context, path string) (FrameSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}

	cmd := exec.CommandContext(ctx, o.Path, o.args(path)...) //nolint:gosec // path is generated server side
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &ffmpegSource{
		ctx:    ctx,
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, 1<<20),
		stderr: stderr,
	}, nil
}

type ffmpegSource struct {
	ctx    context.Context
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr *bytes.Buffer

	frames int
	eof    bool
	closed bool
}

func (s *ffmpegSource) Next() (image.Image, error) {
	if s.closed || s.eof {
		return nil, io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}

	img, err := png.Decode(s.reader)
	if err != nil {
		// a truncated upload ends the stream rather than failing it
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.eof = true
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode frame %d: %w", s.frames, err)
	}

	s.frames++
	return img, nil
}

// Close stops ffmpeg and reaps it. An exit error is reported only when
// the stream ran to its end without yielding a single frame.
func (s *ffmpegSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	killed := false
	if !s.eof {
		_ = s.cmd.Process.Kill()
		killed = true
	}
	_ = s.stdout.Close()

	err := s.cmd.Wait()
	if err == nil || killed || s.frames > 0 {
		return nil
	}
	return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(s.stderr.String()))
}
