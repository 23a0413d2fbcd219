// Package video turns an uploaded clip into a sequence of decoded frames.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
)

// ErrNoFrame is returned when a video yields no decodable frame at all.
var ErrNoFrame = errors.New("no decodable frame in video")

// FrameSource yields frames in presentation order. Next returns io.EOF
// once the stream is exhausted. Close must always be called.
type FrameSource interface {
	Next() (image.Image, error)
	Close() error
}

// Opener starts decoding the video stored at path.
type Opener interface {
	Open(ctx context.Context, path string) (FrameSource, error)
}

// FirstFrame decodes only the first frame of the video at path.
func FirstFrame(ctx context.Context, opener Opener, path string) (img image.Image, err error) {
	src, err := opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer func() {
		// the decoder is stopped early on purpose, so its exit status is noise
		_ = src.Close()
	}()

	img, err = src.Next()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoFrame
	}
	if err != nil {
		return nil, fmt.Errorf("first frame: %w", err)
	}
	return img, nil
}

// SliceSource serves frames from memory.
type SliceSource struct {
	frames []image.Image
	pos    int
	closed bool
}

func NewSliceSource(frames ...image.Image) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next() (image.Image, error) {
	if s.closed || s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	img := s.frames[s.pos]
	s.pos++
	return img, nil
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceSource) Closed() bool {
	return s.closed
}

// SliceOpener opens a fresh SliceSource over the same frames for any path.
// Err, when set, is returned from Open instead.
type SliceOpener struct {
	Frames []image.Image
	Err    error

	// Opened records every source handed out, in order.
	Opened []*SliceSource
}

func (o *SliceOpener) Open(ctx context.Context, _ string) (FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.Err != nil {
		return nil, o.Err
	}
	src := NewSliceSource(o.Frames...)
	o.Opened = append(o.Opened, src)
	return src, nil
}
