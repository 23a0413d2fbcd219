//go:build gocv

package video

import (
	"context"
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"
)

// GoCVOpener decodes through OpenCV's VideoCapture. Built only with the
// "gocv" tag since it needs the OpenCV shared libraries.
type GoCVOpener struct{}

func (GoCVOpener) Open(ctx context.Context, path string) (FrameSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return &gocvSource{ctx: ctx, vc: vc, mat: gocv.NewMat()}, nil
}

type gocvSource struct {
	ctx    context.Context
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

func (s *gocvSource) Next() (image.Image, error) {
	if s.closed {
		return nil, io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, io.EOF
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

func (s *gocvSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.mat.Close()
	return s.vc.Close()
}
