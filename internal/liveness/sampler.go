// Package liveness keeps only the frames of a clip that directly follow a
// blink, so enrollment images come from a live subject looking at the
// camera with open eyes.
package liveness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"

	"golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/ponto/internal/geometry"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
	"github.com/saturnino-fabrica-de-software/ponto/internal/video"
)

// Config tunes blink detection and sampling cost.
type Config struct {
	// EARThreshold is the eye aspect ratio below which eyes count as closed.
	EARThreshold float64
	// MinConsecutiveFrames is how many closed frames make a blink.
	MinConsecutiveFrames int
	// FrameStride inspects every Nth frame only. Indices in the output
	// still refer to the full stream.
	FrameStride int
	// Downscale shrinks frames by this factor in (0,1] before landmark
	// detection. Saved frames keep full resolution.
	Downscale float64
	// FallbackInterval, when positive, saves every Nth faceless sampled
	// frame as well. Zero keeps the strict blink-only behaviour.
	FallbackInterval int
}

func DefaultConfig() Config {
	return Config{
		EARThreshold:         0.25,
		MinConsecutiveFrames: 2,
		FrameStride:          1,
		Downscale:            1.0,
		FallbackInterval:     0,
	}
}

// SavedFrame is a frame persisted by the sampler.
type SavedFrame struct {
	Path  string
	Index int
	Image image.Image
}

// Result summarises one sampling pass.
type Result struct {
	Frames         []SavedFrame
	Blinks         int
	FramesRead     int
	FramesSampled  int
	FacelessFrames int
}

// Sampler runs blink detection over a frame source.
type Sampler struct {
	detector provider.LandmarkDetector
	config   Config
	logger   *slog.Logger
}

func NewSampler(detector provider.LandmarkDetector, config Config, logger *slog.Logger) *Sampler {
	if config.FrameStride < 1 {
		config.FrameStride = 1
	}
	if config.MinConsecutiveFrames < 1 {
		config.MinConsecutiveFrames = 1
	}
	if config.Downscale <= 0 || config.Downscale > 1 {
		config.Downscale = 1
	}
	return &Sampler{
		detector: detector,
		config:   config,
		logger:   logger.With("component", "liveness"),
	}
}

// Sample consumes src to the end and saves the first open-eye frame after
// every blink through sink. src is always closed.
func (s *Sampler) Sample(ctx context.Context, src video.FrameSource, sink FrameSink) (*Result, error) {
	defer func() {
		if err := src.Close(); err != nil {
			s.logger.WarnContext(ctx, "close frame source", slog.String("error", err.Error()))
		}
	}()

	res := &Result{}
	closed := 0

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read frame %d: %w", index, err)
		}
		res.FramesRead++

		if index%s.config.FrameStride != 0 {
			continue
		}
		res.FramesSampled++

		face, ok, err := s.detect(ctx, frame, index)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.FacelessFrames++
			if s.config.FallbackInterval > 0 && res.FacelessFrames%s.config.FallbackInterval == 0 {
				if err := s.save(ctx, sink, res, frame, index); err != nil {
					return nil, err
				}
			}
			continue
		}

		ear, err := geometry.AverageEAR(face.LeftEye, face.RightEye)
		if err != nil {
			s.logger.DebugContext(ctx, "skipping frame with malformed landmarks",
				slog.Int("frame", index),
				slog.String("error", err.Error()),
			)
			continue
		}

		if ear < s.config.EARThreshold {
			closed++
			continue
		}

		if closed >= s.config.MinConsecutiveFrames {
			res.Blinks++
			if err := s.save(ctx, sink, res, frame, index); err != nil {
				return nil, err
			}
		}
		closed = 0
	}

	s.logger.InfoContext(ctx, "sampling finished",
		slog.Int("frames_read", res.FramesRead),
		slog.Int("frames_sampled", res.FramesSampled),
		slog.Int("faceless", res.FacelessFrames),
		slog.Int("blinks", res.Blinks),
		slog.Int("saved", len(res.Frames)),
	)

	return res, nil
}

// detect returns the first face with both eyes located. Detection errors
// other than cancellation skip the frame.
func (s *Sampler) detect(ctx context.Context, frame image.Image, index int) (provider.FaceLandmarks, bool, error) {
	encoded, err := encodeJPEG(s.shrink(frame), jpegQualityDetection)
	if err != nil {
		return provider.FaceLandmarks{}, false, fmt.Errorf("encode frame %d: %w", index, err)
	}

	faces, err := s.detector.DetectLandmarks(ctx, encoded)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return provider.FaceLandmarks{}, false, ctxErr
		}
		s.logger.WarnContext(ctx, "landmark detection failed",
			slog.Int("frame", index),
			slog.String("error", err.Error()),
		)
		return provider.FaceLandmarks{}, false, nil
	}

	if len(faces) == 0 || !faces[0].HasEyes() {
		return provider.FaceLandmarks{}, false, nil
	}

	if s.config.Downscale < 1 {
		bb := faces[0].BoundingBox
		s.logger.DebugContext(ctx, "face located",
			slog.Int("frame", index),
			slog.Float64("x", bb.X/s.config.Downscale),
			slog.Float64("y", bb.Y/s.config.Downscale),
		)
	}

	return faces[0], true, nil
}

func (s *Sampler) save(ctx context.Context, sink FrameSink, res *Result, frame image.Image, index int) error {
	path, err := sink.Save(ctx, index, frame)
	if err != nil {
		return fmt.Errorf("save frame %d: %w", index, err)
	}
	res.Frames = append(res.Frames, SavedFrame{Path: path, Index: index, Image: frame})
	return nil
}

func (s *Sampler) shrink(frame image.Image) image.Image {
	if s.config.Downscale >= 1 {
		return frame
	}
	return Downscale(frame, s.config.Downscale)
}

// Downscale resizes img by factor with bilinear filtering. Each side keeps
// at least one pixel.
func Downscale(img image.Image, factor float64) image.Image {
	bounds := img.Bounds()
	w := max(1, int(float64(bounds.Dx())*factor))
	h := max(1, int(float64(bounds.Dy())*factor))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

const (
	jpegQualityDetection = 85
	jpegQualityStored    = 95
)

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
