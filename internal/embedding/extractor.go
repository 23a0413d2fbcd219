package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"

	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

const jpegQuality = 95

// Extractor turns face images into embeddings through an EmbeddingProvider.
type Extractor struct {
	provider provider.EmbeddingProvider
	logger   *slog.Logger
}

func NewExtractor(p provider.EmbeddingProvider, logger *slog.Logger) *Extractor {
	return &Extractor{
		provider: p,
		logger:   logger.With("component", "embedding_extractor"),
	}
}

// Extract encodes img as JPEG and asks the provider for its embedding.
// ok is false when no face was found.
func (e *Extractor) Extract(ctx context.Context, img image.Image) (Embedding, bool, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, false, fmt.Errorf("encode jpeg: %w", err)
	}
	return e.represent(ctx, buf.Bytes())
}

// ExtractFile embeds an image file already stored on disk.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (Embedding, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from the capture directory
	if err != nil {
		return nil, false, fmt.Errorf("read image: %w", err)
	}
	return e.represent(ctx, data)
}

func (e *Extractor) represent(ctx context.Context, data []byte) (Embedding, bool, error) {
	vec, err := e.provider.Represent(ctx, data)
	if errors.Is(err, provider.ErrNoFace) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("represent: %w", err)
	}
	if len(vec) == 0 {
		return nil, false, nil
	}
	return Embedding(vec), true, nil
}

// ExtractAll embeds every frame in order. Frames without a face or that
// fail are logged and skipped, so the result may be shorter than frames
// or empty. It stops early only when ctx is done.
func (e *Extractor) ExtractAll(ctx context.Context, frames []image.Image) []Embedding {
	out := make([]Embedding, 0, len(frames))
	for i, frame := range frames {
		if ctx.Err() != nil {
			e.logger.WarnContext(ctx, "extraction interrupted",
				slog.Int("done", i),
				slog.Int("total", len(frames)),
			)
			break
		}

		emb, ok, err := e.Extract(ctx, frame)
		if err != nil {
			e.logger.WarnContext(ctx, "embedding extraction failed",
				slog.Int("frame", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			e.logger.DebugContext(ctx, "no face in frame", slog.Int("frame", i))
			continue
		}
		out = append(out, emb)
	}
	return out
}

// ExtractFiles is ExtractAll for images on disk.
func (e *Extractor) ExtractFiles(ctx context.Context, paths []string) []Embedding {
	out := make([]Embedding, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}

		emb, ok, err := e.ExtractFile(ctx, path)
		if err != nil {
			e.logger.WarnContext(ctx, "embedding extraction failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			out = append(out, emb)
		}
	}
	return out
}
