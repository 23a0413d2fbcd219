//go:build dlib

// Package dlib computes 128-d face descriptors in-process with dlib's
// ResNet model through go-face. Requires cgo and the dlib libraries, so it
// is only built with the "dlib" tag.
package dlib

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

// Provider implements provider.EmbeddingProvider with a local recognizer.
type Provider struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewProvider loads the dlib models from modelDir (shape_predictor_5,
// dlib_face_recognition_resnet_model_v1 and mmod_human_face_detector).
func NewProvider(modelDir string) (*Provider, error) {
	rec, err := face.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", modelDir, err)
	}
	return &Provider{rec: rec}, nil
}

// Represent encodes the first face in a JPEG image.
func (p *Provider) Represent(ctx context.Context, image []byte) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the recognizer wraps a single dlib net and is not safe for concurrent use
	p.mu.Lock()
	f, err := p.rec.RecognizeSingle(image)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	if f == nil {
		return nil, provider.ErrNoFace
	}

	embedding := make([]float64, len(f.Descriptor))
	for i, v := range f.Descriptor {
		embedding[i] = float64(v)
	}
	return embedding, nil
}

func (p *Provider) Close() {
	p.rec.Close()
}

var _ provider.EmbeddingProvider = (*Provider)(nil)
