// Package mock provides deterministic face providers for development and
// tests. Nothing here talks to a network service.
package mock

import (
	"context"
	"crypto/sha256"
	"math"
	"sync"

	"github.com/saturnino-fabrica-de-software/ponto/internal/geometry"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

const (
	EmbeddingDimension = 128

	// OpenEAR and ClosedEAR are the aspect ratios produced for open and
	// closed eyes by the scripted detector.
	OpenEAR   = 0.35
	ClosedEAR = 0.1

	// NoFace in a script makes the detector report an empty frame.
	NoFace = -1.0
)

// EmbeddingProvider derives a unit-length embedding from the image bytes,
// so identical images map to identical vectors.
type EmbeddingProvider struct{}

func NewEmbeddingProvider() *EmbeddingProvider {
	return &EmbeddingProvider{}
}

func (p *EmbeddingProvider) Represent(ctx context.Context, image []byte) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, provider.ErrNoFace
	}
	return generateEmbedding(image), nil
}

// generateEmbedding spreads the SHA-256 of the image over the vector and
// normalises it.
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, EmbeddingDimension)

	for i := range embedding {
		seed := hash[i%len(hash)] ^ byte(i*31)
		embedding[i] = (float64(seed)/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

// LandmarkDetector replays a script of eye aspect ratios, one per call.
// A NoFace entry yields no face for that call. Once the script is
// exhausted it either starts over (loop) or keeps returning open eyes.
type LandmarkDetector struct {
	mu     sync.Mutex
	script []float64
	loop   bool
	calls  int
}

func NewLandmarkDetector(script []float64, loop bool) *LandmarkDetector {
	return &LandmarkDetector{script: script, loop: loop}
}

// NewBlinkingDetector blinks (two closed frames) once every period calls.
// Used as the development default so captures produce frames.
func NewBlinkingDetector(period int) *LandmarkDetector {
	if period < 3 {
		period = 3
	}
	script := make([]float64, period)
	for i := range script {
		script[i] = OpenEAR
	}
	script[period-3] = ClosedEAR
	script[period-2] = ClosedEAR
	return NewLandmarkDetector(script, true)
}

func (d *LandmarkDetector) DetectLandmarks(ctx context.Context, image []byte) ([]provider.FaceLandmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ear := d.next()
	if ear == NoFace {
		return nil, nil
	}

	return []provider.FaceLandmarks{{
		BoundingBox: provider.BoundingBox{X: 40, Y: 40, Width: 160, Height: 160},
		LeftEye:     EyeWithEAR(ear, geometry.Point{X: 80, Y: 100}),
		RightEye:    EyeWithEAR(ear, geometry.Point{X: 140, Y: 100}),
	}}, nil
}

// Calls returns how many frames were inspected.
func (d *LandmarkDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *LandmarkDetector) next() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.calls
	d.calls++

	if len(d.script) == 0 {
		return OpenEAR
	}
	if d.loop {
		return d.script[i%len(d.script)]
	}
	if i < len(d.script) {
		return d.script[i]
	}
	return OpenEAR
}

// EyeWithEAR builds a 20px wide six-point eye contour at origin whose
// aspect ratio is exactly ear.
func EyeWithEAR(ear float64, origin geometry.Point) []geometry.Point {
	const width = 20.0
	h := ear * width / 2
	eye := []geometry.Point{
		{X: 0, Y: 0},
		{X: width / 3, Y: -h},
		{X: 2 * width / 3, Y: -h},
		{X: width, Y: 0},
		{X: 2 * width / 3, Y: h},
		{X: width / 3, Y: h},
	}
	for i := range eye {
		eye[i] = eye[i].Translate(origin.X, origin.Y)
	}
	return eye
}

var (
	_ provider.EmbeddingProvider = (*EmbeddingProvider)(nil)
	_ provider.LandmarkDetector  = (*LandmarkDetector)(nil)
)
