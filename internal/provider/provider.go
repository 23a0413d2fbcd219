package provider

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/ponto/internal/geometry"
)

// ErrNoFace is returned when a provider finds no usable face in an image.
var ErrNoFace = errors.New("no face found in image")

// LandmarkDetector locates faces and their eye contours in an encoded image.
type LandmarkDetector interface {
	// DetectLandmarks returns one entry per detected face. An empty slice
	// (not an error) means no face was found.
	DetectLandmarks(ctx context.Context, image []byte) ([]FaceLandmarks, error)
}

// EmbeddingProvider turns a face image into a fixed-length descriptor.
type EmbeddingProvider interface {
	// Represent returns the descriptor of the first face in the image,
	// or ErrNoFace if no face could be encoded.
	Represent(ctx context.Context, image []byte) ([]float64, error)
}

// FaceLandmarks holds the eye contours of one detected face. Each eye is
// either empty (not located) or six points in canonical order.
type FaceLandmarks struct {
	BoundingBox BoundingBox      `json:"bounding_box"`
	LeftEye     []geometry.Point `json:"left_eye,omitempty"`
	RightEye    []geometry.Point `json:"right_eye,omitempty"`
}

// HasEyes reports whether both eye contours were located.
func (f FaceLandmarks) HasEyes() bool {
	return len(f.LeftEye) > 0 && len(f.RightEye) > 0
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
