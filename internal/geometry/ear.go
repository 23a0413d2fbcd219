// Package geometry holds the landmark math used by the liveness sampler.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedLandmarks is returned when an eye contour does not have the
// canonical six points or has a degenerate width.
var ErrMalformedLandmarks = errors.New("malformed eye landmarks")

// EyePoints is the number of points in a canonical eye contour:
// outer corner, two upper lid points, inner corner, two lower lid points.
const EyePoints = 6

// Point is a 2D landmark coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Translate returns p shifted by (dx, dy).
func (p Point) Translate(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Scale returns p multiplied by factor around the origin.
func (p Point) Scale(factor float64) Point {
	return Point{X: p.X * factor, Y: p.Y * factor}
}

// Rotate returns p rotated by theta radians around the origin.
func (p Point) Rotate(theta float64) Point {
	sin, cos := math.Sincos(theta)
	return Point{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
	}
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2 * |p1-p4|).
// The ratio drops towards zero as the eyelid closes.
func EyeAspectRatio(eye []Point) (float64, error) {
	if len(eye) != EyePoints {
		return 0, fmt.Errorf("%w: got %d points, want %d", ErrMalformedLandmarks, len(eye), EyePoints)
	}

	a := Distance(eye[1], eye[5])
	b := Distance(eye[2], eye[4])
	c := Distance(eye[0], eye[3])

	if c == 0 {
		return 0, fmt.Errorf("%w: zero eye width", ErrMalformedLandmarks)
	}

	return (a + b) / (2.0 * c), nil
}

// AverageEAR averages the aspect ratio of both eyes.
func AverageEAR(left, right []Point) (float64, error) {
	l, err := EyeAspectRatio(left)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}

	r, err := EyeAspectRatio(right)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}

	return (l + r) / 2.0, nil
}
