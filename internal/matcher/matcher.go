// Package matcher compares a live face embedding against enrolled ones.
package matcher

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
)

// DefaultTolerance is the Euclidean distance below which two dlib
// descriptors are considered the same person.
const DefaultTolerance = 0.6

// Strategy decides which candidate wins when several are within tolerance.
type Strategy string

const (
	// StrategyFirst takes the first candidate in iteration order.
	StrategyFirst Strategy = "first"
	// StrategyBest takes the globally nearest candidate.
	StrategyBest Strategy = "best"
)

func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case StrategyFirst, StrategyBest:
		return s, nil
	case "":
		return StrategyFirst, nil
	default:
		return "", fmt.Errorf("unknown match strategy: %s (supported: first, best)", name)
	}
}

// Find runs the strategy. The zero value behaves as StrategyFirst.
func (s Strategy) Find(live embedding.Embedding, candidates []Candidate, tolerance float64) (Result, bool) {
	if s == StrategyBest {
		return BestMatch(live, candidates, tolerance)
	}
	return Match(live, candidates, tolerance)
}

// Candidate is an enrolled employee and their stored embeddings.
type Candidate struct {
	EmployeeID int64
	Embeddings []embedding.Embedding
}

// Result identifies the matched employee and the winning distance.
type Result struct {
	EmployeeID int64
	Distance   float64
}

// CandidateSource lists enrolled employees in match order.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]Candidate, error)
}

// EuclideanDistance returns +Inf when the vectors differ in length.
func EuclideanDistance(a, b embedding.Embedding) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2)
}

// Match walks candidates in order and returns the first one holding any
// embedding within tolerance of live. A later candidate that is closer
// does not win.
func Match(live embedding.Embedding, candidates []Candidate, tolerance float64) (Result, bool) {
	for _, c := range candidates {
		if d, ok := closest(live, c.Embeddings); ok && d <= tolerance {
			return Result{EmployeeID: c.EmployeeID, Distance: d}, true
		}
	}
	return Result{}, false
}

// BestMatch returns the candidate with the globally smallest distance,
// provided it is within tolerance. Ties keep the earlier candidate.
func BestMatch(live embedding.Embedding, candidates []Candidate, tolerance float64) (Result, bool) {
	best := Result{Distance: math.Inf(1)}
	found := false
	for _, c := range candidates {
		d, ok := closest(live, c.Embeddings)
		if !ok || d > tolerance || d >= best.Distance {
			continue
		}
		best = Result{EmployeeID: c.EmployeeID, Distance: d}
		found = true
	}
	if !found {
		return Result{}, false
	}
	return best, true
}

func closest(live embedding.Embedding, set []embedding.Embedding) (float64, bool) {
	nearest := math.Inf(1)
	for _, e := range set {
		if d := EuclideanDistance(live, e); d < nearest {
			nearest = d
		}
	}
	return nearest, !math.IsInf(nearest, 1)
}
