// Package embedding computes face descriptors and persists them per
// employee.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Embedding is a fixed-length face descriptor.
type Embedding []float64

var (
	// ErrCorrupt is returned when a stored artifact cannot be decoded.
	ErrCorrupt = errors.New("embedding artifact is corrupt")
	// ErrDimensionMismatch is returned when a set mixes vector lengths.
	ErrDimensionMismatch = errors.New("embeddings have different dimensions")
)

// Store persists the embedding set of each employee. Save replaces any
// previous set; Load of an employee without data returns an empty slice;
// Delete is idempotent.
type Store interface {
	Save(ctx context.Context, employeeID int64, embeddings []Embedding) error
	Load(ctx context.Context, employeeID int64) ([]Embedding, error)
	Delete(ctx context.Context, employeeID int64) error
}

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// NewStore returns the Store for backend. dir is used by the file
// backend and pool by the postgres one.
func NewStore(backend, dir string, pool PgxPool) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(dir), nil
	case BackendPostgres:
		if pool == nil {
			return nil, errors.New("postgres embedding store needs a database pool")
		}
		return NewPGStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s", backend)
	}
}

// dimension returns the shared vector length of set.
func dimension(set []Embedding) (int, error) {
	if len(set) == 0 {
		return 0, nil
	}
	dim := len(set[0])
	for _, e := range set[1:] {
		if len(e) != dim {
			return 0, ErrDimensionMismatch
		}
	}
	return dim, nil
}
