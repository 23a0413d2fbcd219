package embedding

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// PgxPool is the subset of pgxpool.Pool used by PGStore.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore keeps embeddings in the face_embeddings table as pgvector
// columns, one row per vector. Values round-trip at float32 precision.
type PGStore struct {
	pool PgxPool
}

func NewPGStore(pool PgxPool) *PGStore {
	return &PGStore{pool: pool}
}

// Save replaces the employee's rows in a single transaction.
func (s *PGStore) Save(ctx context.Context, employeeID int64, embeddings []Embedding) error {
	if _, err := dimension(embeddings); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save embeddings: %w", err)
	}
	defer func() {
		// no-op after commit
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM face_embeddings WHERE employee_id = $1`, employeeID); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}

	query := `
		INSERT INTO face_embeddings (employee_id, position, embedding)
		VALUES ($1, $2, $3)
	`
	for i, e := range embeddings {
		vec := toVector(e)
		if _, err := tx.Exec(ctx, query, employeeID, i, &vec); err != nil {
			return fmt.Errorf("insert embedding %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit embeddings: %w", err)
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context, employeeID int64) ([]Embedding, error) {
	query := `
		SELECT embedding
		FROM face_embeddings
		WHERE employee_id = $1
		ORDER BY position
	`

	rows, err := s.pool.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	set := []Embedding{}
	for rows.Next() {
		var vec *pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if vec == nil {
			continue
		}
		set = append(set, fromVector(*vec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return set, nil
}

func (s *PGStore) Delete(ctx context.Context, employeeID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM face_embeddings WHERE employee_id = $1`, employeeID); err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}

func toVector(e Embedding) pgvector.Vector {
	floats := make([]float32, len(e))
	for i, v := range e {
		floats[i] = float32(v)
	}
	return pgvector.NewVector(floats)
}

func fromVector(v pgvector.Vector) Embedding {
	slice := v.Slice()
	out := make(Embedding, len(slice))
	for i, f := range slice {
		out[i] = float64(f)
	}
	return out
}
