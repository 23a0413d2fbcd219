package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM face_embeddings WHERE employee_id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`INSERT INTO face_embeddings \(employee_id, position, embedding\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(int64(7), 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO face_embeddings`).
		WithArgs(int64(7), 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = NewPGStore(mock).Save(context.Background(), 7, []Embedding{{0.5, 0.25}, {1, 2}})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Save_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM face_embeddings`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO face_embeddings`).
		WithArgs(int64(7), 0, pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewPGStore(mock).Save(context.Background(), 7, []Embedding{{1}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert embedding 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Save_DimensionMismatchTouchesNothing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = NewPGStore(mock).Save(context.Background(), 7, []Embedding{{1}, {1, 2}})

	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	first := pgvector.NewVector([]float32{0.5, 0.25})
	second := pgvector.NewVector([]float32{1, 2})
	rows := pgxmock.NewRows([]string{"embedding"}).
		AddRow(&first).
		AddRow(&second)

	mock.ExpectQuery(`SELECT embedding FROM face_embeddings WHERE employee_id = \$1 ORDER BY position`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := NewPGStore(mock).Load(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, []Embedding{{0.5, 0.25}, {1, 2}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_LoadEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT embedding FROM face_embeddings`).
		WithArgs(int64(8)).
		WillReturnRows(pgxmock.NewRows([]string{"embedding"}))

	got, err := NewPGStore(mock).Load(context.Background(), 8)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPGStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM face_embeddings WHERE employee_id = \$1`).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, NewPGStore(mock).Delete(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}
