package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// PgxPool is satisfied by *pgxpool.Pool and by pgxmock pools.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EmployeeRepositoryInterface defines operations for employee data access
type EmployeeRepositoryInterface interface {
	Create(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
	Update(ctx context.Context, employee *domain.Employee) error
	SetFaceDataDir(ctx context.Context, id int64, dir string) error
	Delete(ctx context.Context, id int64) error
}

// AttendanceRepositoryInterface defines operations for attendance data access
type AttendanceRepositoryInterface interface {
	FindOnDate(ctx context.Context, employeeID int64, date time.Time) (*domain.Attendance, error)
	Create(ctx context.Context, attendance *domain.Attendance) error
	List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error)
}
