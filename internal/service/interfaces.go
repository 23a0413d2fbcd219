package service

import (
	"context"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/attendance"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

type EmployeeRepositoryInterface interface {
	Create(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
	Update(ctx context.Context, employee *domain.Employee) error
	SetFaceDataDir(ctx context.Context, id int64, dir string) error
	Delete(ctx context.Context, id int64) error
}

type AttendanceRepositoryInterface interface {
	List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error)
}

// AttendanceGuard records at most one attendance per employee and day.
type AttendanceGuard interface {
	Mark(ctx context.Context, employeeID int64, now time.Time) (attendance.Outcome, error)
}
