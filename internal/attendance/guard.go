// Package attendance enforces one attendance record per employee per
// UTC day.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// Status is the result of a Mark call.
type Status int

const (
	Recorded Status = iota + 1
	AlreadyMarked
)

func (s Status) String() string {
	switch s {
	case Recorded:
		return "recorded"
	case AlreadyMarked:
		return "already_marked"
	default:
		return "unknown"
	}
}

// Outcome carries the new record for Recorded, or the existing one for
// AlreadyMarked.
type Outcome struct {
	Status Status
	Record domain.Attendance
}

// Store is the persistence the guard needs.
type Store interface {
	FindOnDate(ctx context.Context, employeeID int64, date time.Time) (*domain.Attendance, error)
	Create(ctx context.Context, attendance *domain.Attendance) error
}

type Guard struct {
	store  Store
	locker Locker
	logger *slog.Logger
}

func NewGuard(store Store, locker Locker, logger *slog.Logger) *Guard {
	return &Guard{
		store:  store,
		locker: locker,
		logger: logger.With("component", "attendance_guard"),
	}
}

// Mark records attendance for employeeID at now unless a record already
// exists for the UTC date of now. The lookup and insert run under the
// employee's lock; a unique violation from a writer outside the lock is
// reported as AlreadyMarked with the winning record.
func (g *Guard) Mark(ctx context.Context, employeeID int64, now time.Time) (Outcome, error) {
	release, err := g.locker.Lock(ctx, employeeID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lock employee %d: %w", employeeID, err)
	}
	defer release()

	existing, err := g.store.FindOnDate(ctx, employeeID, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("find attendance: %w", err)
	}
	if existing != nil {
		return Outcome{Status: AlreadyMarked, Record: *existing}, nil
	}

	record := domain.Attendance{
		EmployeeID: employeeID,
		Timestamp:  now.UTC(),
		Date:       domain.DateOf(now),
	}
	err = g.store.Create(ctx, &record)
	if errors.Is(err, domain.ErrAlreadyMarkedToday) {
		g.logger.InfoContext(ctx, "attendance inserted concurrently",
			slog.Int64("employee_id", employeeID),
		)
		existing, findErr := g.store.FindOnDate(ctx, employeeID, now)
		if findErr != nil {
			return Outcome{}, fmt.Errorf("find attendance after conflict: %w", findErr)
		}
		if existing == nil {
			return Outcome{}, fmt.Errorf("attendance for employee %d conflicted but is missing: %w", employeeID, err)
		}
		return Outcome{Status: AlreadyMarked, Record: *existing}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("create attendance: %w", err)
	}

	return Outcome{Status: Recorded, Record: record}, nil
}
