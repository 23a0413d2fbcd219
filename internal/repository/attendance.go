package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

type AttendanceRepository struct {
	pool PgxPool
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// FindOnDate returns the employee's record for the UTC date of date, or
// nil when there is none.
func (r *AttendanceRepository) FindOnDate(ctx context.Context, employeeID int64, date time.Time) (*domain.Attendance, error) {
	query := `
		SELECT id, employee_id, marked_at, attendance_date
		FROM attendance
		WHERE employee_id = $1 AND attendance_date = $2
	`

	var attendance domain.Attendance
	err := r.pool.QueryRow(ctx, query, employeeID, domain.DateOf(date)).Scan(
		&attendance.ID,
		&attendance.EmployeeID,
		&attendance.Timestamp,
		&attendance.Date,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}

	return &attendance, nil
}

// Create inserts a record. The unique (employee_id, attendance_date)
// index turns a second insert for the same day into ErrAlreadyMarkedToday.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *domain.Attendance) error {
	query := `
		INSERT INTO attendance (employee_id, marked_at, attendance_date)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	attendance.Timestamp = attendance.Timestamp.UTC()
	attendance.Date = domain.DateOf(attendance.Timestamp)

	err := r.pool.QueryRow(ctx, query,
		attendance.EmployeeID,
		attendance.Timestamp,
		attendance.Date,
	).Scan(&attendance.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyMarkedToday.WithError(err)
		}
		return fmt.Errorf("create attendance: %w", err)
	}

	return nil
}

// List returns attendance joined with employees, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT a.id, a.employee_id, e.name, e.department, a.marked_at
		FROM attendance a
		INNER JOIN employees e ON e.id = a.employee_id
		WHERE ($1::date IS NULL OR a.attendance_date = $1::date)
		  AND ($2 = '' OR e.name ILIKE '%' || $2 || '%' ESCAPE '\')
		ORDER BY a.marked_at DESC, a.id DESC
	`

	var date *time.Time
	if filter.Date != nil {
		d := domain.DateOf(*filter.Date)
		date = &d
	}

	rows, err := r.pool.Query(ctx, query, date, escapeLike(filter.EmployeeName))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	records := []domain.AttendanceRecord{}
	for rows.Next() {
		var record domain.AttendanceRecord
		if err := rows.Scan(
			&record.AttendanceID,
			&record.EmployeeID,
			&record.Name,
			&record.Department,
			&record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}

	return records, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(strings.TrimSpace(s))
}

var _ AttendanceRepositoryInterface = (*AttendanceRepository)(nil)
