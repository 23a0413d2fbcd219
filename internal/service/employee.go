package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
)

type EmployeeService struct {
	employees   EmployeeRepositoryInterface
	store       embedding.Store
	capturesDir string
	audit       audit.Logger
	logger      *slog.Logger
}

func NewEmployeeService(
	employees EmployeeRepositoryInterface,
	store embedding.Store,
	capturesDir string,
	auditLogger audit.Logger,
	logger *slog.Logger,
) *EmployeeService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &EmployeeService{
		employees:   employees,
		store:       store,
		capturesDir: capturesDir,
		audit:       auditLogger,
		logger:      logger.With("component", "employees"),
	}
}

func (s *EmployeeService) Create(ctx context.Context, input domain.EmployeeInput) (*domain.Employee, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var employee domain.Employee
	input.Apply(&employee)
	if err := s.employees.Create(ctx, &employee); err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, audit.Event{
		EmployeeID: employee.ID,
		EventType:  audit.EventEmployeeCreated,
		Success:    true,
	})
	return &employee, nil
}

func (s *EmployeeService) Get(ctx context.Context, id int64) (*domain.Employee, error) {
	return s.employees.GetByID(ctx, id)
}

func (s *EmployeeService) List(ctx context.Context) ([]domain.Employee, error) {
	return s.employees.List(ctx)
}

func (s *EmployeeService) Update(ctx context.Context, id int64, input domain.EmployeeInput) (*domain.Employee, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	input.Apply(employee)
	if err := s.employees.Update(ctx, employee); err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, audit.Event{
		EmployeeID: id,
		EventType:  audit.EventEmployeeUpdated,
		Success:    true,
	})
	return employee, nil
}

// Delete removes the employee row, then its embeddings and capture
// images. Once the row is gone the employee can no longer be matched, so
// cleanup failures are logged rather than returned.
func (s *EmployeeService) Delete(ctx context.Context, id int64) error {
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.employees.Delete(ctx, id); err != nil {
		return err
	}

	var cleanupErrs []error
	if err := s.store.Delete(ctx, id); err != nil {
		cleanupErrs = append(cleanupErrs, err)
	}

	dirs := []string{filepath.Join(s.capturesDir, strconv.FormatInt(id, 10))}
	if employee.HasFaceData() && filepath.Clean(*employee.FaceDataDir) != dirs[0] {
		dirs = append(dirs, *employee.FaceDataDir)
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			cleanupErrs = append(cleanupErrs, err)
		}
	}

	if err := errors.Join(cleanupErrs...); err != nil {
		s.logger.WarnContext(ctx, "employee cleanup incomplete",
			slog.Int64("employee_id", id),
			slog.String("error", err.Error()),
		)
	}

	_ = s.audit.Log(ctx, audit.Event{
		EmployeeID: id,
		EventType:  audit.EventEmployeeDeleted,
		Success:    true,
	})
	return nil
}
