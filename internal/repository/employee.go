package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

type EmployeeRepository struct {
	pool PgxPool
}

func NewEmployeeRepository(pool PgxPool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	query := `
		INSERT INTO employees (name, department, email, contact, face_data_dir, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		employee.Name,
		employee.Department,
		employee.Email,
		employee.Contact,
		employee.FaceDataDir,
	).Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create employee: %w", err)
	}

	return nil
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	query := `
		SELECT id, name, department, email, contact, face_data_dir, created_at, updated_at
		FROM employees
		WHERE id = $1
	`

	var employee domain.Employee
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Department,
		&employee.Email,
		&employee.Contact,
		&employee.FaceDataDir,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employee by id: %w", err)
	}

	return &employee, nil
}

// List returns every employee ordered by ID, which is enrollment order.
func (r *EmployeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	query := `
		SELECT id, name, department, email, contact, face_data_dir, created_at, updated_at
		FROM employees
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	employees := []domain.Employee{}
	for rows.Next() {
		var employee domain.Employee
		if err := rows.Scan(
			&employee.ID,
			&employee.Name,
			&employee.Department,
			&employee.Email,
			&employee.Contact,
			&employee.FaceDataDir,
			&employee.CreatedAt,
			&employee.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, employee)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}

	return employees, nil
}

func (r *EmployeeRepository) Update(ctx context.Context, employee *domain.Employee) error {
	query := `
		UPDATE employees
		SET name = $2, department = $3, email = $4, contact = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		employee.ID,
		employee.Name,
		employee.Department,
		employee.Email,
		employee.Contact,
	).Scan(&employee.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrEmployeeNotFound
	}
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}

	return nil
}

func (r *EmployeeRepository) SetFaceDataDir(ctx context.Context, id int64, dir string) error {
	query := `
		UPDATE employees
		SET face_data_dir = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, dir)
	if err != nil {
		return fmt.Errorf("set face data dir: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrEmployeeNotFound
	}

	return nil
}

// Delete removes the employee; attendance rows and stored embeddings go
// with it through ON DELETE CASCADE.
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM employees WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrEmployeeNotFound
	}

	return nil
}

var _ EmployeeRepositoryInterface = (*EmployeeRepository)(nil)
