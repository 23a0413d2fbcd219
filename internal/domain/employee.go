package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Employee is a person who can enroll a face and mark attendance.
type Employee struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Department  string    `json:"department"`
	Email       string    `json:"email"`
	Contact     string    `json:"contact"`
	FaceDataDir *string   `json:"face_data_dir,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasFaceData reports whether a capture has been completed.
func (e *Employee) HasFaceData() bool {
	return e.FaceDataDir != nil && *e.FaceDataDir != ""
}

// EmployeeInput carries the editable fields of an employee.
type EmployeeInput struct {
	Name       string `json:"name" validate:"required,max=100"`
	Department string `json:"department" validate:"max=100"`
	Email      string `json:"email" validate:"omitempty,max=255,email"`
	Contact    string `json:"contact" validate:"max=50"`
}

// Normalize trims surrounding whitespace from every field.
func (in *EmployeeInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Department = strings.TrimSpace(in.Department)
	in.Email = strings.TrimSpace(in.Email)
	in.Contact = strings.TrimSpace(in.Contact)
}

// Validate returns ErrValidationFailed describing the first invalid field.
func (in EmployeeInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return ErrValidationFailed.WithError(err)
	}
	return ErrValidationFailed.WithMessage(fieldMessage(fields[0]))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// Apply copies the input onto the employee.
func (in EmployeeInput) Apply(e *Employee) {
	e.Name = in.Name
	e.Department = in.Department
	e.Email = in.Email
	e.Contact = in.Contact
}
