package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

type EmployeeService interface {
	Create(ctx context.Context, input domain.EmployeeInput) (*domain.Employee, error)
	Get(ctx context.Context, id int64) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
	Update(ctx context.Context, id int64, input domain.EmployeeInput) (*domain.Employee, error)
	Delete(ctx context.Context, id int64) error
}

type EnrollmentService interface {
	Capture(ctx context.Context, employeeID int64, upload io.Reader) (*service.CaptureResult, error)
}

// EmployeeHandler serves employee CRUD and face capture.
type EmployeeHandler struct {
	employees  EmployeeService
	enrollment EnrollmentService
	logger     *slog.Logger
}

func NewEmployeeHandler(employees EmployeeService, enrollment EnrollmentService, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		employees:  employees,
		enrollment: enrollment,
		logger:     logger,
	}
}

// CaptureResponse response for the capture endpoint
type CaptureResponse struct {
	Message    string `json:"message"`
	Frames     int    `json:"frames"`
	Embeddings int    `json:"embeddings"`
	Blinks     int    `json:"blinks"`
}

// Create POST /v1/employees
func (h *EmployeeHandler) Create(c *fiber.Ctx) error {
	input, err := parseEmployeeInput(c)
	if err != nil {
		return err
	}

	employee, err := h.employees.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(employee)
}

// List GET /v1/employees
func (h *EmployeeHandler) List(c *fiber.Ctx) error {
	employees, err := h.employees.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(employees)
}

// Get GET /v1/employees/:id
func (h *EmployeeHandler) Get(c *fiber.Ctx) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}

	employee, err := h.employees.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(employee)
}

// Update PUT /v1/employees/:id
func (h *EmployeeHandler) Update(c *fiber.Ctx) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	input, err := parseEmployeeInput(c)
	if err != nil {
		return err
	}

	employee, err := h.employees.Update(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	return c.JSON(employee)
}

// Delete DELETE /v1/employees/:id
func (h *EmployeeHandler) Delete(c *fiber.Ctx) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}

	if err := h.employees.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Capture POST /v1/employees/:id/capture - enroll a face from a short clip
func (h *EmployeeHandler) Capture(c *fiber.Ctx) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}

	video, err := openVideo(c)
	if err != nil {
		return err
	}
	defer func() {
		_ = video.Close()
	}()

	result, err := h.enrollment.Capture(c.UserContext(), id, video)
	if err != nil {
		return err
	}

	h.logger.InfoContext(c.UserContext(), "face captured",
		slog.Int64("employee_id", id),
		slog.Int("frames", result.Frames),
		slog.Int("embeddings", result.Embeddings),
	)

	return c.JSON(CaptureResponse{
		Message:    "Face data captured and embeddings saved",
		Frames:     result.Frames,
		Embeddings: result.Embeddings,
		Blinks:     result.Blinks,
	})
}

func parseEmployeeInput(c *fiber.Ctx) (domain.EmployeeInput, error) {
	var input domain.EmployeeInput
	if len(c.Body()) == 0 {
		return input, domain.ErrBadRequest.WithError(errEmptyBody)
	}
	if err := c.BodyParser(&input); err != nil {
		return input, domain.ErrBadRequest.WithError(err)
	}
	return input, nil
}
