package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/ponto/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

type MockEmployeeService struct {
	mock.Mock
}

func (m *MockEmployeeService) Create(ctx context.Context, input domain.EmployeeInput) (*domain.Employee, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Employee), args.Error(1)
}

func (m *MockEmployeeService) Get(ctx context.Context, id int64) (*domain.Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Employee), args.Error(1)
}

func (m *MockEmployeeService) List(ctx context.Context) ([]domain.Employee, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Employee), args.Error(1)
}

func (m *MockEmployeeService) Update(ctx context.Context, id int64, input domain.EmployeeInput) (*domain.Employee, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Employee), args.Error(1)
}

func (m *MockEmployeeService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEnrollmentService records the uploaded bytes so tests can check
// the clip reached the service intact.
type MockEnrollmentService struct {
	mock.Mock
	received []byte
}

func (m *MockEnrollmentService) Capture(ctx context.Context, employeeID int64, upload io.Reader) (*service.CaptureResult, error) {
	m.received, _ = io.ReadAll(upload)
	args := m.Called(ctx, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CaptureResult), args.Error(1)
}

type MockRecognitionService struct {
	mock.Mock
	received []byte
}

func (m *MockRecognitionService) MarkAttendance(ctx context.Context, upload io.Reader) (*service.MarkResult, error) {
	m.received, _ = io.ReadAll(upload)
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MarkResult), args.Error(1)
}

type MockAttendanceExporter struct {
	mock.Mock
}

func (m *MockAttendanceExporter) List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceExporter) WriteCSV(ctx context.Context, w io.Writer, filter domain.AttendanceFilter) error {
	args := m.Called(ctx, filter)
	if out := args.String(1); out != "" {
		_, _ = io.WriteString(w, out)
	}
	return args.Error(0)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
}

// videoRequest builds a multipart request carrying content in field.
func videoRequest(method, target, field string, content []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, _ := writer.CreateFormFile(field, "clip.webm")
		_, _ = part.Write(content)
	}
	_ = writer.WriteField("note", "x")
	_ = writer.Close()

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
