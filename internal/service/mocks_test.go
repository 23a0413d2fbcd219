package service

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/ponto/internal/attendance"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

type MockEmployeeRepository struct {
	mock.Mock
}

func (m *MockEmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	args := m.Called(ctx, employee)
	return args.Error(0)
}

func (m *MockEmployeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Employee), args.Error(1)
}

func (m *MockEmployeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Employee), args.Error(1)
}

func (m *MockEmployeeRepository) Update(ctx context.Context, employee *domain.Employee) error {
	args := m.Called(ctx, employee)
	return args.Error(0)
}

func (m *MockEmployeeRepository) SetFaceDataDir(ctx context.Context, id int64, dir string) error {
	args := m.Called(ctx, id, dir)
	return args.Error(0)
}

func (m *MockEmployeeRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAttendanceRepository struct {
	mock.Mock
}

func (m *MockAttendanceRepository) List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Mark(ctx context.Context, employeeID int64, now time.Time) (attendance.Outcome, error) {
	args := m.Called(ctx, employeeID, now)
	return args.Get(0).(attendance.Outcome), args.Error(1)
}

// stubEmbedder answers every Represent with the same result.
type stubEmbedder struct {
	vec []float64
	err error
}

func (s stubEmbedder) Represent(context.Context, []byte) ([]float64, error) {
	return s.vec, s.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []domain.Attendance
	err   error
}

func (r *recordingNotifier) AttendanceMarked(_ context.Context, _ domain.Employee, record domain.Attendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, record)
	return r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solidFrame(shade uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade / 2, B: 255 - shade, A: 255})
		}
	}
	return img
}

func frames(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = solidFrame(uint8(i * 20))
	}
	return out
}
