package handler

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

const (
	dateLayout     = "2006-01-02"
	exportFilename = "attendance_records.csv"
)

type RecognitionService interface {
	MarkAttendance(ctx context.Context, upload io.Reader) (*service.MarkResult, error)
}

type AttendanceExporter interface {
	List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error)
	WriteCSV(ctx context.Context, w io.Writer, filter domain.AttendanceFilter) error
}

// AttendanceHandler serves marking, listing and exporting attendance.
type AttendanceHandler struct {
	recognition RecognitionService
	records     AttendanceExporter
	logger      *slog.Logger
}

func NewAttendanceHandler(recognition RecognitionService, records AttendanceExporter, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		recognition: recognition,
		records:     records,
		logger:      logger,
	}
}

// MarkResponse response for the mark endpoint
type MarkResponse struct {
	Message      string          `json:"message"`
	Employee     domain.Employee `json:"employee"`
	AttendanceID int64           `json:"attendance_id"`
	Timestamp    time.Time       `json:"timestamp"`
	Distance     float64         `json:"distance"`
}

// Mark POST /v1/attendance/mark - recognise the face in a clip and record attendance
func (h *AttendanceHandler) Mark(c *fiber.Ctx) error {
	video, err := openVideo(c)
	if err != nil {
		return err
	}
	defer func() {
		_ = video.Close()
	}()

	result, err := h.recognition.MarkAttendance(c.UserContext(), video)
	if err != nil {
		return err
	}

	return c.JSON(MarkResponse{
		Message:      "Attendance marked successfully",
		Employee:     result.Employee,
		AttendanceID: result.Attendance.ID,
		Timestamp:    result.Attendance.Timestamp.UTC(),
		Distance:     result.Distance,
	})
}

// List GET /v1/attendance?date=YYYY-MM-DD&employee=name
func (h *AttendanceHandler) List(c *fiber.Ctx) error {
	filter := h.parseFilter(c)

	records, err := h.records.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

// Export GET /v1/attendance/export.csv - same filters as List
func (h *AttendanceHandler) Export(c *fiber.Ctx) error {
	filter := h.parseFilter(c)

	// render before touching the response so a failed query still gets a JSON error
	var body strings.Builder
	if err := h.records.WriteCSV(c.UserContext(), &body, filter); err != nil {
		return err
	}

	c.Attachment(exportFilename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.SendString(body.String())
}

// parseFilter reads the date and employee query params. A date that is
// not YYYY-MM-DD is ignored and the listing stays unfiltered by day.
func (h *AttendanceHandler) parseFilter(c *fiber.Ctx) domain.AttendanceFilter {
	filter := domain.AttendanceFilter{
		EmployeeName: strings.TrimSpace(c.Query("employee")),
	}

	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.logger.DebugContext(c.UserContext(), "ignoring malformed date filter", slog.String("date", raw))
			return filter
		}
		filter.Date = &day
	}
	return filter
}
