package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventEmployeeCreated   EventType = "EMPLOYEE_CREATED"
	EventEmployeeUpdated   EventType = "EMPLOYEE_UPDATED"
	EventEmployeeDeleted   EventType = "EMPLOYEE_DELETED"
	EventFaceCaptured      EventType = "FACE_CAPTURED"
	EventFaceReembedded    EventType = "FACE_REEMBEDDED"
	EventLandmarksDetected EventType = "LANDMARKS_DETECTED"
	EventAttendanceMarked  EventType = "ATTENDANCE_MARKED"
	EventAttendanceDenied  EventType = "ATTENDANCE_DENIED"
)

// Event is one entry of the biometric processing trail.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	EmployeeID int64             `json:"employee_id,omitempty"`
	EventType  EventType         `json:"event_type"`
	Provider   string            `json:"provider,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	IPAddress  string            `json:"ip_address,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log fills in ID and Timestamp when missing and writes the event as one
// structured record.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.Int64("employee_id", event.EmployeeID),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger discards every event.
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
