package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/attendance"
	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
	"github.com/saturnino-fabrica-de-software/ponto/internal/matcher"
	"github.com/saturnino-fabrica-de-software/ponto/internal/notify"
	"github.com/saturnino-fabrica-de-software/ponto/internal/video"
)

type RecognitionConfig struct {
	RawUploadDir      string
	MaxUploadBytes    int64
	ProcessingTimeout time.Duration
	Tolerance         float64
	Strategy          matcher.Strategy
}

// MarkResult is a successfully recorded attendance.
type MarkResult struct {
	Employee   domain.Employee
	Attendance domain.Attendance
	Distance   float64
}

type RecognitionService struct {
	employees  EmployeeRepositoryInterface
	opener     video.Opener
	extractor  *embedding.Extractor
	candidates matcher.CandidateSource
	guard      AttendanceGuard
	notifier   notify.Notifier
	audit      audit.Logger
	config     RecognitionConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewRecognitionService(
	employees EmployeeRepositoryInterface,
	opener video.Opener,
	extractor *embedding.Extractor,
	candidates matcher.CandidateSource,
	guard AttendanceGuard,
	notifier notify.Notifier,
	auditLogger audit.Logger,
	config RecognitionConfig,
	logger *slog.Logger,
) *RecognitionService {
	if config.Tolerance <= 0 {
		config.Tolerance = matcher.DefaultTolerance
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &RecognitionService{
		employees:  employees,
		opener:     opener,
		extractor:  extractor,
		candidates: candidates,
		guard:      guard,
		notifier:   notifier,
		audit:      auditLogger,
		config:     config,
		logger:     logger.With("component", "recognition"),
		now:        time.Now,
	}
}

// WithClock replaces the time source used to stamp attendance.
func (s *RecognitionService) WithClock(now func() time.Time) *RecognitionService {
	s.now = now
	return s
}

// MarkAttendance identifies the face in the first frame of upload and
// records attendance for that employee.
func (s *RecognitionService) MarkAttendance(ctx context.Context, upload io.Reader) (*MarkResult, error) {
	if s.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ProcessingTimeout)
		defer cancel()
	}

	path, err := saveUpload(s.config.RawUploadDir, upload, s.config.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := removeUpload(path); err != nil {
			s.logger.WarnContext(ctx, "remove raw upload", slog.String("path", path), slog.String("error", err.Error()))
		}
	}()

	frame, err := video.FirstFrame(ctx, s.opener, path)
	if errors.Is(err, video.ErrNoFrame) {
		return nil, domain.ErrNoFrameDecodable
	}
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	live, ok, err := s.extractor.Extract(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}
	if !ok {
		s.deny(ctx, "no_face")
		return nil, domain.ErrNoFaceDetected
	}

	candidates, err := s.candidates.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	match, ok := s.config.Strategy.Find(live, candidates, s.config.Tolerance)
	if !ok {
		s.deny(ctx, "no_match")
		return nil, domain.ErrFaceNotRecognized
	}

	employee, err := s.employees.GetByID(ctx, match.EmployeeID)
	if err != nil {
		return nil, err
	}

	outcome, err := s.guard.Mark(ctx, match.EmployeeID, s.now())
	if err != nil {
		return nil, err
	}
	if outcome.Status == attendance.AlreadyMarked {
		return nil, domain.ErrAlreadyMarkedToday.WithMessage(
			"Attendance already marked today at " + outcome.Record.Timestamp.UTC().Format("15:04"),
		)
	}

	if err := s.notifier.AttendanceMarked(ctx, *employee, outcome.Record); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.Int64("employee_id", employee.ID),
			slog.String("error", err.Error()),
		)
	}

	_ = s.audit.Log(ctx, audit.Event{
		EmployeeID: employee.ID,
		EventType:  audit.EventAttendanceMarked,
		Success:    true,
		Metadata: map[string]string{
			"attendance_id": strconv.FormatInt(outcome.Record.ID, 10),
			"distance":      strconv.FormatFloat(match.Distance, 'f', 4, 64),
		},
	})

	return &MarkResult{
		Employee:   *employee,
		Attendance: outcome.Record,
		Distance:   match.Distance,
	}, nil
}

func (s *RecognitionService) deny(ctx context.Context, reason string) {
	_ = s.audit.Log(ctx, audit.Event{
		EventType: audit.EventAttendanceDenied,
		Success:   false,
		Error:     reason,
	})
}

// StoreCandidates lists enrolled employees in ID order together with
// their stored embeddings.
type StoreCandidates struct {
	employees EmployeeRepositoryInterface
	store     embedding.Store
}

func NewStoreCandidates(employees EmployeeRepositoryInterface, store embedding.Store) *StoreCandidates {
	return &StoreCandidates{employees: employees, store: store}
}

func (c *StoreCandidates) Candidates(ctx context.Context) ([]matcher.Candidate, error) {
	employees, err := c.employees.List(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]matcher.Candidate, 0, len(employees))
	for _, e := range employees {
		if !e.HasFaceData() {
			continue
		}
		set, err := c.store.Load(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("employee %d: %w", e.ID, err)
		}
		if len(set) == 0 {
			continue
		}
		candidates = append(candidates, matcher.Candidate{EmployeeID: e.ID, Embeddings: set})
	}
	return candidates, nil
}

var _ matcher.CandidateSource = (*StoreCandidates)(nil)
