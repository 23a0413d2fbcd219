package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
	"github.com/saturnino-fabrica-de-software/ponto/internal/liveness"
	"github.com/saturnino-fabrica-de-software/ponto/internal/video"
)

type EnrollmentConfig struct {
	CapturesDir       string
	RawUploadDir      string
	MaxUploadBytes    int64
	ProcessingTimeout time.Duration
}

// CaptureResult summarises one enrollment capture.
type CaptureResult struct {
	Frames     int `json:"frames"`
	Embeddings int `json:"embeddings"`
	Blinks     int `json:"blinks"`
}

type EnrollmentService struct {
	employees EmployeeRepositoryInterface
	opener    video.Opener
	sampler   *liveness.Sampler
	extractor *embedding.Extractor
	store     embedding.Store
	audit     audit.Logger
	config    EnrollmentConfig
	logger    *slog.Logger
}

func NewEnrollmentService(
	employees EmployeeRepositoryInterface,
	opener video.Opener,
	sampler *liveness.Sampler,
	extractor *embedding.Extractor,
	store embedding.Store,
	auditLogger audit.Logger,
	config EnrollmentConfig,
	logger *slog.Logger,
) *EnrollmentService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &EnrollmentService{
		employees: employees,
		opener:    opener,
		sampler:   sampler,
		extractor: extractor,
		store:     store,
		audit:     auditLogger,
		config:    config,
		logger:    logger.With("component", "enrollment"),
	}
}

// CaptureDir is where the frames of an employee's capture are kept.
func (s *EnrollmentService) CaptureDir(employeeID int64) string {
	return filepath.Join(s.config.CapturesDir, strconv.FormatInt(employeeID, 10))
}

// Capture runs blink sampling over the uploaded video and replaces the
// employee's capture images and embeddings with the new ones. Frames are
// staged next to the capture dir, so a rejected video leaves the previous
// enrollment untouched.
func (s *EnrollmentService) Capture(ctx context.Context, employeeID int64, upload io.Reader) (*CaptureResult, error) {
	if s.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ProcessingTimeout)
		defer cancel()
	}

	if _, err := s.employees.GetByID(ctx, employeeID); err != nil {
		return nil, err
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

	src, err := s.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("employee %d: open video: %w", employeeID, err)
	}

	staging, err := s.stagingDir(employeeID)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	defer func() {
		// no-op once the staging dir has been swapped in
		if err := os.RemoveAll(staging); err != nil {
			s.logger.WarnContext(ctx, "remove staging dir", slog.String("path", staging), slog.String("error", err.Error()))
		}
	}()

	sampled, err := s.sampler.Sample(ctx, src, liveness.NewDirSink(staging, employeeID))
	if err != nil {
		return nil, fmt.Errorf("employee %d: sample video: %w", employeeID, err)
	}
	switch {
	case sampled.FramesRead == 0:
		return nil, domain.ErrNoFrameDecodable
	case sampled.FacelessFrames == sampled.FramesSampled:
		return nil, domain.ErrNoFaceDetected
	case len(sampled.Frames) == 0:
		return nil, domain.ErrNoBlinkDetected
	}

	frames := make([]image.Image, len(sampled.Frames))
	for i, f := range sampled.Frames {
		frames[i] = f.Image
	}
	embeddings := s.extractor.ExtractAll(ctx, frames)
	if len(embeddings) == 0 {
		return nil, domain.ErrNoFaceDetected.WithMessage("No face could be encoded from the captured frames")
	}

	if err := s.store.Save(ctx, employeeID, embeddings); err != nil {
		return nil, fmt.Errorf("employee %d: save embeddings: %w", employeeID, err)
	}

	dir := s.CaptureDir(employeeID)
	if err := swapDir(staging, dir); err != nil {
		return nil, fmt.Errorf("employee %d: replace capture dir: %w", employeeID, err)
	}

	if err := s.employees.SetFaceDataDir(ctx, employeeID, dir); err != nil {
		return nil, err
	}

	result := &CaptureResult{
		Frames:     len(sampled.Frames),
		Embeddings: len(embeddings),
		Blinks:     sampled.Blinks,
	}

	_ = s.audit.Log(ctx, audit.Event{
		EmployeeID: employeeID,
		EventType:  audit.EventFaceCaptured,
		Success:    true,
		Metadata: map[string]string{
			"frames":     strconv.Itoa(result.Frames),
			"embeddings": strconv.Itoa(result.Embeddings),
			"blinks":     strconv.Itoa(result.Blinks),
		},
	})

	return result, nil
}

func (s *EnrollmentService) stagingDir(employeeID int64) (string, error) {
	if err := os.MkdirAll(s.config.CapturesDir, 0o755); err != nil {
		return "", fmt.Errorf("create captures dir: %w", err)
	}
	dir, err := os.MkdirTemp(s.config.CapturesDir, fmt.Sprintf(".%d-", employeeID))
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	return dir, nil
}

// swapDir moves staging to dir, replacing whatever dir held. The old
// contents are restored if the final rename fails.
func swapDir(staging, dir string) error {
	old := dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if err := os.Rename(dir, old); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Rename(staging, dir); err != nil {
		_ = os.Rename(old, dir)
		return err
	}
	return os.RemoveAll(old)
}
