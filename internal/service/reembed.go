package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
)

// ReembedResult counts what a re-embed pass did.
type ReembedResult struct {
	Employees  int
	Images     int
	Embeddings int
}

// ReembedService rebuilds stored embeddings from the capture images, for
// example after switching embedding provider.
type ReembedService struct {
	employees EmployeeRepositoryInterface
	extractor *embedding.Extractor
	store     embedding.Store
	audit     audit.Logger
	logger    *slog.Logger
}

func NewReembedService(
	employees EmployeeRepositoryInterface,
	extractor *embedding.Extractor,
	store embedding.Store,
	auditLogger audit.Logger,
	logger *slog.Logger,
) *ReembedService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &ReembedService{
		employees: employees,
		extractor: extractor,
		store:     store,
		audit:     auditLogger,
		logger:    logger.With("component", "reembed"),
	}
}

// Targets lists the employees Run will process.
func (s *ReembedService) Targets(ctx context.Context) ([]domain.Employee, error) {
	all, err := s.employees.List(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]domain.Employee, 0, len(all))
	for _, e := range all {
		if e.HasFaceData() {
			targets = append(targets, e)
		}
	}
	return targets, nil
}

// Run re-extracts embeddings for every employee with a capture directory.
// progress, if not nil, is called once per employee.
func (s *ReembedService) Run(ctx context.Context, progress func()) (*ReembedResult, error) {
	targets, err := s.Targets(ctx)
	if err != nil {
		return nil, err
	}

	res := &ReembedResult{}
	for _, e := range targets {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		images, err := captureImages(*e.FaceDataDir)
		if err != nil {
			return res, fmt.Errorf("employee %d: %w", e.ID, err)
		}

		set := s.extractor.ExtractFiles(ctx, images)
		if err := s.store.Save(ctx, e.ID, set); err != nil {
			return res, fmt.Errorf("employee %d: save embeddings: %w", e.ID, err)
		}

		res.Employees++
		res.Images += len(images)
		res.Embeddings += len(set)

		s.logger.InfoContext(ctx, "employee re-embedded",
			slog.Int64("employee_id", e.ID),
			slog.Int("images", len(images)),
			slog.Int("embeddings", len(set)),
		)
		_ = s.audit.Log(ctx, audit.Event{
			EmployeeID: e.ID,
			EventType:  audit.EventFaceReembedded,
			Success:    true,
			Metadata: map[string]string{
				"images":     strconv.Itoa(len(images)),
				"embeddings": strconv.Itoa(len(set)),
			},
		})

		if progress != nil {
			progress()
		}
	}

	return res, nil
}

// captureImages returns the JPEG frames in dir in a stable order. A
// missing directory yields no images.
func captureImages(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("list capture images: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}
