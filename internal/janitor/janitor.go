// Package janitor removes raw uploads that outlived the request which
// wrote them, e.g. after a crash between saving and cleanup.
package janitor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"
)

const uploadPattern = "*.webm"

type Janitor struct {
	dir       string
	maxAge    time.Duration
	logger    *slog.Logger
	now       func() time.Time
	scheduler *gocron.Scheduler
}

func New(dir string, maxAge time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		dir:    dir,
		maxAge: maxAge,
		logger: logger.With("component", "upload_janitor"),
		now:    time.Now,
	}
}

// Sweep deletes uploads last modified more than maxAge ago and returns
// how many were removed. A missing directory is not an error.
func (j *Janitor) Sweep() (int, error) {
	paths, err := filepath.Glob(filepath.Join(j.dir, uploadPattern))
	if err != nil {
		return 0, fmt.Errorf("list uploads: %w", err)
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	var errs []error
	for _, path := range paths {
		info, err := os.Lstat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Start sweeps once right away and then every interval until Stop.
func (j *Janitor) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(interval).Do(j.run); err != nil {
		return fmt.Errorf("schedule upload sweep: %w", err)
	}
	s.StartAsync()
	j.scheduler = s
	return nil
}

func (j *Janitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}

func (j *Janitor) run() {
	removed, err := j.Sweep()
	if err != nil {
		j.logger.Warn("upload sweep failed", slog.Int("removed", removed), slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		j.logger.Info("removed stale uploads", slog.Int("removed", removed), slog.String("dir", j.dir))
	}
}
