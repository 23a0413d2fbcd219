package liveness

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
)

// FrameSink persists a selected frame and returns where it went.
type FrameSink interface {
	Save(ctx context.Context, index int, frame image.Image) (string, error)
}

// DirSink writes <employeeID>_<index>.jpg files into Dir.
type DirSink struct {
	Dir        string
	EmployeeID int64
}

func NewDirSink(dir string, employeeID int64) *DirSink {
	return &DirSink{Dir: dir, EmployeeID: employeeID}
}

func (d *DirSink) Save(ctx context.Context, index int, frame image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}

	data, err := encodeJPEG(frame, jpegQualityStored)
	if err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	path := filepath.Join(d.Dir, fmt.Sprintf("%d_%d.jpg", d.EmployeeID, index))
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // capture images are served to operators
		return "", fmt.Errorf("write frame: %w", err)
	}
	return path, nil
}

// MemorySink keeps frames in memory; paths are synthetic.
type MemorySink struct {
	Saved map[int]image.Image
}

func NewMemorySink() *MemorySink {
	return &MemorySink{Saved: make(map[int]image.Image)}
}

func (m *MemorySink) Save(_ context.Context, index int, frame image.Image) (string, error) {
	m.Saved[index] = frame
	return fmt.Sprintf("memory://%d", index), nil
}
