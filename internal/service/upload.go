package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// saveUpload copies at most maxBytes of r into a uniquely named file
// under dir. The caller owns the file and must remove it.
func saveUpload(dir string, r io.Reader, maxBytes int64) (string, error) {
	if r == nil {
		return "", domain.ErrNoVideoSupplied
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+".webm")
	f, err := os.Create(path) //nolint:gosec // name is generated
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("write upload: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close upload: %w", closeErr)
	case n == 0:
		err = domain.ErrNoVideoSupplied
	case maxBytes > 0 && n > maxBytes:
		err = domain.ErrUploadTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// removeUpload deletes a temporary upload, ignoring files already gone.
func removeUpload(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
