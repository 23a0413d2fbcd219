package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

func TestSaveUpload(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		nilBody  bool
		maxBytes int64
		wantErr  error
	}{
		{name: "within limit", body: "webm-bytes", maxBytes: 10},
		{name: "unbounded", body: "webm-bytes"},
		{name: "too large", body: "webm-bytes!", maxBytes: 10, wantErr: domain.ErrUploadTooLarge},
		{name: "empty", body: "", wantErr: domain.ErrNoVideoSupplied},
		{name: "missing", nilBody: true, wantErr: domain.ErrNoVideoSupplied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "raw")

			var path string
			var err error
			if tt.nilBody {
				path, err = saveUpload(dir, nil, tt.maxBytes)
			} else {
				path, err = saveUpload(dir, strings.NewReader(tt.body), tt.maxBytes)
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				entries, _ := os.ReadDir(dir)
				assert.Empty(t, entries, "rejected uploads leave nothing behind")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, ".webm", filepath.Ext(path))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(data))

			require.NoError(t, removeUpload(path))
			require.NoError(t, removeUpload(path))
		})
	}
}

func TestSaveUpload_UniqueNames(t *testing.T) {
	dir := t.TempDir()

	a, err := saveUpload(dir, strings.NewReader("a"), 0)
	require.NoError(t, err)
	b, err := saveUpload(dir, strings.NewReader("b"), 0)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
