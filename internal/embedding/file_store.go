package embedding

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Artifact layout, little endian:
//
//	magic "FEMB" | version uint8 | count uint32 | dim uint32 | count*dim float64
const (
	fileMagic   = "FEMB"
	fileVersion = 1
	headerSize  = len(fileMagic) + 1 + 4 + 4
)

// FileStore keeps one artifact per employee at <dir>/<id>_embeddings.bin.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the artifact location for an employee.
func (s *FileStore) Path(employeeID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d_embeddings.bin", employeeID))
}

// Save writes to a temporary file and renames it over the old artifact,
// so readers never observe a partial set.
func (s *FileStore) Save(ctx context.Context, employeeID int64, embeddings []Embedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(embeddings)
	if err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create embeddings dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".embeddings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write embeddings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync embeddings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close embeddings: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(employeeID)); err != nil {
		return fmt.Errorf("replace embeddings: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, employeeID int64) ([]Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(employeeID))
	if errors.Is(err, os.ErrNotExist) {
		return []Embedding{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}

	set, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("employee %d: %w", employeeID, err)
	}
	return set, nil
}

func (s *FileStore) Delete(ctx context.Context, employeeID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.Path(employeeID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}

func encode(set []Embedding) ([]byte, error) {
	dim, err := dimension(set)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(set)*dim*8))
	buf.WriteString(fileMagic)
	buf.WriteByte(fileVersion)

	var word [8]byte
	binary.LittleEndian.PutUint32(word[:4], uint32(len(set))) //nolint:gosec // bounded by frames per capture
	buf.Write(word[:4])
	binary.LittleEndian.PutUint32(word[:4], uint32(dim)) //nolint:gosec // descriptor length
	buf.Write(word[:4])

	for _, e := range set {
		for _, v := range e {
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
			buf.Write(word[:])
		}
	}
	return buf.Bytes(), nil
}

func decode(data []byte) ([]Embedding, error) {
	if len(data) < headerSize || string(data[:len(fileMagic)]) != fileMagic {
		return nil, ErrCorrupt
	}
	if v := data[len(fileMagic)]; v != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	r := bytes.NewReader(data[len(fileMagic)+1:])
	var count, dim uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ErrCorrupt
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, ErrCorrupt
	}

	if dim == 0 && count > 0 {
		return nil, fmt.Errorf("%w: %d vectors without values", ErrCorrupt, count)
	}

	want := uint64(count) * uint64(dim) * 8
	if uint64(r.Len()) != want {
		return nil, fmt.Errorf("%w: expected %d payload bytes, found %d", ErrCorrupt, want, r.Len())
	}

	set := make([]Embedding, count)
	var word [8]byte
	for i := range set {
		vec := make(Embedding, dim)
		for j := range vec {
			if _, err := io.ReadFull(r, word[:]); err != nil {
				return nil, ErrCorrupt
			}
			vec[j] = math.Float64frombits(binary.LittleEndian.Uint64(word[:]))
		}
		set[i] = vec
	}
	return set, nil
}
