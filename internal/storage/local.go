package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// localStorage implements FileStorage on a plain directory tree, one
// subdirectory per tenant.
type localStorage struct {
	baseDir string
}

// NewLocalStorage creates a FileStorage rooted at baseDir, creating the
// directory if needed.
func NewLocalStorage(baseDir string) (FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &localStorage{baseDir: baseDir}, nil
}

// Save writes src to <baseDir>/<tenantID>/<filename>.
func (s *localStorage) Save(tenantID, filename string, src io.Reader) (string, int64, error) {
	tenantDir := filepath.Join(s.baseDir, tenantID)
	if err := os.MkdirAll(tenantDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create tenant dir: %w", err)
	}

	path := filepath.Join(tenantDir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// A half-written file is useless; remove it.
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write file: %w", err)
	}

	return path, written, nil
}

func (s *localStorage) Open(path string) (*os.File, error) {
	return os.Open(path)
}

func (s *localStorage) Stat(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *localStorage) Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
