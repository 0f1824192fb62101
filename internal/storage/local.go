package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// LocalStore writes uploads to a directory served under /uploads/
type LocalStore struct {
	dir     string
	baseURL string
	logger  logger.Logger
	now     func() time.Time
}

// NewLocalStore creates dir if needed and returns a store writing into it
func NewLocalStore(dir, baseURL string, logger logger.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalStore{
		dir:     dir,
		baseURL: baseURL,
		logger:  logger,
		now:     models.GetCurrentTime,
	}, nil
}

// Dir returns the directory uploads are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := ObjectName(name, s.now())

	// same name in the same millisecond replaces the earlier file
	f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Stored upload", "ref", ref, "contentType", contentType)
	return ref, nil
}

func (s *LocalStore) URL(ref string) string {
	return s.baseURL + "/uploads/" + ref
}
