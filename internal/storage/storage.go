package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/vaidashi/storefront-api/internal/config"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// ImageStore persists uploaded files and resolves the references it hands out
type ImageStore interface {
	// Save stores the content read from r and returns its reference
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	// URL returns where a reference can be fetched from
	URL(ref string) string
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsImage reports whether name has one of the accepted image extensions
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// ObjectName builds the stored reference for an uploaded file:
// "<unix millis>_<base name with spaces replaced by underscores>"
func ObjectName(name string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	return fmt.Sprintf("%d_%s", now.UnixMilli(), strings.ReplaceAll(base, " ", "_"))
}

// New builds the store selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (ImageStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg, log)
	case "", "local":
		return NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
