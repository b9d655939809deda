package artifact

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultMaxFileSize is the upload limit when none is configured.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

var (
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}
	VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}
)

// Limits bounds what ValidateUpload accepts.
type Limits struct {
	MaxFileSize int64
}

// MaxBytes is the effective upload limit.
func (l Limits) MaxBytes() int64 {
	if l.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return l.MaxFileSize
}

// ValidateUpload checks extension and size of a client upload.
func ValidateUpload(kind Kind, filename string, size int64, limits Limits) error {
	if strings.TrimSpace(filename) == "" || size == 0 {
		return ErrEmptyContent
	}
	allowed := ImageExtensions
	switch kind {
	case KindImages:
	case KindVideos:
		allowed = VideoExtensions
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(allowed, ext) {
		return fmt.Errorf("%w: unsupported format, please upload one of %s", ErrInvalidType, strings.Join(allowed, ", "))
	}
	if max := limits.MaxBytes(); size > max {
		return fmt.Errorf("%w: maximum is %dMB", ErrTooLarge, max/(1024*1024))
	}
	return nil
}
