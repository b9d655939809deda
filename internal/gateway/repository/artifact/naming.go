package artifact

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Name prefixes for generated media.
const (
	PrefixTextToVideo  = "text_to_video"
	PrefixImageToVideo = "image_to_video"
	PrefixExtended     = "extended_video"
	PrefixEdited       = "edited_image"
	PrefixUpload       = "video"
)

// NewName builds "{prefix}_{YYYYmmdd_HHMMSS}_{8 hex}{ext}". ext may be
// given with or without the leading dot.
func NewName(prefix, ext string) string {
	return newName(time.Now(), prefix, ext)
}

func newName(now time.Time, prefix, ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	parts := make([]string, 0, 3)
	if p := strings.TrimSpace(prefix); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, now.Format("20060102_150405"), id)
	return strings.Join(parts, "_") + ext
}

// NameFromUpload keeps the client's extension and discards the rest.
func NameFromUpload(prefix, filename string) string {
	return NewName(prefix, filepath.Ext(filepath.Base(strings.ReplaceAll(filename, `\`, "/"))))
}

// ExtForMIME maps an image MIME type to a file extension, defaulting to .png.
func ExtForMIME(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
