package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNameFormat(t *testing.T) {
	now := time.Date(2025, 9, 27, 19, 11, 18, 0, time.UTC)
	name := newName(now, PrefixTextToVideo, "mp4")
	assert.Regexp(t, regexp.MustCompile(`^text_to_video_20250927_191118_[0-9a-f]{8}\.mp4$`), name)
	assert.NotEqual(t, name, newName(now, PrefixTextToVideo, "mp4"))

	assert.Regexp(t, `^\d{8}_\d{6}_[0-9a-f]{8}\.png$`, newName(now, "", ".PNG"))
	assert.Regexp(t, `^video_\d{8}_\d{6}_[0-9a-f]{8}\.mov$`, NameFromUpload(PrefixUpload, `C:\clips\../My Clip.MOV`))
}

func TestExtForMIME(t *testing.T) {
	assert.Equal(t, ".jpg", ExtForMIME("image/jpeg"))
	assert.Equal(t, ".webp", ExtForMIME("IMAGE/WEBP"))
	assert.Equal(t, ".png", ExtForMIME(""))
}

func TestValidateUpload(t *testing.T) {
	limits := Limits{MaxFileSize: 10}
	tests := []struct {
		name     string
		kind     Kind
		filename string
		size     int64
		want     error
	}{
		{"video ok", KindVideos, "clip.MP4", 5, nil},
		{"image ok", KindImages, "a.webp", 10, nil},
		{"wrong ext for kind", KindVideos, "a.png", 5, ErrInvalidType},
		{"no ext", KindImages, "README", 5, ErrInvalidType},
		{"too large", KindVideos, "clip.mkv", 11, ErrTooLarge},
		{"empty", KindVideos, "clip.mp4", 0, ErrEmptyContent},
		{"bad kind", Kind("files"), "clip.mp4", 1, ErrInvalidKind},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUpload(tc.kind, tc.filename, tc.size, limits)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.NoError(t, ValidateUpload(KindVideos, "big.mp4", DefaultMaxFileSize, Limits{}))
	assert.ErrorIs(t, ValidateUpload(KindVideos, "big.mp4", DefaultMaxFileSize+1, Limits{}), ErrTooLarge)
}

func TestParseURL(t *testing.T) {
	kind, name, err := ParseURL("/outputs/videos/text_to_video_1.mp4")
	require.NoError(t, err)
	assert.Equal(t, KindVideos, kind)
	assert.Equal(t, "text_to_video_1.mp4", name)

	kind, name, err = ParseURL("http://localhost:8000/outputs/images/a.png")
	require.NoError(t, err)
	assert.Equal(t, KindImages, kind)
	assert.Equal(t, "a.png", name)

	_, _, err = ParseURL("/outputs/files/a.png")
	assert.ErrorIs(t, err, ErrInvalidKind)
	_, _, err = ParseURL("/outputs/videos/")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Equal(t, "/outputs/images/a.png", URLFor(KindImages, "a.png"))
}

func TestCleanNameRejectsTraversal(t *testing.T) {
	for _, name := range []string{"", "..", "../etc/passwd", `..\x`, "a/b"} {
		_, err := CleanName(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

// exerciseStore runs the same contract against every backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	a, err := s.Save(ctx, KindVideos, "first.mp4", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, "/outputs/videos/first.mp4", a.URL())
	assert.Equal(t, int64(3), a.Size)

	_, err = s.Save(ctx, KindVideos, "second.mp4", []byte("second"))
	require.NoError(t, err)
	_, err = s.Save(ctx, KindImages, "pic.png", []byte("png"))
	require.NoError(t, err)

	rc, info, err := s.Open(ctx, KindVideos, "second.mp4")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "second", string(body))
	assert.Equal(t, int64(6), info.Size)

	list, err := s.List(ctx, KindVideos)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second.mp4", list[0].Name)

	_, _, err = s.Open(ctx, KindVideos, "missing.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.Open(ctx, KindVideos, "../images/pic.png")
	assert.ErrorIs(t, err, ErrInvalidName)

	require.NoError(t, s.Delete(ctx, KindVideos, "first.mp4"))
	assert.ErrorIs(t, s.Delete(ctx, KindVideos, "first.mp4"), ErrNotFound)
	list, err = s.List(ctx, KindVideos)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFileStore(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root)
	require.NoError(t, err)
	exerciseStore(t, s)

	_, err = os.Stat(filepath.Join(root, "images", "pic.png"))
	assert.NoError(t, err)
}

func TestFileStoreListSkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "videos", ".partial.mp4.123"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "videos", "nested"), 0o755))

	list, err := s.List(context.Background(), KindVideos)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	tick := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	exerciseStore(t, s)
}
