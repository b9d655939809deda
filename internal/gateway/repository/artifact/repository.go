package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

// Store persists generated and uploaded media. Names are flat: one namespace
// per Kind.
type Store interface {
	Save(ctx context.Context, kind Kind, name string, content []byte) (Artifact, error)
	Open(ctx context.Context, kind Kind, name string) (io.ReadCloser, Artifact, error)
	// List returns every artifact of kind, newest first.
	List(ctx context.Context, kind Kind) ([]Artifact, error)
	Delete(ctx context.Context, kind Kind, name string) error
}

var (
	ErrNotFound     = errors.New("artifact not found")
	ErrInvalidType  = errors.New("invalid file type")
	ErrTooLarge     = errors.New("file too large")
	ErrInvalidName  = errors.New("invalid file name")
	ErrInvalidKind  = errors.New("invalid artifact kind")
	ErrEmptyContent = errors.New("no file provided")
)

// URLPrefix is where artifacts are served from.
const URLPrefix = "/outputs/"

type Kind string

const (
	KindImages Kind = "images"
	KindVideos Kind = "videos"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindImages, KindVideos:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Artifact describes one stored file.
type Artifact struct {
	Kind Kind
	Name string
	// Path is backend specific: a filesystem path or an object key.
	Path     string
	Size     int64
	Modified time.Time
}

// URL is the public reference handed to clients, e.g. /outputs/videos/x.mp4.
func (a Artifact) URL() string {
	return URLFor(a.Kind, a.Name)
}

func URLFor(kind Kind, name string) string {
	return URLPrefix + string(kind) + "/" + name
}

// ParseURL splits a reference produced by URLFor. Absolute URLs and bare
// "kind/name" forms are accepted too.
func ParseURL(ref string) (Kind, string, error) {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, URLPrefix); i >= 0 {
		ref = ref[i+len(URLPrefix):]
	}
	ref = strings.TrimPrefix(ref, "/")
	dir, name := path.Split(ref)
	kind, err := ParseKind(strings.TrimSuffix(dir, "/"))
	if err != nil {
		return "", "", err
	}
	name, err = CleanName(name)
	if err != nil {
		return "", "", err
	}
	return kind, name, nil
}

// CleanName rejects names that could escape the kind directory.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

func checkKey(kind Kind, name string) (string, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return "", err
	}
	return CleanName(name)
}

func sortNewestFirst(items []Artifact) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Modified.Equal(items[j].Modified) {
			return items[i].Name > items[j].Name
		}
		return items[i].Modified.After(items[j].Modified)
	})
}

type nopSeekCloser struct{ io.ReadSeeker }

func (nopSeekCloser) Close() error { return nil }

// NopSeekCloser is io.NopCloser that keeps the Seek method, so handlers can
// serve range requests from in-memory content.
func NopSeekCloser(r io.ReadSeeker) io.ReadCloser { return nopSeekCloser{r} }
