package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps artifacts under root/{images,videos}/name.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	for _, kind := range []Kind{KindImages, KindVideos} {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", kind, err)
		}
	}
	return &FileStore{root: root}, nil
}

// Root is the directory served under URLPrefix.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) Save(_ context.Context, kind Kind, name string, content []byte) (Artifact, error) {
	full, err := s.pathFor(kind, name)
	if err != nil {
		return Artifact{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Artifact{}, err
	}
	// temp file + rename: readers never see a partial artifact.
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+name+".*")
	if err != nil {
		return Artifact{}, err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Artifact{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, err
	}
	return s.stat(kind, name, full)
}

func (s *FileStore) Open(_ context.Context, kind Kind, name string) (io.ReadCloser, Artifact, error) {
	full, err := s.pathFor(kind, name)
	if err != nil {
		return nil, Artifact{}, err
	}
	a, err := s.stat(kind, name, full)
	if err != nil {
		return nil, Artifact{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, Artifact{}, mapFSErr(err)
	}
	return f, a, nil
}

func (s *FileStore) List(_ context.Context, kind Kind) ([]Artifact, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, string(kind))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Artifact{}, nil
		}
		return nil, err
	}
	out := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{
			Kind:     kind,
			Name:     e.Name(),
			Path:     filepath.Join(dir, e.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, kind Kind, name string) error {
	full, err := s.pathFor(kind, name)
	if err != nil {
		return err
	}
	return mapFSErr(os.Remove(full))
}

func (s *FileStore) stat(kind Kind, name, full string) (Artifact, error) {
	info, err := os.Stat(full)
	if err != nil {
		return Artifact{}, mapFSErr(err)
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, ErrNotFound
	}
	return Artifact{Kind: kind, Name: name, Path: full, Size: info.Size(), Modified: info.ModTime()}, nil
}

func (s *FileStore) pathFor(kind Kind, name string) (string, error) {
	if s == nil || s.root == "" {
		return "", fmt.Errorf("store is nil")
	}
	name, err := checkKey(kind, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, string(kind), name), nil
}

func mapFSErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
