package artifact

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

type memoryObject struct {
	data     []byte
	modified time.Time
}

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Kind]map[string]memoryObject
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[Kind]map[string]memoryObject),
		now:  time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, kind Kind, name string, content []byte) (Artifact, error) {
	name, err := checkKey(kind, name)
	if err != nil {
		return Artifact{}, err
	}
	obj := memoryObject{data: append([]byte(nil), content...), modified: s.now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[kind] == nil {
		s.data[kind] = make(map[string]memoryObject)
	}
	s.data[kind][name] = obj
	return obj.artifact(kind, name), nil
}

func (s *MemoryStore) Open(_ context.Context, kind Kind, name string) (io.ReadCloser, Artifact, error) {
	name, err := checkKey(kind, name)
	if err != nil {
		return nil, Artifact{}, err
	}
	s.mu.RLock()
	obj, ok := s.data[kind][name]
	s.mu.RUnlock()
	if !ok {
		return nil, Artifact{}, ErrNotFound
	}
	return NopSeekCloser(bytes.NewReader(obj.data)), obj.artifact(kind, name), nil
}

func (s *MemoryStore) List(_ context.Context, kind Kind) ([]Artifact, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Artifact, 0, len(s.data[kind]))
	for name, obj := range s.data[kind] {
		out = append(out, obj.artifact(kind, name))
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, kind Kind, name string) error {
	name, err := checkKey(kind, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[kind][name]; !ok {
		return ErrNotFound
	}
	delete(s.data[kind], name)
	return nil
}

// Len reports the number of stored artifacts across kinds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, objs := range s.data {
		n += len(objs)
	}
	return n
}

func (o memoryObject) artifact(kind Kind, name string) Artifact {
	return Artifact{
		Kind:     kind,
		Name:     name,
		Path:     string(kind) + "/" + name,
		Size:     int64(len(o.data)),
		Modified: o.modified,
	}
}
