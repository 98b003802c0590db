package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

func (s *MemoryStore) Save(_ context.Context, name, text string) (*Info, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok {
		id, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		doc = &Document{Info: Info{ID: id, Name: name}}
		s.docs[name] = doc
	}
	doc.Text = text
	doc.Size = len(text)
	doc.UpdatedAt = time.Now().UTC()
	info := doc.Info
	return &info, nil
}

func (s *MemoryStore) Load(_ context.Context, name string) (*Document, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[name]
	if !ok {
		return nil, errors.NewNotFound("schematic", name)
	}
	out := *doc
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc.Info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
