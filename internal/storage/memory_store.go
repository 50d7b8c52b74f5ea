package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// MemoryStore keeps documents in process memory. Used by tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*memoryDoc
}

type memoryDoc struct {
	data    []byte
	version int
}

var _ DocumentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc)}
}

func (s *MemoryStore) Find(ctx context.Context, folder, name string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ObjectKey(folder, name)
	d, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return s.document(key, d), nil
}

func (s *MemoryStore) Download(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("download %s: %w", id, ErrNotFound)
	}
	return append([]byte(nil), d.data...), nil
}

func (s *MemoryStore) Create(ctx context.Context, folder, name string, data []byte) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ObjectKey(folder, name)
	if _, ok := s.docs[key]; ok {
		return nil, fmt.Errorf("create %s: %w", key, ErrPreconditionFailed)
	}
	d := &memoryDoc{data: append([]byte(nil), data...), version: 1}
	s.docs[key] = d
	return s.document(key, d), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, data []byte, ifMatch string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if ifMatch != "" && ifMatch != strconv.Itoa(d.version) {
		return nil, fmt.Errorf("update %s: %w", id, ErrPreconditionFailed)
	}
	d.data = append([]byte(nil), data...)
	d.version++
	return s.document(id, d), nil
}

// Keys lists every stored key in lexical order.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *MemoryStore) document(key string, d *memoryDoc) *Document {
	folder, name := splitKey(key)
	return &Document{ID: key, Name: name, Folder: folder, Version: strconv.Itoa(d.version)}
}
