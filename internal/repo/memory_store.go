package repo

import (
	"Go_Share/model"
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryShareStore is an in-process ShareStore used by tests and local runs.
type MemoryShareStore struct {
	mu      sync.RWMutex
	byID    map[string]*model.ShareRecord
	byToken map[string]string
}

// NewMemoryShareStore creates an empty store.
func NewMemoryShareStore() *MemoryShareStore {
	return &MemoryShareStore{
		byID:    make(map[string]*model.ShareRecord),
		byToken: make(map[string]string),
	}
}

func (s *MemoryShareStore) Create(_ context.Context, share *model.ShareRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[share.ID]; ok {
		return errors.New("duplicate share id")
	}
	if _, ok := s.byToken[share.Token]; ok {
		return errors.New("duplicate share token")
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now()
	}
	cp := *share
	s.byID[share.ID] = &cp
	s.byToken[share.Token] = share.ID
	return nil
}

func (s *MemoryShareStore) GetByToken(_ context.Context, token string) (*model.ShareRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, ErrShareNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryShareStore) GetByID(_ context.Context, id string) (*model.ShareRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	share, ok := s.byID[id]
	if !ok {
		return nil, ErrShareNotFound
	}
	cp := *share
	return &cp, nil
}

func (s *MemoryShareStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.ShareRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ShareRecord, 0)
	for _, share := range s.byID {
		if share.OwnerID == ownerID {
			out = append(out, *share)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryShareStore) Deactivate(_ context.Context, id string) error {
	return s.mutate(id, func(share *model.ShareRecord) { share.IsActive = false })
}

func (s *MemoryShareStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	share, ok := s.byID[id]
	if !ok {
		return ErrShareNotFound
	}
	delete(s.byToken, share.Token)
	delete(s.byID, id)
	return nil
}

func (s *MemoryShareStore) IncrementAccess(_ context.Context, id string) error {
	return s.mutate(id, func(share *model.ShareRecord) { share.AccessCount++ })
}

func (s *MemoryShareStore) AddUpload(_ context.Context, id string, deltaBytes int64) error {
	return s.mutate(id, func(share *model.ShareRecord) {
		share.UploadCount++
		share.TotalUploadedBytes += deltaBytes
	})
}

func (s *MemoryShareStore) mutate(id string, fn func(*model.ShareRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	share, ok := s.byID[id]
	if !ok {
		return ErrShareNotFound
	}
	fn(share)
	return nil
}
