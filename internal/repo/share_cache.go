package repo

import (
	"Go_Share/model"
	"context"
	"errors"
	"log"
	"time"
)

// cachedShare keeps the password hash, which model.ShareRecord hides from JSON.
type cachedShare struct {
	model.ShareRecord
	PasswordHash string `json:"password_hash"`
}

// CachedShareStore is a read-through token cache in front of a ShareStore.
// Every mutation drops the token's entry, so counters are at most one TTL stale
// only for writers that bypass this store.
type CachedShareStore struct {
	next  ShareStore
	cache Cache
	ttl   time.Duration
}

// NewCachedShareStore wraps next with cache.
func NewCachedShareStore(next ShareStore, cache Cache, ttl time.Duration) *CachedShareStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedShareStore{next: next, cache: cache, ttl: ttl}
}

func (s *CachedShareStore) Create(ctx context.Context, share *model.ShareRecord) error {
	return s.next.Create(ctx, share)
}

func (s *CachedShareStore) GetByToken(ctx context.Context, token string) (*model.ShareRecord, error) {
	key := BuildCacheKey(CacheKeyShareToken, token)
	var hit cachedShare
	err := s.cache.Get(ctx, key, &hit)
	if err == nil {
		share := hit.ShareRecord
		share.PasswordHash = hit.PasswordHash
		return &share, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Printf("share cache: get %s failed: %v", key, err)
	}

	share, err := s.next.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	ttl := s.ttl
	if share.ExpiresAt != nil {
		if until := time.Until(*share.ExpiresAt); until > 0 && until < ttl {
			ttl = until
		}
	}
	entry := cachedShare{ShareRecord: *share, PasswordHash: share.PasswordHash}
	if err := s.cache.Set(ctx, key, entry, ttl); err != nil {
		log.Printf("share cache: set %s failed: %v", key, err)
	}
	return share, nil
}

func (s *CachedShareStore) GetByID(ctx context.Context, id string) (*model.ShareRecord, error) {
	return s.next.GetByID(ctx, id)
}

func (s *CachedShareStore) ListByOwner(ctx context.Context, ownerID uint64) ([]model.ShareRecord, error) {
	return s.next.ListByOwner(ctx, ownerID)
}

func (s *CachedShareStore) Deactivate(ctx context.Context, id string) error {
	if err := s.next.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedShareStore) Delete(ctx context.Context, id string) error {
	share, err := s.next.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	s.dropToken(ctx, share.Token)
	return nil
}

func (s *CachedShareStore) IncrementAccess(ctx context.Context, id string) error {
	if err := s.next.IncrementAccess(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedShareStore) AddUpload(ctx context.Context, id string, deltaBytes int64) error {
	if err := s.next.AddUpload(ctx, id, deltaBytes); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedShareStore) invalidate(ctx context.Context, id string) {
	share, err := s.next.GetByID(ctx, id)
	if err != nil {
		log.Printf("share cache: lookup %s for invalidation failed: %v", id, err)
		return
	}
	s.dropToken(ctx, share.Token)
}

func (s *CachedShareStore) dropToken(ctx context.Context, token string) {
	key := BuildCacheKey(CacheKeyShareToken, token)
	if err := s.cache.Delete(ctx, key); err != nil {
		log.Printf("share cache: delete %s failed: %v", key, err)
	}
}
