package digest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/studyloop/tutor-backend/internal/platform/cache"
)

// jsonCache is the part of the platform cache the digest store uses.
type jsonCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedStore wraps a Store with a Redis read-through cache. Cache
// failures are logged and never surfaced; the backing store is the
// source of truth.
type CachedStore struct {
	inner  Store
	cache  jsonCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps inner with a read-through cache.
func NewCachedStore(inner Store, c jsonCache, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func cacheKey(assignmentID string) string {
	return "digest:" + assignmentID
}

func (s *CachedStore) GetDigest(ctx context.Context, assignmentID string) (*Digest, error) {
	key := cacheKey(assignmentID)

	var cached Digest
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("digest cache read failed", "key", key, "error", err)
	}

	d, err := s.inner.GetDigest(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, d, s.ttl); err != nil {
		s.logger.Warn("digest cache write failed", "key", key, "error", err)
	}
	return d, nil
}

func (s *CachedStore) UpsertDigest(ctx context.Context, d *Digest) error {
	if err := s.inner.UpsertDigest(ctx, d); err != nil {
		return err
	}
	if err := s.cache.SetJSON(ctx, cacheKey(d.AssignmentID), d, s.ttl); err != nil {
		s.logger.Warn("digest cache write failed", "key", cacheKey(d.AssignmentID), "error", err)
	}
	return nil
}

func (s *CachedStore) SetConfirmedProblems(ctx context.Context, assignmentID string, problemIDs []string) error {
	if err := s.inner.SetConfirmedProblems(ctx, assignmentID, problemIDs); err != nil {
		return err
	}
	// Invalidate instead of rewriting; the next read repopulates.
	if err := s.cache.Delete(ctx, cacheKey(assignmentID)); err != nil {
		s.logger.Warn("digest cache invalidation failed", "key", cacheKey(assignmentID), "error", err)
	}
	return nil
}
