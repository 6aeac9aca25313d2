package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/libnare/sermcs/cmd/sermcs/models"
	"github.com/libnare/sermcs/cmd/sermcs/repository"
	"github.com/libnare/sermcs/common/cache"
	"github.com/libnare/sermcs/common/logger"
)

// OriginLookup is the metadata store read this service depends on
type OriginLookup interface {
	FindByAccessKey(ctx context.Context, key string) (*models.OriginRecord, error)
}

// ResolverService maps access keys to origin records, memoizing positive
// lookups in the record cache (Redis or in-process, per deployment).
// Negative lookups are not memoized: a key may be created upstream at any
// moment and should start resolving immediately.
type ResolverService struct {
	repo    OriginLookup
	records cache.Cache
	ttl     time.Duration
	log     *logger.Logger
}

// NewResolverService creates a new resolver service
func NewResolverService(repo OriginLookup, records cache.Cache, ttl time.Duration, log *logger.Logger) *ResolverService {
	return &ResolverService{
		repo:    repo,
		records: records,
		ttl:     ttl,
		log:     log,
	}
}

func resolverCacheKey(key string) string {
	return "resolve:" + key
}

// Resolve returns the origin record for a presented key.
// Errors wrap ErrNotFound (no match) or ErrStoreUnavailable (anything else
// the store did wrong, including uniqueness violations).
func (s *ResolverService) Resolve(ctx context.Context, key string) (*models.OriginRecord, error) {
	if cached, ok, err := s.records.Get(ctx, resolverCacheKey(key)); err == nil && ok {
		rec := &models.OriginRecord{}
		if err := json.Unmarshal(cached, rec); err == nil {
			s.log.Debug("resolver cache hit", "key", key)
			return rec, nil
		}
		s.log.Warn("corrupt resolver cache entry, falling through", "key", key)
	} else if err != nil {
		// A broken record cache must not take resolution down
		s.log.Warn("resolver cache read failed", "key", key, "error", err)
	}

	rec, err := s.repo.FindByAccessKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNoMatch) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if raw, err := json.Marshal(rec); err == nil {
		if err := s.records.Set(ctx, resolverCacheKey(key), raw, s.ttl); err != nil {
			s.log.Warn("resolver cache write failed", "key", key, "error", err)
		}
	}

	return rec, nil
}
