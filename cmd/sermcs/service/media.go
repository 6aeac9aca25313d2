package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/libnare/sermcs/cmd/sermcs/models"
	"github.com/libnare/sermcs/common/logger"
	"golang.org/x/sync/singleflight"
)

// Resolver maps a presented access key to its origin record
type Resolver interface {
	Resolve(ctx context.Context, key string) (*models.OriginRecord, error)
}

// ArtifactFetcher streams origin objects, validating content types
type ArtifactFetcher interface {
	Fetch(ctx context.Context, originURL, declaredType string) (*OriginResponse, error)
	FetchToFile(ctx context.Context, originURL, declaredType, dstPath string) error
}

// ThumbnailDeriver produces renditions via the external transcoder
type ThumbnailDeriver interface {
	Derive(ctx context.Context, srcPath, declaredType string) (string, string, error)
	DeriveWebPublic(ctx context.Context, srcPath, declaredType string) (string, string, error)
}

// ServeResult is everything the transport layer needs to answer a request
type ServeResult struct {
	Path               string
	ContentType        string
	ContentDisposition string
	Role               models.Role
	FromCache          bool
}

// populated is the shared result of one fetch-or-derive flight
type populated struct {
	entry       *models.CacheEntry
	disposition string
}

// MediaService coordinates a request: resolve key, classify role, consult
// the cache, and on a miss fetch (and for derived roles transcode) exactly
// once per cache key regardless of how many requests arrive concurrently.
type MediaService struct {
	resolver  Resolver
	cache     *CacheStore
	fetcher   ArtifactFetcher
	deriver   ThumbnailDeriver
	tempDir   string
	webPublic bool
	group     singleflight.Group
	log       *logger.Logger
}

// NewMediaService creates the request coordinator. webPublic selects
// whether the public role serves a capped re-encode instead of the raw
// artifact.
func NewMediaService(resolver Resolver, cache *CacheStore, fetcher ArtifactFetcher, deriver ThumbnailDeriver, tempDir string, webPublic bool, log *logger.Logger) *MediaService {
	return &MediaService{
		resolver:  resolver,
		cache:     cache,
		fetcher:   fetcher,
		deriver:   deriver,
		tempDir:   tempDir,
		webPublic: webPublic,
		log:       log,
	}
}

// Serve turns an access key into a cached artifact path and content type
func (s *MediaService) Serve(ctx context.Context, key string) (*ServeResult, error) {
	rec, err := s.resolver.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	role, ok := models.ClassifyRole(rec, key)
	if !ok {
		// The resolver matched this key, so a memoized record must have
		// gone stale relative to the store.
		return nil, fmt.Errorf("%w: record no longer carries key", ErrNotFound)
	}

	cacheKey := models.CacheKeyFor(key, role)

	entry, hit, err := s.cache.Lookup(cacheKey)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if hit {
		s.log.Debug("cache hit", "key", key, "role", role.String(), "hash", entry.Hash)
		return &ServeResult{
			Path:        entry.Path,
			ContentType: entry.ContentType,
			Role:        role,
			FromCache:   true,
		}, nil
	}

	// The flight is shared across requests, so it must not die with the
	// first caller; the fetch and transcode carry their own timeouts.
	popCtx := context.WithoutCancel(ctx)

	v, err, shared := s.group.Do(cacheKey, func() (interface{}, error) {
		// A concurrent flight may have completed while this one queued
		if entry, ok, err := s.cache.Lookup(cacheKey); err == nil && ok {
			return populated{entry: entry}, nil
		}
		return s.populate(popCtx, rec, role, cacheKey)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("request joined in-flight population", "key", key)
	}

	p := v.(populated)
	result := &ServeResult{
		Path:        p.entry.Path,
		ContentType: p.entry.ContentType,
		Role:        role,
	}
	if role == models.RolePrimary {
		result.ContentDisposition = p.disposition
	}
	return result, nil
}

// populate runs the miss path for one cache key
func (s *MediaService) populate(ctx context.Context, rec *models.OriginRecord, role models.Role, cacheKey string) (populated, error) {
	switch role {
	case models.RoleThumbnail:
		return s.populateDerived(ctx, rec, cacheKey, s.deriver.Derive)
	case models.RolePublic:
		if s.webPublic {
			return s.populateDerived(ctx, rec, cacheKey, s.deriver.DeriveWebPublic)
		}
		return s.populateRaw(ctx, rec, cacheKey)
	default:
		return s.populateRaw(ctx, rec, cacheKey)
	}
}

// populateRaw streams the origin object straight into the cache
func (s *MediaService) populateRaw(ctx context.Context, rec *models.OriginRecord, cacheKey string) (populated, error) {
	resp, err := s.fetcher.Fetch(ctx, rec.URL, rec.ContentType)
	if err != nil {
		return populated{}, err
	}
	defer resp.Body.Close()

	entry, err := s.cache.Write(ctx, cacheKey, resp.ContentType, resp.Body)
	if err != nil {
		return populated{}, err
	}

	return populated{entry: entry, disposition: resp.ContentDisposition}, nil
}

// populateDerived downloads the origin object to a transient location
// outside the cache namespace, transcodes it, and caches only the derived
// artifact. The transient source survives a transcode failure so a retry
// skips the re-fetch; it is removed once the derivative is cached.
func (s *MediaService) populateDerived(ctx context.Context, rec *models.OriginRecord, cacheKey string, derive func(context.Context, string, string) (string, string, error)) (populated, error) {
	srcPath := filepath.Join(s.tempDir, s.cache.HashKey(cacheKey)+".src")

	if _, err := os.Stat(srcPath); err != nil {
		if err := s.fetcher.FetchToFile(ctx, rec.URL, rec.ContentType, srcPath); err != nil {
			return populated{}, err
		}
	} else {
		s.log.Info("reusing transient source artifact", "src", srcPath)
	}

	outPath, outType, err := derive(ctx, srcPath, rec.ContentType)
	if err != nil {
		return populated{}, err
	}
	defer os.Remove(outPath)

	f, err := os.Open(outPath)
	if err != nil {
		return populated{}, fmt.Errorf("%w: open derived artifact: %v", ErrCacheWrite, err)
	}
	defer f.Close()

	entry, err := s.cache.Write(ctx, cacheKey, outType, f)
	if err != nil {
		return populated{}, err
	}

	os.Remove(srcPath)

	return populated{entry: entry}, nil
}
