package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/libnare/sermcs/cmd/sermcs/models"
	"github.com/libnare/sermcs/common/logger"
)

// extensionTable maps content types to file extensions, first match wins.
// Types absent here cache with the NoExtension sentinel and no suffix.
var extensionTable = []struct {
	contentType string
	extension   string
}{
	{"image/png", "png"},
	{"image/apng", "png"},
	{"image/jpeg", "jpg"},
	{"image/gif", "gif"},
	{"image/webp", "webp"},
	{"image/avif", "avif"},
	{"image/svg+xml", "svg"},
	{"video/mp4", "mp4"},
	{"video/webm", "webm"},
	{"video/quicktime", "mov"},
	{"audio/mpeg", "mp3"},
	{"audio/ogg", "ogg"},
	{"audio/wav", "wav"},
	{"application/pdf", "pdf"},
}

// ExtensionForType returns the cache file extension for a content type,
// or models.NoExtension when no mapping exists
func ExtensionForType(contentType string) string {
	for _, m := range extensionTable {
		if m.contentType == contentType {
			return m.extension
		}
	}
	return models.NoExtension
}

// sidecar is the on-disk metadata record stored next to each artifact
type sidecar struct {
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
}

// CacheStore maps cache keys to artifacts on durable storage. Each entry is
// a data file named by the SHA-256 of its cache key (plus extension) and a
// sidecar JSON file recording extension and content type. Entries are
// immutable once written; visibility is gated on the sidecar rename, so a
// lookup never observes a file mid-write.
type CacheStore struct {
	dir string
	log *logger.Logger
}

// NewCacheStore creates the cache directory if needed
func NewCacheStore(dir string, log *logger.Logger) (*CacheStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &CacheStore{dir: dir, log: log}, nil
}

// HashKey returns the digest used as the base filename for a cache key
func (s *CacheStore) HashKey(cacheKey string) string {
	sum := sha256.Sum256([]byte(cacheKey))
	return fmt.Sprintf("%x", sum)
}

func (s *CacheStore) sidecarPath(hash string) string {
	return filepath.Join(s.dir, hash+".meta")
}

func (s *CacheStore) dataPath(hash, extension string) string {
	if extension == models.NoExtension || extension == "" {
		return filepath.Join(s.dir, hash)
	}
	return filepath.Join(s.dir, hash+"."+extension)
}

// Lookup checks for a completed cache entry. A sidecar without its data
// file reads as a miss, not an error: a previous run may have died between
// writes, or an operator may have evicted the data file.
func (s *CacheStore) Lookup(cacheKey string) (*models.CacheEntry, bool, error) {
	hash := s.HashKey(cacheKey)

	raw, err := os.ReadFile(s.sidecarPath(hash))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache sidecar: %w", err)
	}

	var meta sidecar
	if err := json.Unmarshal(raw, &meta); err != nil {
		s.log.Warn("corrupt cache sidecar, treating as miss", "hash", hash, "error", err)
		return nil, false, nil
	}

	path := s.dataPath(hash, meta.Extension)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("cache sidecar present but data file missing", "hash", hash)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat cache data file: %w", err)
	}

	return &models.CacheEntry{
		Hash:        hash,
		Extension:   meta.Extension,
		ContentType: meta.ContentType,
		Path:        path,
	}, true, nil
}

// readTracker distinguishes source-stream failures from local write
// failures during io.Copy.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

// Write streams r to a temporary file, then atomically publishes the entry:
// data file rename first, sidecar rename second. A failure mid-stream
// removes the temporary file and never leaves a discoverable entry. Source
// stream errors wrap ErrOriginUnreachable (the interruption is the
// origin's fault); local I/O errors wrap ErrCacheWrite.
func (s *CacheStore) Write(ctx context.Context, cacheKey, contentType string, r io.Reader) (*models.CacheEntry, error) {
	hash := s.HashKey(cacheKey)
	tmpPath := filepath.Join(s.dir, "tmp-"+uuid.NewString())

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", ErrCacheWrite, err)
	}

	tracker := &readTracker{r: r}
	written, err := io.Copy(f, tracker)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		if tracker.err != nil {
			return nil, fmt.Errorf("%w: stream interrupted after %d bytes: %v", ErrOriginUnreachable, written, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheWrite, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: sync: %v", ErrCacheWrite, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: close: %v", ErrCacheWrite, err)
	}

	extension := ExtensionForType(contentType)
	finalPath := s.dataPath(hash, extension)

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: publish data file: %v", ErrCacheWrite, err)
	}

	if err := s.writeSidecar(hash, sidecar{Extension: extension, ContentType: contentType}); err != nil {
		// The unpublished data file stays behind; the next write for this
		// key overwrites it via rename.
		return nil, err
	}

	s.log.Info("cache entry written",
		"hash", hash,
		"extension", extension,
		"content_type", contentType,
		"bytes", written,
	)

	return &models.CacheEntry{
		Hash:        hash,
		Extension:   extension,
		ContentType: contentType,
		Path:        finalPath,
	}, nil
}

func (s *CacheStore) writeSidecar(hash string, meta sidecar) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: encode sidecar: %v", ErrCacheWrite, err)
	}

	tmpPath := filepath.Join(s.dir, "tmp-"+uuid.NewString())
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write sidecar: %v", ErrCacheWrite, err)
	}
	if err := os.Rename(tmpPath, s.sidecarPath(hash)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: publish sidecar: %v", ErrCacheWrite, err)
	}
	return nil
}
