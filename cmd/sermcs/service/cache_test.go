package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/libnare/sermcs/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *CacheStore {
	t.Helper()
	store, err := NewCacheStore(t.TempDir(), logger.New("error", "json"))
	require.NoError(t, err)
	return store
}

func TestCacheStore_WriteAndLookup(t *testing.T) {
	store := newTestCache(t)
	ctx := context.Background()

	entry, err := store.Write(ctx, "abc", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	wantHash := fmt.Sprintf("%x", sha256.Sum256([]byte("abc")))
	assert.Equal(t, wantHash, entry.Hash)
	assert.Equal(t, "png", entry.Extension)
	assert.Equal(t, "image/png", entry.ContentType)
	assert.True(t, strings.HasSuffix(entry.Path, wantHash+".png"))

	got, hit, err := store.Lookup("abc")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, entry.Path, got.Path)
	assert.Equal(t, "image/png", got.ContentType)

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestCacheStore_ExtensionInference(t *testing.T) {
	store := newTestCache(t)
	ctx := context.Background()

	entry, err := store.Write(ctx, "avif-key", "image/avif", strings.NewReader("avif"))
	require.NoError(t, err)
	assert.Equal(t, "avif", entry.Extension)
	assert.True(t, strings.HasSuffix(entry.Path, ".avif"))

	// Unrecognized content types cache with the sentinel and no suffix
	entry, err = store.Write(ctx, "odd-key", "application/x-unknown", strings.NewReader("??"))
	require.NoError(t, err)
	assert.Equal(t, "none", entry.Extension)
	assert.Equal(t, filepath.Base(entry.Path), entry.Hash)

	got, hit, err := store.Lookup("odd-key")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "none", got.Extension)
}

func TestCacheStore_MissWhenAbsent(t *testing.T) {
	store := newTestCache(t)

	_, hit, err := store.Lookup("never-written")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheStore_SidecarWithoutDataIsMiss(t *testing.T) {
	store := newTestCache(t)
	ctx := context.Background()

	entry, err := store.Write(ctx, "evicted", "image/png", strings.NewReader("bytes"))
	require.NoError(t, err)

	// Simulate eviction of the data file only
	require.NoError(t, os.Remove(entry.Path))

	_, hit, err := store.Lookup("evicted")
	require.NoError(t, err)
	assert.False(t, hit, "sidecar without data file must read as a miss, not an error")
}

type failingReader struct{ after int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := r.after
	if n > len(p) {
		n = len(p)
	}
	r.after -= n
	return n, nil
}

func TestCacheStore_InterruptedStreamLeavesNoEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCacheStore(dir, logger.New("error", "json"))
	require.NoError(t, err)

	_, err = store.Write(context.Background(), "broken", "image/png", &failingReader{after: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOriginUnreachable), "stream interruption surfaces as a fetch failure")

	_, hit, err := store.Lookup("broken")
	require.NoError(t, err)
	assert.False(t, hit)

	// No stray temp or partial files either
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtensionForType_FirstMatchWins(t *testing.T) {
	assert.Equal(t, "png", ExtensionForType("image/png"))
	assert.Equal(t, "png", ExtensionForType("image/apng"))
	assert.Equal(t, "jpg", ExtensionForType("image/jpeg"))
	assert.Equal(t, "avif", ExtensionForType("image/avif"))
	assert.Equal(t, "none", ExtensionForType("application/x-unknown"))
}
