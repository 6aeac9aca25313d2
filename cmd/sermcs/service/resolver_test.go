package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/libnare/sermcs/cmd/sermcs/models"
	"github.com/libnare/sermcs/cmd/sermcs/repository"
	"github.com/libnare/sermcs/common/cache"
	"github.com/libnare/sermcs/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOriginLookup struct {
	rec   *models.OriginRecord
	err   error
	calls int
}

func (f *fakeOriginLookup) FindByAccessKey(ctx context.Context, key string) (*models.OriginRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func newTestResolver(t *testing.T, lookup *fakeOriginLookup) *ResolverService {
	t.Helper()
	log := logger.New("error", "json")
	records := cache.NewMemoryCache(log)
	t.Cleanup(func() { records.Close() })
	return NewResolverService(lookup, records, time.Minute, log)
}

func TestResolver_MemoizesPositiveLookups(t *testing.T) {
	lookup := &fakeOriginLookup{rec: &models.OriginRecord{
		URL:         "http://origin/1.png",
		ContentType: "image/png",
		AccessKey:   "abc",
	}}
	r := newTestResolver(t, lookup)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "http://origin/1.png", first.URL)
	assert.Equal(t, 1, lookup.calls)

	second, err := r.Resolve(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, first.AccessKey, second.AccessKey)
	assert.Equal(t, 1, lookup.calls, "second resolve must come from the record cache")
}

func TestResolver_DoesNotMemoizeMisses(t *testing.T) {
	lookup := &fakeOriginLookup{err: repository.ErrNoMatch}
	r := newTestResolver(t, lookup)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	// The key may be created upstream at any moment, so each request hits
	// the store again.
	lookup.err = nil
	lookup.rec = &models.OriginRecord{URL: "http://origin/new", ContentType: "image/png", AccessKey: "nope"}
	rec, err := r.Resolve(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, "http://origin/new", rec.URL)
	assert.Equal(t, 2, lookup.calls)
}

func TestResolver_StoreFailureIsUnavailable(t *testing.T) {
	lookup := &fakeOriginLookup{err: errors.New("connection refused")}
	r := newTestResolver(t, lookup)

	_, err := r.Resolve(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResolver_AmbiguousKeyIsUnavailable(t *testing.T) {
	lookup := &fakeOriginLookup{err: repository.ErrMultipleMatches}
	r := newTestResolver(t, lookup)

	_, err := r.Resolve(context.Background(), "dup")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
