package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRole_PriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		rec      OriginRecord
		key      string
		wantRole Role
		wantOK   bool
	}{
		{
			name:     "primary match",
			rec:      OriginRecord{AccessKey: "abc", ThumbnailAccessKey: "thumb", WebPublicAccessKey: "pub"},
			key:      "abc",
			wantRole: RolePrimary,
			wantOK:   true,
		},
		{
			name:     "thumbnail match",
			rec:      OriginRecord{AccessKey: "abc", ThumbnailAccessKey: "thumb"},
			key:      "thumb",
			wantRole: RoleThumbnail,
			wantOK:   true,
		},
		{
			name:     "public match",
			rec:      OriginRecord{AccessKey: "abc", WebPublicAccessKey: "pub"},
			key:      "pub",
			wantRole: RolePublic,
			wantOK:   true,
		},
		{
			name:     "primary wins when key appears twice",
			rec:      OriginRecord{AccessKey: "same", ThumbnailAccessKey: "same"},
			key:      "same",
			wantRole: RolePrimary,
			wantOK:   true,
		},
		{
			name:   "no match",
			rec:    OriginRecord{AccessKey: "abc"},
			key:    "missing",
			wantOK: false,
		},
		{
			name:   "empty key fields never match empty key",
			rec:    OriginRecord{AccessKey: "abc"},
			key:    "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := ClassifyRole(&tt.rec, tt.key)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantRole, role)
			}
		})
	}
}

func TestClassifyRole_Deterministic(t *testing.T) {
	rec := &OriginRecord{AccessKey: "k", ThumbnailAccessKey: "k2", WebPublicAccessKey: "k3"}

	first, ok := ClassifyRole(rec, "k2")
	assert.True(t, ok)
	for i := 0; i < 100; i++ {
		role, ok := ClassifyRole(rec, "k2")
		assert.True(t, ok)
		assert.Equal(t, first, role)
	}
}

func TestCacheKeyFor(t *testing.T) {
	assert.Equal(t, "abc", CacheKeyFor("abc", RolePrimary))
	assert.Equal(t, "abc", CacheKeyFor("abc", RolePublic))
	assert.Equal(t, "abc-thumbnail", CacheKeyFor("abc", RoleThumbnail))

	// A primary artifact and its thumbnail derivative must never share a
	// cache namespace entry.
	assert.NotEqual(t, CacheKeyFor("abc", RolePrimary), CacheKeyFor("abc", RoleThumbnail))
}

func TestProfileFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        Profile
	}{
		{"video/mp4", ProfileVideo},
		{"video/webm", ProfileVideo},
		{"image/apng", ProfileAnimated},
		{"image/gif", ProfileAnimated},
		{"image/png", ProfileStatic},
		{"image/jpeg", ProfileStatic},
		{"application/octet-stream", ProfileStatic},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, ProfileFor(tt.contentType))
		})
	}
}

func TestProfileOutputContentType(t *testing.T) {
	assert.Equal(t, "image/avif", ProfileVideo.OutputContentType())
	assert.Equal(t, "image/webp", ProfileAnimated.OutputContentType())
	assert.Equal(t, "image/avif", ProfileStatic.OutputContentType())
	assert.Equal(t, "image/webp", ProfileWebPublic.OutputContentType())
}
