package models

// Role identifies which access key of a media record a request presented
type Role int

const (
	RolePrimary Role = iota
	RoleThumbnail
	RolePublic
)

// String returns the role name for logging
func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleThumbnail:
		return "thumbnail"
	case RolePublic:
		return "public"
	default:
		return "unknown"
	}
}

// OriginRecord is one row of the media metadata table. The record is owned
// by the upstream system; this service only reads it. ContentType is
// asserted by the metadata store and may disagree with what the origin
// actually serves.
type OriginRecord struct {
	URL                string `json:"url"`
	ContentType        string `json:"type"`
	AccessKey          string `json:"access_key"`
	ThumbnailAccessKey string `json:"thumbnail_access_key"`
	WebPublicAccessKey string `json:"webpublic_access_key"`
}

// ClassifyRole matches the presented key against the record's key fields in
// priority order primary > thumbnail > public. Empty key fields never match.
func ClassifyRole(rec *OriginRecord, key string) (Role, bool) {
	switch {
	case rec.AccessKey != "" && rec.AccessKey == key:
		return RolePrimary, true
	case rec.ThumbnailAccessKey != "" && rec.ThumbnailAccessKey == key:
		return RoleThumbnail, true
	case rec.WebPublicAccessKey != "" && rec.WebPublicAccessKey == key:
		return RolePublic, true
	default:
		return 0, false
	}
}

// thumbnailDiscriminator keeps a thumbnail derivative from colliding with
// its source artifact in the cache namespace.
const thumbnailDiscriminator = "-thumbnail"

// CacheKeyFor derives the cache namespace key for a presented key and role
func CacheKeyFor(key string, role Role) string {
	if role == RoleThumbnail {
		return key + thumbnailDiscriminator
	}
	return key
}

// NoExtension is the sidecar sentinel for content types with no known
// file extension.
const NoExtension = "none"

// CacheEntry describes one fully written cached artifact
type CacheEntry struct {
	Hash        string `json:"hash"`
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
	Path        string `json:"-"`
}
