package service

import "errors"

// Error taxonomy. Every failure on the serving path wraps exactly one of
// these sentinels so handlers can map it to an HTTP status with errors.Is.
var (
	// ErrNotFound: the presented key resolves to no media record
	ErrNotFound = errors.New("access key not found")

	// ErrStoreUnavailable: the metadata store could not be queried
	ErrStoreUnavailable = errors.New("metadata store unavailable")

	// ErrOriginUnreachable: connecting to the origin failed
	ErrOriginUnreachable = errors.New("origin unreachable")

	// ErrUpstreamStatus: the origin answered with a non-2xx status
	ErrUpstreamStatus = errors.New("origin returned non-success status")

	// ErrContentTypeMismatch: observed content type contradicts the
	// declared one; nothing is persisted
	ErrContentTypeMismatch = errors.New("origin content type mismatch")

	// ErrTranscodeFailed: the external transcoder exited non-zero or
	// produced no output
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrCacheWrite: the cache directory rejected a write (disk full,
	// permissions)
	ErrCacheWrite = errors.New("cache write failed")
)
