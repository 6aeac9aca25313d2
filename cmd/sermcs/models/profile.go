package models

import "strings"

// Profile is the transcode parameter set selected from a declared content
// type. Recomputed per request, never persisted.
type Profile int

const (
	// ProfileVideo extracts one representative frame and scales it to fit
	// 498x422, output image/avif.
	ProfileVideo Profile = iota
	// ProfileAnimated scales to fit 374x317 preserving looping, output
	// image/webp.
	ProfileAnimated
	// ProfileStatic scales to fit 498x422, output image/avif.
	ProfileStatic
	// ProfileWebPublic is a full-resolution re-encode capped at 2048x2048,
	// selected by the coordinator for the public role rather than by
	// content-type classification.
	ProfileWebPublic
)

// String returns the profile name for logging
func (p Profile) String() string {
	switch p {
	case ProfileVideo:
		return "video"
	case ProfileAnimated:
		return "animated"
	case ProfileStatic:
		return "static"
	case ProfileWebPublic:
		return "webpublic"
	default:
		return "unknown"
	}
}

// ProfileFor classifies a declared content type, first match wins
func ProfileFor(contentType string) Profile {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return ProfileVideo
	case contentType == "image/apng" || contentType == "image/gif":
		return ProfileAnimated
	default:
		return ProfileStatic
	}
}

// OutputContentType returns the content type a profile produces
func (p Profile) OutputContentType() string {
	switch p {
	case ProfileAnimated, ProfileWebPublic:
		return "image/webp"
	default:
		return "image/avif"
	}
}
