package model

import (
	"strings"
	"time"
)

// MediaDescriptor describes one remote photo or video.
//
// The BaseURL locator is only valid for about 60 minutes after FetchedAt;
// callers downloading late in a long run should refresh it first.
type MediaDescriptor struct {
	// ID is the opaque, unique remote identifier.
	ID string

	// Filename is the display filename. It is not guaranteed to be unique.
	Filename string

	// MimeType is the media type reported by the service, e.g. "image/jpeg".
	MimeType string

	// BaseURL is the time-limited download locator. Empty if the service
	// did not return one.
	BaseURL string

	// CreationTime is the raw ISO-8601 capture timestamp. It may be empty
	// or malformed.
	CreationTime string

	// FetchedAt is when the descriptor (and its locator) was obtained.
	FetchedAt time.Time
}

// IsVideo reports whether the descriptor's MIME type is a video type.
func (d MediaDescriptor) IsVideo() bool {
	return strings.HasPrefix(d.MimeType, "video/")
}

// HasLocator reports whether the descriptor carries a download locator.
func (d MediaDescriptor) HasLocator() bool {
	return d.BaseURL != ""
}

// LocatorAge returns how long ago the locator was issued. A descriptor with
// an unknown FetchedAt reports zero.
func (d MediaDescriptor) LocatorAge(now time.Time) time.Duration {
	if d.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(d.FetchedAt)
}

// Album is a remote album.
type Album struct {
	ID         string
	Title      string
	ItemsCount int64
	ProductURL string
}
