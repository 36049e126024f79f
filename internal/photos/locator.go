package photos

import (
	"time"

	"github.com/handiism/gphotos-backup/internal/model"
)

// Locator modifiers selecting the original bytes of a photo or video.
const (
	photoOriginalSuffix = "=d"
	videoOriginalSuffix = "=dv"
)

// captureTimeLayouts are tried in order by ParseCaptureTime.
var captureTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ResolveDownloadURL derives the fetch URL for a descriptor.
//
// With originalQuality the locator gets "=dv" for video MIME types and "=d"
// otherwise; without it the locator is returned unchanged. A descriptor
// without a locator yields "".
//
//	ResolveDownloadURL(model.MediaDescriptor{BaseURL: "X", MimeType: "video/mp4"}, true) // "X=dv"
func ResolveDownloadURL(d model.MediaDescriptor, originalQuality bool) string {
	if !d.HasLocator() {
		return ""
	}
	if !originalQuality {
		return d.BaseURL
	}
	if d.IsVideo() {
		return d.BaseURL + videoOriginalSuffix
	}
	return d.BaseURL + photoOriginalSuffix
}

// ParseCaptureTime parses the descriptor's ISO-8601 creation time.
// An empty or malformed value reports false; it is never an error.
func ParseCaptureTime(d model.MediaDescriptor) (time.Time, bool) {
	if d.CreationTime == "" {
		return time.Time{}, false
	}
	for _, layout := range captureTimeLayouts {
		if t, err := time.Parse(layout, d.CreationTime); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
