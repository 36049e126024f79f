package model

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// UnknownDir is the directory name used for items without a capture date.
const UnknownDir = "unknown"

// BucketKey groups descriptors by capture year and month.
//
// The zero value is the "unknown" bucket.
type BucketKey struct {
	Year  int
	Month int
}

// UnknownBucket is the sentinel bucket for descriptors without a usable
// capture time.
var UnknownBucket = BucketKey{}

// IsUnknown reports whether the key is the unknown sentinel. A zero year is
// treated as unknown regardless of the month.
func (k BucketKey) IsUnknown() bool {
	return k.Year == 0
}

// String formats the key as "YYYY-MM" or "unknown".
func (k BucketKey) String() string {
	if k.IsUnknown() {
		return UnknownDir
	}
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Dir returns the directory for the bucket below root:
// root/YYYY/MM, or root/unknown.
func (k BucketKey) Dir(root string) string {
	if k.IsUnknown() {
		return filepath.Join(root, UnknownDir)
	}
	return filepath.Join(root, strconv.Itoa(k.Year), fmt.Sprintf("%02d", k.Month))
}

// Less orders keys chronologically with the unknown bucket last.
func (k BucketKey) Less(other BucketKey) bool {
	if k.IsUnknown() != other.IsUnknown() {
		return other.IsUnknown()
	}
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}
