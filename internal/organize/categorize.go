package organize

import (
	"slices"

	"github.com/handiism/gphotos-backup/internal/model"
	"github.com/handiism/gphotos-backup/internal/photos"
)

// Buckets maps a capture month to the descriptors taken in it. Descriptors
// keep their input order within a bucket.
type Buckets map[model.BucketKey][]model.MediaDescriptor

// Categorize routes every descriptor to its (year, month) bucket, or to
// model.UnknownBucket when its capture time is missing or malformed.
func Categorize(ds []model.MediaDescriptor) Buckets {
	b := make(Buckets)
	for _, d := range ds {
		key := BucketFor(d)
		b[key] = append(b[key], d)
	}
	return b
}

// BucketFor returns the bucket a single descriptor belongs to.
func BucketFor(d model.MediaDescriptor) model.BucketKey {
	t, ok := photos.ParseCaptureTime(d)
	if !ok || t.Year() == 0 {
		return model.UnknownBucket
	}
	return model.BucketKey{Year: t.Year(), Month: int(t.Month())}
}

// Keys returns the bucket keys in chronological order, unknown last.
func (b Buckets) Keys() []model.BucketKey {
	keys := make([]model.BucketKey, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y model.BucketKey) int {
		switch {
		case x.Less(y):
			return -1
		case y.Less(x):
			return 1
		default:
			return 0
		}
	})
	return keys
}

// All returns every descriptor, bucket by bucket in Keys order.
func (b Buckets) All() []model.MediaDescriptor {
	var all []model.MediaDescriptor
	for _, k := range b.Keys() {
		all = append(all, b[k]...)
	}
	return all
}

// Len returns the number of descriptors across all buckets.
func (b Buckets) Len() int {
	n := 0
	for _, ds := range b {
		n += len(ds)
	}
	return n
}
