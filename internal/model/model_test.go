package model

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"IMG_0001.jpg", "IMG_0001.jpg"},
		{"file:with:colons.jpg", "file_with_colons.jpg"},
		{"dir/name.jpg", "dir_name.jpg"},
		{"back\\slash.mp4", "back_slash.mp4"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces.png", "multiple spaces.png"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMediaDescriptor_BaseName(t *testing.T) {
	tests := []struct {
		name string
		d    MediaDescriptor
		want string
	}{
		{"filename kept", MediaDescriptor{ID: "id1", Filename: "a.jpg"}, "a.jpg"},
		{"empty filename falls back to id", MediaDescriptor{ID: "id1"}, "id1.jpg"},
		{"unusable filename falls back to id", MediaDescriptor{ID: "id1", Filename: "..."}, "id1.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.BaseName(); got != tt.want {
				t.Errorf("BaseName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStagingNames_Unique(t *testing.T) {
	items := []MediaDescriptor{
		{ID: "b", Filename: "same.jpg"},
		{ID: "a", Filename: "same.jpg"},
		{ID: "c", Filename: "other.jpg"},
	}

	names := StagingNames(items)

	if len(names) != 3 {
		t.Fatalf("got %d names, want 3", len(names))
	}
	if names["a"] != "same.jpg" {
		t.Errorf("smallest id should keep plain name, got %q", names["a"])
	}
	if names["c"] != "other.jpg" {
		t.Errorf("unique filename should be kept, got %q", names["c"])
	}
	if names["b"] == "same.jpg" || !strings.HasPrefix(names["b"], "same_") || filepath.Ext(names["b"]) != ".jpg" {
		t.Errorf("duplicate should be disambiguated, got %q", names["b"])
	}
}

func TestStagingNames_OrderIndependent(t *testing.T) {
	forward := []MediaDescriptor{
		{ID: "x1", Filename: "dup.mp4"},
		{ID: "x2", Filename: "dup.mp4"},
		{ID: "x3", Filename: "dup.mp4"},
	}
	reversed := []MediaDescriptor{forward[2], forward[1], forward[0]}

	a := StagingNames(forward)
	b := StagingNames(reversed)

	for id, name := range a {
		if b[id] != name {
			t.Errorf("name for %s differs: %q vs %q", id, name, b[id])
		}
	}
}

func TestStagingNames_HashedNameAlreadyTaken(t *testing.T) {
	clash := disambiguate("same.jpg", "b", map[string]bool{})
	items := []MediaDescriptor{
		{ID: "a", Filename: "same.jpg"},
		{ID: "b", Filename: "same.jpg"},
		{ID: "c", Filename: clash},
	}

	names := StagingNames(items)

	if names["c"] != clash {
		t.Errorf("descriptor with a real filename should keep it, got %q", names["c"])
	}
	if names["b"] == clash || names["b"] == "same.jpg" {
		t.Errorf("hashed name should avoid taken names, got %q", names["b"])
	}

	seen := make(map[string]string)
	for id, name := range names {
		if other, ok := seen[name]; ok {
			t.Errorf("%s and %s share staging name %q", id, other, name)
		}
		seen[name] = id
	}

	reversed := StagingNames([]MediaDescriptor{items[2], items[1], items[0]})
	for id, name := range names {
		if reversed[id] != name {
			t.Errorf("name for %s differs: %q vs %q", id, name, reversed[id])
		}
	}
}

func TestBucketKey(t *testing.T) {
	root := filepath.Join("backup")

	if got := (BucketKey{Year: 2023, Month: 5}).Dir(root); got != filepath.Join("backup", "2023", "05") {
		t.Errorf("Dir() = %q", got)
	}
	if got := UnknownBucket.Dir(root); got != filepath.Join("backup", "unknown") {
		t.Errorf("Dir() = %q", got)
	}
	if got := (BucketKey{Year: 0, Month: 3}); !got.IsUnknown() {
		t.Error("zero year should be unknown")
	}
	if !(BucketKey{Year: 2020, Month: 12}).Less(BucketKey{Year: 2021, Month: 1}) {
		t.Error("2020-12 should sort before 2021-01")
	}
	if UnknownBucket.Less(BucketKey{Year: 1999, Month: 1}) {
		t.Error("unknown bucket should sort last")
	}
}

func TestBatchStatistics_Record(t *testing.T) {
	var stats BatchStatistics
	d := MediaDescriptor{ID: "1", Filename: "a.jpg"}

	stats.Record(d, Succeeded("/s/a.jpg", 100))
	stats.Record(d, Skipped("/s/a.jpg"))
	stats.Record(d, Failed(ReasonExhausted))

	if stats.Succeeded != 1 || stats.Skipped != 1 || stats.Failed != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.TotalBytes != 100 {
		t.Errorf("TotalBytes = %d, want 100", stats.TotalBytes)
	}
	if stats.Completed() != 3 {
		t.Errorf("Completed() = %d, want 3", stats.Completed())
	}
	if len(stats.Failures) != 1 || stats.Failures[0].Reason != ReasonExhausted {
		t.Errorf("Failures = %+v", stats.Failures)
	}
}

func TestMediaDescriptor_LocatorAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := MediaDescriptor{FetchedAt: now.Add(-61 * time.Minute)}

	if got := d.LocatorAge(now); got != 61*time.Minute {
		t.Errorf("LocatorAge() = %v", got)
	}
	if got := (MediaDescriptor{}).LocatorAge(now); got != 0 {
		t.Errorf("LocatorAge() of unknown fetch time = %v, want 0", got)
	}
}
