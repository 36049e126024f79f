// Package model defines the core data structures shared by the catalog
// client, the download engine and the organizer.
//
// # MediaDescriptor
//
// MediaDescriptor is the metadata record of one remote photo or video:
//
//	d := model.MediaDescriptor{ID: "AF1Q", Filename: "a.jpg", MimeType: "image/jpeg"}
//	fmt.Println(d.IsVideo(), d.HasLocator())
//
// Descriptors are created per API page, live for one run and are passed by
// value downstream.
//
// # Outcomes and Statistics
//
// DownloadOutcome is the per-item result of a download (Success, Skipped or
// Failed). BatchStatistics aggregates outcomes for a whole batch:
//
//	var stats model.BatchStatistics
//	stats.Record(d, model.Succeeded("/staging/a.jpg", 1024))
//
// # Buckets
//
// BucketKey is a (year, month) pair; the zero value is the "unknown" bucket
// used for items without a parseable capture time.
//
// # Staging Names
//
// StagingNames assigns every descriptor a unique local filename. Items that
// share a remote filename are disambiguated by a short hash of their id.
package model
