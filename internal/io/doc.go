// Package ioutils provides file system utilities for gphotos-backup.
//
// This package contains functions for:
//   - Moving files between directories and volumes
//   - Directory creation and staging cleanup
//   - Home directory expansion of configured paths
//   - Human-readable byte sizes
//
// # File Operations
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/backup/2023/05")
//
//	// Move a staged file into the backup tree
//	err := ioutils.MoveFile("/staging/a.jpg", "/backup/2023/05/a.jpg")
//
// # Paths
//
//	dir, err := ioutils.ExpandPath("~/Pictures/backup")
package ioutils
