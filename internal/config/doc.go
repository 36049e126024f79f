// Package config provides configuration management for gphotos-backup.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Building the zap logger
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Backs up to ~/gphotos-backup/backup/YYYY/MM
//	// Stages downloads in ~/gphotos-backup/staging
//	// 4 workers, 3 attempts per file
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/settings.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// Directory values may start with "~"; Load expands them.
//
// # Saving Settings
//
//	settings.Workers = 8
//	err := settings.Save("/path/to/settings.json")
//
// # Logging
//
//	logger, err := settings.Log.Build()
//
// Durations are stored as seconds so the file stays easy to edit by hand.
package config
