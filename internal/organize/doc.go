// Package organize groups downloaded media by capture date and moves the
// staged files into a date-partitioned backup tree:
//
//	backup/
//	├── 2023/
//	│   ├── 04/
//	│   └── 05/
//	│       └── a.jpg
//	└── unknown/
//
// Categorize and Statistics are pure. Organize runs sequentially and never
// overwrites a file that is already in the backup tree; the staging
// directory is expected to be cleared between runs.
package organize
