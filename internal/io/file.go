package ioutils

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/natefinch/atomic"
)

// PlaceholderFile is kept in otherwise empty directories and is never treated
// as media.
const PlaceholderFile = ".gitkeep"

// ErrDestinationExists is returned by MoveFile when the target is occupied.
var ErrDestinationExists = errors.New("destination already exists")

// IsPlaceholder reports whether name is a housekeeping file.
func IsPlaceholder(name string) bool {
	return name == PlaceholderFile
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists reports whether something exists at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// MoveFile moves src to dst, creating dst's parent directories.
//
// An occupied dst is never overwritten; ErrDestinationExists is returned and
// src is left in place. When src and dst are on different volumes the file is
// copied atomically and src removed afterwards.
func MoveFile(src, dst string) error {
	if Exists(dst) {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	return copyAcrossDevices(src, dst)
}

// copyAcrossDevices copies src to dst atomically, keeping src's permissions,
// then removes src.
func copyAcrossDevices(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	err = atomic.WriteFile(dst, bufio.NewReader(f))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}

	return os.Remove(src)
}

// ClearDir removes every regular file directly inside dir except the
// placeholder. Subdirectories are left untouched. It returns the number of
// removed files.
func ClearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var removed int
	for _, e := range entries {
		if !e.Type().IsRegular() || IsPlaceholder(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// ExpandPath expands a leading "~" to the user's home directory and cleans
// the result.
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

// HomeDir returns the user's home directory, or "." if it cannot be found.
func HomeDir() string {
	dir, err := homedir.Dir()
	if err != nil {
		return "."
	}
	return dir
}

// FormatBytes renders a byte count with one decimal and a binary unit.
//
//	FormatBytes(1536) // Returns "1.5 KB"
func FormatBytes(size int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(size)
	for _, unit := range units {
		if value < 1024.0 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", value)
}
