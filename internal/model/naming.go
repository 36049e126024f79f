package model

import (
	"encoding/hex"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"lukechampine.com/blake3"
)

// DefaultExtension is used for descriptors that carry no filename.
const DefaultExtension = ".jpg"

var (
	invalidChars       = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots       = regexp.MustCompile(`\.+$`)
	repeatedWhitespace = regexp.MustCompile(`\s+`)
)

// BaseName returns the sanitized local filename for the descriptor.
// A descriptor without a filename is named after its id.
func (d MediaDescriptor) BaseName() string {
	name := sanitizeFileName(d.Filename)
	if name == "" {
		name = sanitizeFileName(d.ID) + DefaultExtension
	}
	return name
}

// StagingNames assigns a unique local filename to every descriptor, keyed by
// descriptor id.
//
// The assignment does not depend on the order of items. Within a group of
// descriptors sharing a BaseName, the one with the smallest id keeps the
// plain name and the others get "<stem>_<hash><ext>", where hash is the
// first 8 hex digits of the blake3 digest of the id. A hashed name that is
// already taken, by another descriptor's plain name or an earlier hashed
// name, is lengthened until it is free.
func StagingNames(items []MediaDescriptor) map[string]string {
	groups := make(map[string][]string)
	for _, d := range items {
		base := d.BaseName()
		ids := groups[base]
		if !containsString(ids, d.ID) {
			groups[base] = append(ids, d.ID)
		}
	}

	bases := make([]string, 0, len(groups))
	taken := make(map[string]bool, len(items))
	for base := range groups {
		bases = append(bases, base)
		taken[base] = true
	}
	sort.Strings(bases)

	names := make(map[string]string, len(items))
	for _, base := range bases {
		ids := groups[base]
		sort.Strings(ids)
		names[ids[0]] = base
		for _, id := range ids[1:] {
			name := disambiguate(base, id, taken)
			taken[name] = true
			names[id] = name
		}
	}

	return names
}

// disambiguate returns the shortest free "<stem>_<hash><ext>" for id,
// starting at 8 hex digits. If every digest length is taken a counter is
// appended to the full digest.
func disambiguate(base, id string, taken map[string]bool) string {
	sum := blake3.Sum256([]byte(id))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 4; n <= len(sum); n += 2 {
		name := stem + "_" + hex.EncodeToString(sum[:n]) + ext
		if !taken[name] {
			return name
		}
	}

	full := stem + "_" + hex.EncodeToString(sum[:])
	for i := 2; ; i++ {
		name := full + "_" + strconv.Itoa(i) + ext
		if !taken[name] {
			return name
		}
	}
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// sanitizeFileName removes or replaces characters that are invalid in file names.
//
//	sanitizeFileName("IMG:01/2.jpg") // Returns "IMG_01_2.jpg"
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedWhitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
