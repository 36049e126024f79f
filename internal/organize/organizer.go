package organize

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	ioutils "github.com/handiism/gphotos-backup/internal/io"
	"github.com/handiism/gphotos-backup/internal/model"
)

// Organizer moves staged files into the backup tree.
type Organizer struct {
	logger *zap.Logger
}

// NewOrganizer creates an Organizer. A nil logger discards output.
func NewOrganizer(logger *zap.Logger) *Organizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Organizer{logger: logger}
}

// Organize moves every regular file in stagingDir to its bucket directory
// below backupRoot.
//
// Files are matched to descriptors by the names model.StagingNames assigns,
// the same names the download engine writes. Unmatched files go to the
// unknown directory. Placeholder files and subdirectories are ignored.
//
// A file that cannot be moved, including one whose destination is already
// occupied, stays in staging and is counted in Failed. Only a failure to read
// stagingDir is returned as an error.
func (o *Organizer) Organize(b Buckets, stagingDir, backupRoot string) (model.OrganizeResult, error) {
	var result model.OrganizeResult

	index := reverseIndex(b)

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return result, goerr.Wrap(err, "failed to read staging directory", goerr.V("dir", stagingDir))
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || ioutils.IsPlaceholder(entry.Name()) {
			continue
		}

		name := entry.Name()
		key, ok := index[name]
		if !ok {
			key = model.UnknownBucket
		}

		src := filepath.Join(stagingDir, name)
		dst := filepath.Join(key.Dir(backupRoot), name)

		if err := ioutils.MoveFile(src, dst); err != nil {
			o.logger.Warn("Cannot move file",
				zap.String("src", src),
				zap.String("dst", dst),
				zap.Error(err))
			result.Failed++
			continue
		}

		o.logger.Debug("Moved file", zap.String("dst", dst), zap.Stringer("bucket", key))
		result.Moved++
	}

	return result, nil
}

// reverseIndex maps staging filenames to buckets.
func reverseIndex(b Buckets) map[string]model.BucketKey {
	names := model.StagingNames(b.All())

	index := make(map[string]model.BucketKey, len(names))
	for key, ds := range b {
		for _, d := range ds {
			index[names[d.ID]] = key
		}
	}
	return index
}
