package model

// OutcomeStatus is the kind of a DownloadOutcome.
type OutcomeStatus int

const (
	// OutcomeSuccess means the file was fetched and persisted.
	OutcomeSuccess OutcomeStatus = iota

	// OutcomeSkipped means a file already existed at the destination.
	OutcomeSkipped

	// OutcomeFailed means the item could not be downloaded.
	OutcomeFailed
)

// String returns a lower-case name for the status.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Failure reasons reported by the download engine.
const (
	ReasonNoLocator = "no locator"
	ReasonExhausted = "exhausted retries"
)

// DownloadOutcome is the result of downloading a single descriptor.
// Exactly one outcome is produced per descriptor per batch.
type DownloadOutcome struct {
	Status OutcomeStatus

	// Path is the persisted file (Success) or the existing file (Skipped).
	Path string

	// Bytes is the number of bytes written. Only set on Success.
	Bytes int64

	// Reason explains a Failed outcome.
	Reason string
}

// Succeeded returns a Success outcome.
func Succeeded(path string, bytes int64) DownloadOutcome {
	return DownloadOutcome{Status: OutcomeSuccess, Path: path, Bytes: bytes}
}

// Skipped returns a Skipped outcome for an already existing file.
func Skipped(existingPath string) DownloadOutcome {
	return DownloadOutcome{Status: OutcomeSkipped, Path: existingPath}
}

// Failed returns a Failed outcome.
func Failed(reason string) DownloadOutcome {
	return DownloadOutcome{Status: OutcomeFailed, Reason: reason}
}

// Failure identifies a descriptor that ended with a Failed outcome.
type Failure struct {
	ID       string
	Filename string
	Reason   string
}

// BatchStatistics aggregates the outcomes of one download batch.
//
// BatchStatistics is not safe for concurrent use; the download engine
// serializes calls to Record.
type BatchStatistics struct {
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	TotalBytes int64
	Failures   []Failure
}

// Record merges one outcome into the aggregate.
func (s *BatchStatistics) Record(d MediaDescriptor, o DownloadOutcome) {
	switch o.Status {
	case OutcomeSuccess:
		s.Succeeded++
		s.TotalBytes += o.Bytes
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
		s.Failures = append(s.Failures, Failure{ID: d.ID, Filename: d.Filename, Reason: o.Reason})
	}
}

// Completed returns the number of items that produced an outcome.
func (s BatchStatistics) Completed() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// OrganizeResult counts the files handled by one organize pass.
type OrganizeResult struct {
	Moved  int
	Failed int
}
