package download

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/gphotos-backup/internal/http"
	ioutils "github.com/handiism/gphotos-backup/internal/io"
	"github.com/handiism/gphotos-backup/internal/model"
	"github.com/handiism/gphotos-backup/internal/photos"
)

// Defaults used when an Engine is built without the matching option.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultConcurrency = 4
)

// Fetcher streams a URL into a local file. *http.Client implements it.
type Fetcher interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) (int64, error)
}

// Refresher re-fetches a descriptor to obtain a fresh locator.
// *photos.Client implements it.
type Refresher interface {
	Refresh(ctx context.Context, d model.MediaDescriptor) (model.MediaDescriptor, error)
}

// ProgressFunc receives the number of completed items and the batch size.
// completed increases by one on every call.
type ProgressFunc func(completed, total int)

// Engine downloads descriptors with per-item retry and skip-if-exists
// semantics.
type Engine struct {
	fetcher         Fetcher
	maxAttempts     int
	refresher       Refresher
	locatorMaxAge   time.Duration
	originalQuality bool
	baseDelay       time.Duration
	sleep           func(context.Context, time.Duration) error
	now             func() time.Time
	logger          *zap.Logger

	receivedBytes atomic.Int64
	completed     atomic.Int32
	total         atomic.Int32
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithOriginalQuality selects whether locators are resolved to the original
// bytes. Enabled by default.
func WithOriginalQuality(original bool) Option {
	return func(e *Engine) {
		e.originalQuality = original
	}
}

// WithMaxAttempts sets the attempts per item used by DownloadBatch.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the backoff unit. The wait before retry n (n >= 1) is
// baseDelay * 2^(n-1).
func WithBaseDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.baseDelay = d
	}
}

// WithSleep replaces the backoff wait, mostly for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// WithClock replaces the clock used to judge locator age.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLocatorRefresher refreshes descriptors whose locator is older than
// maxAge before they are fetched.
func WithLocatorRefresher(r Refresher, maxAge time.Duration) Option {
	return func(e *Engine) {
		e.refresher = r
		e.locatorMaxAge = maxAge
	}
}

// NewEngine creates a download engine around fetcher.
func NewEngine(fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher:         fetcher,
		maxAttempts:     DefaultMaxAttempts,
		originalQuality: true,
		baseDelay:       DefaultBaseDelay,
		sleep:           waitForRetry,
		now:             time.Now,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DownloadOne fetches d into destPath.
//
// An existing file at destPath yields Skipped without any network call. A
// descriptor without a locator yields Failed("no locator"). Transport errors
// are retried up to maxAttempts times in total (DefaultMaxAttempts if
// maxAttempts < 1); any other error fails the item at once.
func (e *Engine) DownloadOne(ctx context.Context, d model.MediaDescriptor, destPath string, maxAttempts int) model.DownloadOutcome {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := e.logger.With(zap.String("media_id", d.ID), zap.String("filename", d.Filename))

	if ioutils.Exists(destPath) {
		logger.Debug("Skipping existing file", zap.String("path", destPath))
		return model.Skipped(destPath)
	}

	d = e.refresh(ctx, d, logger)

	url := photos.ResolveDownloadURL(d, e.originalQuality)
	if url == "" {
		logger.Warn("Descriptor has no locator")
		return model.Failed(model.ReasonNoLocator)
	}

	if err := ioutils.EnsureDir(filepath.Dir(destPath)); err != nil {
		logger.Warn("Cannot create destination directory", zap.Error(err))
		return model.Failed(err.Error())
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var last int64
		n, err := e.fetcher.DownloadFile(ctx, url, destPath, func(written, _ int64) {
			e.receivedBytes.Add(written - last)
			last = written
		})
		if err == nil {
			logger.Debug("Downloaded", zap.String("path", destPath), zap.Int64("bytes", n))
			return model.Succeeded(destPath, n)
		}
		e.receivedBytes.Add(-last)

		if !http.IsTransport(err) {
			logger.Warn("Download failed", zap.Error(err))
			return model.Failed(err.Error())
		}

		if attempt == maxAttempts-1 {
			logger.Warn("Download failed, giving up",
				zap.Int("attempts", maxAttempts),
				zap.Error(err))
			break
		}

		delay := e.baseDelay << attempt
		logger.Info("Retrying download",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := e.sleep(ctx, delay); err != nil {
			return model.Failed(err.Error())
		}
	}

	return model.Failed(model.ReasonExhausted)
}

// DownloadBatch downloads every descriptor into destDir with at most
// concurrency parallel workers, using the configured attempts per item.
//
// File names come from model.StagingNames, so descriptors sharing a filename
// never write the same path. The call returns once every descriptor has an
// outcome; item failures are only reflected in the returned statistics.
// progress, if non-nil, is called once per completed item.
func (e *Engine) DownloadBatch(ctx context.Context, ds []model.MediaDescriptor, destDir string, concurrency int, progress ProgressFunc) model.BatchStatistics {
	if concurrency < 1 {
		concurrency = 1
	}

	agg := &aggregator{
		stats:    model.BatchStatistics{Total: len(ds)},
		progress: progress,
	}
	e.receivedBytes.Store(0)
	e.completed.Store(0)
	e.total.Store(int32(len(ds)))

	names := model.StagingNames(ds)

	var g errgroup.Group
	g.SetLimit(concurrency)

	for _, d := range ds {
		destPath := filepath.Join(destDir, names[d.ID])
		g.Go(func() error {
			outcome := e.DownloadOne(ctx, d, destPath, e.maxAttempts)
			agg.record(d, outcome)
			e.completed.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	return agg.stats
}

// Progress returns the bytes received and items completed in the current
// batch. It is safe to call from another goroutine while a batch runs.
func (e *Engine) Progress() (receivedBytes int64, completed, total int) {
	return e.receivedBytes.Load(), int(e.completed.Load()), int(e.total.Load())
}

func (e *Engine) refresh(ctx context.Context, d model.MediaDescriptor, logger *zap.Logger) model.MediaDescriptor {
	if e.refresher == nil || e.locatorMaxAge <= 0 {
		return d
	}
	if d.HasLocator() && d.LocatorAge(e.now()) <= e.locatorMaxAge {
		return d
	}

	fresh, err := e.refresher.Refresh(ctx, d)
	if err != nil {
		logger.Warn("Cannot refresh locator, using the old one", zap.Error(err))
		return d
	}
	return fresh
}

// aggregator serializes merges into the batch statistics.
type aggregator struct {
	mu       sync.Mutex
	stats    model.BatchStatistics
	progress ProgressFunc
}

func (a *aggregator) record(d model.MediaDescriptor, o model.DownloadOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Record(d, o)
	if a.progress != nil {
		a.progress(a.stats.Completed(), a.stats.Total)
	}
}

func waitForRetry(ctx context.Context, delay time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
