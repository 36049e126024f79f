package backup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"github.com/handiism/gphotos-backup/internal/auth"
	"github.com/handiism/gphotos-backup/internal/config"
	"github.com/handiism/gphotos-backup/internal/download"
	httpclient "github.com/handiism/gphotos-backup/internal/http"
	ioutils "github.com/handiism/gphotos-backup/internal/io"
	"github.com/handiism/gphotos-backup/internal/model"
	"github.com/handiism/gphotos-backup/internal/organize"
	"github.com/handiism/gphotos-backup/internal/photos"
)

// listProgressEvery is how often, in items, enumeration progress is reported.
const listProgressEvery = 500

// Level indicates the severity of an Event.
type Level int

const (
	LevelInfo Level = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// Event is a human-readable progress message.
type Event struct {
	Message string
	Level   Level
}

// Hooks lets a front-end observe and steer a run. All fields are optional.
type Hooks struct {
	// OnEvent receives progress messages.
	OnEvent func(Event)

	// OnProgress receives per-item download progress.
	OnProgress download.ProgressFunc

	// Confirm is asked before downloading starts. Returning false ends the
	// run without downloading. A nil Confirm proceeds.
	Confirm func(stats organize.Stats) bool

	// Prompt shows the authorization URL during first-time consent.
	Prompt func(authURL string)
}

func (h Hooks) event(level Level, format string, args ...any) {
	if h.OnEvent != nil {
		h.OnEvent(Event{Message: fmt.Sprintf(format, args...), Level: level})
	}
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Stats     organize.Stats
	Download  model.BatchStatistics
	Organize  model.OrganizeResult
	Declined  bool
	StartedAt time.Time
	Elapsed   time.Duration
}

// Runner executes backups for one configuration.
type Runner struct {
	settings   *config.Settings
	logger     *zap.Logger
	auth       *auth.Manager
	httpClient *http.Client
	basePath   string
	fetcher    download.Fetcher
	sleep      func(context.Context, time.Duration) error

	engine atomic.Pointer[download.Engine]
}

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient uses client for catalog requests instead of one authorized
// by the credentials directory.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.httpClient = client
	}
}

// WithCatalogBasePath points the catalog client at another API root.
func WithCatalogBasePath(basePath string) Option {
	return func(r *Runner) {
		r.basePath = basePath
	}
}

// WithFetcher replaces the media downloader.
func WithFetcher(f download.Fetcher) Option {
	return func(r *Runner) {
		r.fetcher = f
	}
}

// WithSleep replaces the retry wait of the catalog client and the engine.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// NewRunner validates settings and creates a Runner.
func NewRunner(settings *config.Settings, logger *zap.Logger, opts ...Option) (*Runner, error) {
	if err := settings.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid settings")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		settings: settings,
		logger:   logger,
		fetcher:  httpclient.NewClient(settings.RequestTimeoutDuration()),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.auth = auth.NewManager(settings.CredentialsDir,
		auth.WithLogger(logger.Named("auth")),
		auth.WithRedirectPort(settings.RedirectPort),
		auth.WithTimeout(settings.RequestTimeoutDuration()),
	)

	return r, nil
}

// Auth returns the credential manager.
func (r *Runner) Auth() *auth.Manager {
	return r.auth
}

// Authenticate makes sure a valid credential exists, running the consent
// flow when needed.
func (r *Runner) Authenticate(ctx context.Context, hooks Hooks) error {
	if r.httpClient != nil {
		return nil
	}
	if hooks.Prompt != nil {
		auth.WithPrompt(hooks.Prompt)(r.auth)
	}
	if _, err := r.auth.Credential(ctx); err != nil {
		return err
	}
	return nil
}

// Revoke deletes the cached token.
func (r *Runner) Revoke() (bool, error) {
	return r.auth.Revoke()
}

// Clean removes every staged file except the placeholder and returns how
// many files were removed.
func (r *Runner) Clean() (int, error) {
	n, err := ioutils.ClearDir(r.settings.StagingDir)
	if err != nil {
		return n, goerr.Wrap(err, "failed to clear staging directory", goerr.V("dir", r.settings.StagingDir))
	}
	return n, nil
}

// Progress returns the download progress of the running batch.
func (r *Runner) Progress() (receivedBytes int64, completed, total int) {
	if e := r.engine.Load(); e != nil {
		return e.Progress()
	}
	return 0, 0, 0
}

// Catalog enumerates the whole library.
func (r *Runner) Catalog(ctx context.Context, hooks Hooks) ([]model.MediaDescriptor, error) {
	client, err := r.catalogClient(ctx, hooks)
	if err != nil {
		return nil, err
	}

	return r.list(ctx, client, hooks)
}

func (r *Runner) list(ctx context.Context, client *photos.Client, hooks Hooks) ([]model.MediaDescriptor, error) {
	var items []model.MediaDescriptor
	for d, err := range client.ListAll(ctx, r.settings.PageSize) {
		if err != nil {
			return items, err
		}
		items = append(items, d)
		if len(items)%listProgressEvery == 0 {
			hooks.event(LevelVerbose, "Fetched %d items...", len(items))
		}
	}

	hooks.event(LevelSuccess, "Found %d photos/videos", len(items))
	return items, nil
}

// Albums lists the library's albums.
func (r *Runner) Albums(ctx context.Context, hooks Hooks) ([]model.Album, error) {
	client, err := r.catalogClient(ctx, hooks)
	if err != nil {
		return nil, err
	}

	var albums []model.Album
	for a, err := range client.ListAlbums(ctx, photos.MaxAlbumPageSize) {
		if err != nil {
			return albums, err
		}
		albums = append(albums, a)
	}
	return albums, nil
}

// Run performs a full backup.
//
// Setup failures (credentials, directories, enumeration) are returned as
// errors. Per-item download and organize failures are only counted in the
// report.
func (r *Runner) Run(ctx context.Context, hooks Hooks) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID))
	defer func() { report.Elapsed = time.Since(report.StartedAt) }()

	for _, dir := range []string{r.settings.StagingDir, r.settings.BackupDir} {
		if err := ioutils.EnsureDir(dir); err != nil {
			return nil, goerr.Wrap(err, "failed to create directory", goerr.V("dir", dir))
		}
	}

	hooks.event(LevelInfo, "Step 1/4: authenticating")
	client, err := r.catalogClient(ctx, hooks)
	if err != nil {
		logger.Error("Authentication failed", zap.Error(err))
		return nil, err
	}

	hooks.event(LevelInfo, "Step 2/4: fetching the library")
	items, err := r.list(ctx, client, hooks)
	if err != nil {
		logger.Error("Listing failed", zap.Int("items", len(items)), zap.Error(err))
		return nil, err
	}
	logger.Info("Library enumerated", zap.Int("items", len(items)))

	hooks.event(LevelInfo, "Step 3/4: grouping by month")
	buckets := organize.Categorize(items)
	report.Stats = organize.Statistics(buckets)

	if len(items) == 0 {
		hooks.event(LevelWarning, "The library is empty")
		return report, nil
	}

	if hooks.Confirm != nil && !hooks.Confirm(report.Stats) {
		report.Declined = true
		hooks.event(LevelWarning, "Backup cancelled")
		return report, nil
	}

	hooks.event(LevelInfo, "Step 4/4: downloading to %s", r.settings.StagingDir)
	engine := r.newEngine(client, logger)
	r.engine.Store(engine)
	report.Download = engine.DownloadBatch(ctx, items, r.settings.StagingDir, r.settings.Workers, hooks.OnProgress)
	logger.Info("Download finished",
		zap.Int("succeeded", report.Download.Succeeded),
		zap.Int("skipped", report.Download.Skipped),
		zap.Int("failed", report.Download.Failed),
		zap.Int64("bytes", report.Download.TotalBytes))

	hooks.event(LevelInfo, "Organizing into %s", r.settings.BackupDir)
	result, err := organize.NewOrganizer(logger.Named("organize")).Organize(buckets, r.settings.StagingDir, r.settings.BackupDir)
	if err != nil {
		return nil, err
	}
	report.Organize = result
	logger.Info("Organize finished", zap.Int("moved", result.Moved), zap.Int("failed", result.Failed))

	if report.Download.Failed > 0 || result.Failed > 0 {
		hooks.event(LevelWarning, "Backup finished with %d download and %d organize failure(s)", report.Download.Failed, result.Failed)
	} else {
		hooks.event(LevelSuccess, "Backup complete")
	}

	return report, nil
}

func (r *Runner) catalogClient(ctx context.Context, hooks Hooks) (*photos.Client, error) {
	httpClient := r.httpClient
	if httpClient == nil {
		if err := r.Authenticate(ctx, hooks); err != nil {
			return nil, err
		}
		c, err := r.auth.HTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		httpClient = c
	}

	opts := []photos.Option{photos.WithLogger(r.logger.Named("photos"))}
	if r.basePath != "" {
		opts = append(opts, photos.WithBasePath(r.basePath))
	}
	if r.sleep != nil {
		opts = append(opts, photos.WithSleep(r.sleep))
	}
	return photos.NewClient(httpClient, opts...)
}

func (r *Runner) newEngine(refresher download.Refresher, logger *zap.Logger) *download.Engine {
	opts := []download.Option{
		download.WithLogger(logger.Named("download")),
		download.WithOriginalQuality(r.settings.OriginalQuality),
		download.WithBaseDelay(r.settings.RetryBaseDelayDuration()),
		download.WithMaxAttempts(r.settings.MaxAttempts),
		download.WithLocatorRefresher(refresher, r.settings.LocatorMaxAgeDuration()),
	}
	if r.sleep != nil {
		opts = append(opts, download.WithSleep(r.sleep))
	}
	return download.NewEngine(r.fetcher, opts...)
}

// IsAuthError reports whether err is a credential failure.
func IsAuthError(err error) bool {
	var authErr *model.AuthError
	return errors.As(err, &authErr)
}
