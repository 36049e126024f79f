package photos

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	photoslibrary "github.com/nekr0z/gphotoslibrary"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/handiism/gphotos-backup/internal/model"
	"github.com/handiism/gphotos-backup/internal/photos/dto"
)

// Server-imposed page size limits.
const (
	MaxMediaPageSize = 100
	MaxAlbumPageSize = 50
)

// ReadonlyScope is the OAuth scope required by the client.
const ReadonlyScope = photoslibrary.PhotoslibraryReadonlyScope

const (
	defaultPageAttempts = 3
	defaultPageBackoff  = time.Second
)

// Client enumerates a Google Photos library.
//
// Client is safe for sequential use; each sequence it returns performs a
// single forward pass over the remote pages.
type Client struct {
	service  *photoslibrary.Service
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time
	attempts int
	backoff  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBasePath points the client at another API root, e.g. a test server.
// The path must end with a slash.
func WithBasePath(basePath string) Option {
	return func(c *Client) {
		c.service.BasePath = basePath
	}
}

// WithSleep replaces the function used to wait between page retries.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithClock replaces the clock used to stamp descriptor fetch times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithPageRetry sets how often a transiently failing page request is
// attempted and the base delay of its exponential backoff.
func WithPageRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.backoff = backoff
	}
}

// NewClient creates a catalog client. httpClient must authorize requests,
// e.g. the client returned by auth.Manager.HTTPClient.
func NewClient(httpClient *http.Client, opts ...Option) (*Client, error) {
	service, err := photoslibrary.New(httpClient)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create photoslibrary service")
	}
	service.UserAgent = "gphotos-backup"

	c := &Client{
		service:  service,
		logger:   zap.NewNop(),
		sleep:    sleepContext,
		now:      time.Now,
		attempts: defaultPageAttempts,
		backoff:  defaultPageBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ListAll enumerates every media item in the library.
// pageSize is clamped to [1, MaxMediaPageSize].
func (c *Client) ListAll(ctx context.Context, pageSize int) iter.Seq2[model.MediaDescriptor, error] {
	size := clampPageSize(pageSize, MaxMediaPageSize)
	return c.mediaItems(ctx, "list media items", func(token string) (mediaPage, error) {
		call := c.service.MediaItems.List().PageSize(size).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return mediaPage{}, err
		}
		return mediaPage{items: resp.MediaItems, next: resp.NextPageToken}, nil
	})
}

// ListByDateRange enumerates media items captured between start and end
// using the service's date filter.
func (c *Client) ListByDateRange(ctx context.Context, start, end time.Time, pageSize int) iter.Seq2[model.MediaDescriptor, error] {
	return c.search(ctx, "search media items by date", &photoslibrary.SearchMediaItemsRequest{
		Filters:  dto.DateRangeFilter(start, end),
		PageSize: clampPageSize(pageSize, MaxMediaPageSize),
	})
}

// ListAlbumItems enumerates the media items of one album.
func (c *Client) ListAlbumItems(ctx context.Context, albumID string, pageSize int) iter.Seq2[model.MediaDescriptor, error] {
	return c.search(ctx, "search album items", &photoslibrary.SearchMediaItemsRequest{
		AlbumId:  albumID,
		PageSize: clampPageSize(pageSize, MaxMediaPageSize),
	})
}

// ListAlbums enumerates the library's albums.
// pageSize is clamped to [1, MaxAlbumPageSize].
func (c *Client) ListAlbums(ctx context.Context, pageSize int) iter.Seq2[model.Album, error] {
	size := clampPageSize(pageSize, MaxAlbumPageSize)
	const op = "list albums"

	return func(yield func(model.Album, error) bool) {
		token := ""
		for {
			resp, err := retryPage(ctx, c, op, token, func() (*photoslibrary.ListAlbumsResponse, error) {
				call := c.service.Albums.List().PageSize(size).Context(ctx)
				if token != "" {
					call = call.PageToken(token)
				}
				return call.Do()
			})
			if err != nil {
				yield(model.Album{}, err)
				return
			}

			for _, a := range resp.Albums {
				if !yield(dto.ToAlbum(a), nil) {
					return
				}
			}

			if resp.NextPageToken == "" {
				return
			}
			token = resp.NextPageToken
		}
	}
}

// GetMediaItem fetches a single media item, with a fresh locator.
func (c *Client) GetMediaItem(ctx context.Context, id string) (model.MediaDescriptor, error) {
	item, err := c.service.MediaItems.Get(id).Context(ctx).Do()
	if err != nil {
		return model.MediaDescriptor{}, goerr.Wrap(classify("get media item", err),
			"failed to get media item", goerr.V("media_id", id))
	}
	return dto.ToDescriptor(item, c.now()), nil
}

// Refresh re-fetches a descriptor to obtain a new locator.
func (c *Client) Refresh(ctx context.Context, d model.MediaDescriptor) (model.MediaDescriptor, error) {
	return c.GetMediaItem(ctx, d.ID)
}

type mediaPage struct {
	items []*photoslibrary.MediaItem
	next  string
}

func (c *Client) search(ctx context.Context, op string, req *photoslibrary.SearchMediaItemsRequest) iter.Seq2[model.MediaDescriptor, error] {
	return c.mediaItems(ctx, op, func(token string) (mediaPage, error) {
		page := *req
		page.PageToken = token
		resp, err := c.service.MediaItems.Search(&page).Context(ctx).Do()
		if err != nil {
			return mediaPage{}, err
		}
		return mediaPage{items: resp.MediaItems, next: resp.NextPageToken}, nil
	})
}

func (c *Client) mediaItems(ctx context.Context, op string, fetch func(token string) (mediaPage, error)) iter.Seq2[model.MediaDescriptor, error] {
	return func(yield func(model.MediaDescriptor, error) bool) {
		token := ""
		for {
			page, err := retryPage(ctx, c, op, token, func() (mediaPage, error) {
				return fetch(token)
			})
			if err != nil {
				yield(model.MediaDescriptor{}, err)
				return
			}

			fetchedAt := c.now()
			for _, item := range page.items {
				if !yield(dto.ToDescriptor(item, fetchedAt), nil) {
					return
				}
			}

			if page.next == "" {
				return
			}
			token = page.next
		}
	}
}

// retryPage runs fn, retrying transient API failures with exponential backoff.
// The final error is classified by classify.
func retryPage[T any](ctx context.Context, c *Client, op, token string, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)

	for attempt := 0; attempt < c.attempts; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !isTransient(err) || attempt == c.attempts-1 {
			break
		}

		delay := c.backoff << attempt
		c.logger.Warn("Transient catalog failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		if serr := c.sleep(ctx, delay); serr != nil {
			err = serr
			break
		}
	}

	var zero T
	return zero, goerr.Wrap(classify(op, err), "failed to fetch catalog page",
		goerr.V("page_token", token))
}

// classify wraps err as *model.AuthError when the service rejected the
// credential and as *model.CatalogError otherwise.
func classify(op string, err error) error {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return &model.AuthError{Err: err}
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &model.AuthError{Err: err}
	}
	return &model.CatalogError{Op: op, Err: err}
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func clampPageSize(size, max int) int64 {
	if size <= 0 || size > max {
		return int64(max)
	}
	return int64(size)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
