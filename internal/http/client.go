package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/natefinch/atomic"
)

// DefaultTimeout is the network timeout used by NewClient when none is given.
const DefaultTimeout = 60 * time.Second

// FileMode is the permission set on downloaded files.
const FileMode os.FileMode = 0644

// ErrStalled is the cause of a transfer aborted because the body stopped
// delivering data for longer than the client's timeout.
var ErrStalled = errors.New("body stalled")

// Client wraps HTTP operations for media downloads.
//
// Example usage:
//
//	client := NewClient(0)
//	n, err := client.DownloadFile(ctx, url, "/staging/a.jpg", func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
type Client struct {
	httpClient  *http.Client
	idleTimeout time.Duration
	userAgent   string
}

// NewClient creates a new HTTP client with the given timeout.
// A non-positive timeout selects DefaultTimeout.
//
// The timeout bounds each network step (dial, TLS handshake, waiting for
// response headers, and every gap between body reads), not the whole
// transfer, so large videos may stream for as long as data keeps arriving.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	return &Client{
		httpClient:  &http.Client{Transport: transport},
		idleTimeout: timeout,
		userAgent:   "gphotos-backup",
	}
}

// TransportError is a network or protocol failure: the request could not be
// sent, the server answered with a non-2xx status, or the body stream broke.
// Transport errors are retryable.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP %d", redact(e.URL), e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", redact(e.URL), e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

// ProgressReader wraps a reader to count bytes read from it.
//
// OnUpdate, if set, is called after each Read with (bytesRead, totalExpected).
// A read failure other than io.EOF is remembered in Err. When IdleTimeout and
// OnIdle are set, OnIdle fires once if no data arrives for IdleTimeout; the
// deadline is pushed back by every Read that returns data.
type ProgressReader struct {
	// Reader is the underlying reader.
	Reader io.Reader

	// Total is the expected total bytes (from Content-Length), or -1.
	Total int64

	// ReadBytes is the number of bytes read so far.
	ReadBytes int64

	// Err is the first non-EOF error returned by Reader.
	Err error

	// OnUpdate is called after each Read with current progress.
	OnUpdate func(read, total int64)

	// IdleTimeout is the longest gap allowed between reads that return data.
	IdleTimeout time.Duration

	// OnIdle is called when IdleTimeout expires, typically a context cancel.
	OnIdle func()

	idle *time.Timer
}

// Start arms the idle deadline. It is a no-op without IdleTimeout and OnIdle.
func (pr *ProgressReader) Start() {
	if pr.IdleTimeout > 0 && pr.OnIdle != nil && pr.idle == nil {
		pr.idle = time.AfterFunc(pr.IdleTimeout, pr.OnIdle)
	}
}

// Stop disarms the idle deadline.
func (pr *ProgressReader) Stop() {
	if pr.idle != nil {
		pr.idle.Stop()
	}
}

// Read implements io.Reader.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 && pr.idle != nil {
		pr.idle.Reset(pr.IdleTimeout)
	}
	pr.ReadBytes += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && pr.Err == nil {
		pr.Err = err
	}
	if pr.OnUpdate != nil && n > 0 {
		pr.OnUpdate(pr.ReadBytes, pr.Total)
	}
	return n, err
}

// DownloadFile downloads url into destPath and returns the number of bytes
// persisted.
//
// The body is streamed into a temporary file in destPath's directory, which
// must exist, and renamed to destPath once complete. A body that delivers no
// data for the client's timeout is aborted with ErrStalled. Failures to reach the
// server, non-2xx responses and broken body streams are returned as
// *TransportError; failures writing the local file are returned as is.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: URL to download from
//   - destPath: Local file path to save to
//   - onProgress: Optional callback called with (bytesWritten, totalBytes)
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &TransportError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	reader := &ProgressReader{
		Reader:      resp.Body,
		Total:       resp.ContentLength,
		OnUpdate:    onProgress,
		IdleTimeout: c.idleTimeout,
		OnIdle:      func() { cancel(ErrStalled) },
	}
	reader.Start()
	err = atomic.WriteFile(destPath, reader)
	reader.Stop()

	if err != nil {
		if reader.Err != nil {
			cause := reader.Err
			if errors.Is(context.Cause(ctx), ErrStalled) {
				cause = ErrStalled
			}
			return 0, &TransportError{URL: url, Err: cause}
		}
		return 0, err
	}

	// atomic.WriteFile leaves its temp file mode (0600) on new files.
	if err := os.Chmod(destPath, FileMode); err != nil {
		return 0, err
	}

	return reader.ReadBytes, nil
}

// redact shortens long locator URLs for logs.
func redact(url string) string {
	const max = 80
	if len(url) > max {
		return url[:max] + "..."
	}
	return url
}
