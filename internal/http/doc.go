// Package http provides the HTTP client used to fetch media bytes.
//
// The Client in this package handles:
//   - Per-request timeout (60 seconds by default)
//   - Streaming downloads that are persisted atomically
//   - Byte counting with an optional progress callback
//   - Classification of transport failures
//
// # Basic Usage
//
//	client := http.NewClient(60 * time.Second)
//
//	n, err := client.DownloadFile(ctx, url, "/staging/a.jpg", nil)
//	var terr *http.TransportError
//	if errors.As(err, &terr) {
//	    // network or protocol failure, safe to retry
//	}
//
// # Atomic Persistence
//
// The response body is streamed into a temporary file inside the
// destination's directory and renamed into place only after the whole body
// was written and synced, so a partial file never appears at the
// destination path.
package http
