// Package download fetches media items to local storage.
//
// # Engine
//
// The Engine downloads one descriptor at a time with DownloadOne, or a whole
// batch with DownloadBatch:
//
//  1. Skip the item if its destination file already exists
//  2. Refresh a stale locator (optional)
//  3. Resolve the download URL
//  4. Stream the bytes into a temporary file and rename it into place
//  5. Retry transport failures with exponential backoff
//
// # Basic Usage
//
//	engine := download.NewEngine(http.NewClient(0),
//	    download.WithLogger(logger),
//	    download.WithLocatorRefresher(catalog, 55*time.Minute),
//	)
//
//	stats := engine.DownloadBatch(ctx, items, "/staging", 4, func(done, total int) {
//	    fmt.Printf("%d/%d\n", done, total)
//	})
//	fmt.Println(stats.Succeeded, stats.Skipped, stats.Failed)
//
// # Concurrency
//
// DownloadBatch runs at most concurrency workers. Each worker writes to its
// own precomputed path, and outcomes are merged into the batch statistics
// under a mutex, so the completed count reported to the ProgressFunc grows
// by exactly one per call.
//
// # Retry Logic
//
// Only transport errors (*http.TransportError) are retried. The wait before
// retry n is the base delay (one second by default) times 2^(n-1), and there
// is no wait after the last attempt. Missing locators and local filesystem
// errors fail the item immediately.
//
// # Idempotency
//
// The existence of the destination file is the only idempotency check; its
// size and content are not verified. Because files are renamed into place
// only once complete, an existing file is always a complete download.
package download
