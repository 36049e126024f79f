// Package photos is the remote catalog client for the Google Photos Library
// API.
//
// The package handles three concerns:
//
//  1. Paginated, lazy enumeration of media items and albums
//  2. Deriving download URLs from a descriptor's locator
//  3. Parsing capture timestamps, which are treated as unreliable
//
// # Enumeration
//
// Listing operations return single-pass sequences. Pages are requested only
// while the caller keeps ranging; stopping early is valid:
//
//	client, err := photos.NewClient(httpClient)
//	for item, err := range client.ListAll(ctx, 100) {
//	    if err != nil {
//	        return err // a *model.CatalogError; earlier items remain valid
//	    }
//	    fmt.Println(item.Filename)
//	}
//
// Page requests failing with HTTP 429 or a transient 5xx are retried with
// exponential backoff before the error is surfaced.
//
// # Download URLs
//
// Locators are only valid for about 60 minutes. ResolveDownloadURL appends
// "=d" for photos and "=dv" for videos when the original quality is wanted.
package photos
