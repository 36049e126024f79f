package photos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap/zaptest"

	"github.com/handiism/gphotos-backup/internal/model"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.Client(),
		WithBasePath(srv.URL+"/"),
		WithLogger(zaptest.NewLogger(t)),
		WithSleep(noSleep),
		WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
	)
	gt.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	gt.NoError(t, json.NewEncoder(w).Encode(v))
}

func item(id, created string) map[string]any {
	return map[string]any{
		"id":            id,
		"filename":      id + ".jpg",
		"mimeType":      "image/jpeg",
		"baseUrl":       "https://lh3.example/" + id,
		"mediaMetadata": map[string]any{"creationTime": created},
	}
}

func TestListAll_Pagination(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/v1/mediaItems")
		gt.Equal(t, r.URL.Query().Get("pageSize"), "100")

		switch r.URL.Query().Get("pageToken") {
		case "":
			writeJSON(t, w, map[string]any{
				"mediaItems":    []any{item("a", "2023-05-14T10:00:00Z"), item("b", "2022-01-01T00:00:00Z")},
				"nextPageToken": "p2",
			})
		case "p2":
			writeJSON(t, w, map[string]any{
				"mediaItems": []any{item("c", "")},
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))

	var ids []string
	for d, err := range c.ListAll(context.Background(), 500) {
		gt.NoError(t, err)
		ids = append(ids, d.ID)
	}

	gt.Equal(t, ids, []string{"a", "b", "c"})
}

func TestListAll_DescriptorFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"mediaItems": []any{item("a", "2023-05-14T10:00:00Z")}})
	}))

	var got []model.MediaDescriptor
	for d, err := range c.ListAll(context.Background(), 10) {
		gt.NoError(t, err)
		got = append(got, d)
	}

	gt.Equal(t, len(got), 1)
	gt.Equal(t, got[0].Filename, "a.jpg")
	gt.Equal(t, got[0].MimeType, "image/jpeg")
	gt.Equal(t, got[0].BaseURL, "https://lh3.example/a")
	gt.Equal(t, got[0].CreationTime, "2023-05-14T10:00:00Z")
	gt.True(t, got[0].FetchedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestListAll_EmptyLibrary(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{})
	}))

	count := 0
	for _, err := range c.ListAll(context.Background(), 10) {
		gt.NoError(t, err)
		count++
	}
	gt.Equal(t, count, 0)
}

func TestListAll_FailureKeepsEarlierItems(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, map[string]any{
				"mediaItems":    []any{item("a", ""), item("b", "")},
				"nextPageToken": "p2",
			})
			return
		}
		http.Error(w, `{"error":{"code":400,"message":"bad token"}}`, http.StatusBadRequest)
	}))

	var (
		ids     []string
		lastErr error
	)
	for d, err := range c.ListAll(context.Background(), 10) {
		if err != nil {
			lastErr = err
			break
		}
		ids = append(ids, d.ID)
	}

	gt.Equal(t, ids, []string{"a", "b"})
	var catalogErr *model.CatalogError
	gt.True(t, errors.As(lastErr, &catalogErr))
	gt.Equal(t, catalogErr.Op, "list media items")
}

func TestListAll_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":{"code":503,"message":"unavailable"}}`, http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, map[string]any{"mediaItems": []any{item("a", "")}})
	}))

	count := 0
	for _, err := range c.ListAll(context.Background(), 10) {
		gt.NoError(t, err)
		count++
	}
	gt.Equal(t, count, 1)
	gt.Equal(t, calls.Load(), int32(3))
}

func TestListAll_TransientFailureExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"code":429,"message":"slow down"}}`, http.StatusTooManyRequests)
	}))

	var lastErr error
	for _, err := range c.ListAll(context.Background(), 10) {
		lastErr = err
	}

	var catalogErr *model.CatalogError
	gt.True(t, errors.As(lastErr, &catalogErr))
	gt.Equal(t, calls.Load(), int32(defaultPageAttempts))
}

func TestListAll_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":401,"message":"expired"}}`, http.StatusUnauthorized)
	}))

	var lastErr error
	for _, err := range c.ListAll(context.Background(), 10) {
		lastErr = err
	}

	var authErr *model.AuthError
	gt.True(t, errors.As(lastErr, &authErr))
}

func TestListAll_StopEarly(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, map[string]any{
			"mediaItems":    []any{item("a", ""), item("b", "")},
			"nextPageToken": "more",
		})
	}))

	for d, err := range c.ListAll(context.Background(), 10) {
		gt.NoError(t, err)
		if d.ID == "a" {
			break
		}
	}
	gt.Equal(t, calls.Load(), int32(1))
}

func TestListByDateRange(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.Method, http.MethodPost)
		gt.Equal(t, r.URL.Path, "/v1/mediaItems:search")

		var body struct {
			Filters struct {
				DateFilter struct {
					Ranges []struct {
						StartDate struct{ Year, Month, Day int } `json:"startDate"`
						EndDate   struct{ Year, Month, Day int } `json:"endDate"`
					} `json:"ranges"`
				} `json:"dateFilter"`
			} `json:"filters"`
		}
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gt.Equal(t, len(body.Filters.DateFilter.Ranges), 1)
		rng := body.Filters.DateFilter.Ranges[0]
		gt.Equal(t, rng.StartDate.Year, 2023)
		gt.Equal(t, rng.StartDate.Month, 5)
		gt.Equal(t, rng.EndDate.Day, 31)

		writeJSON(t, w, map[string]any{"mediaItems": []any{item("a", "2023-05-14T10:00:00Z")}})
	}))

	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC)

	count := 0
	for _, err := range c.ListByDateRange(context.Background(), start, end, 100) {
		gt.NoError(t, err)
		count++
	}
	gt.Equal(t, count, 1)
}

func TestListAlbumItems(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AlbumID   string `json:"albumId"`
			PageToken string `json:"pageToken"`
		}
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gt.Equal(t, body.AlbumID, "album-1")

		if body.PageToken == "" {
			writeJSON(t, w, map[string]any{"mediaItems": []any{item("a", "")}, "nextPageToken": "n"})
			return
		}
		writeJSON(t, w, map[string]any{"mediaItems": []any{item("b", "")}})
	}))

	var ids []string
	for d, err := range c.ListAlbumItems(context.Background(), "album-1", 0) {
		gt.NoError(t, err)
		ids = append(ids, d.ID)
	}
	gt.Equal(t, ids, []string{"a", "b"})
}

func TestListAlbums(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/v1/albums")
		gt.Equal(t, r.URL.Query().Get("pageSize"), "50")
		writeJSON(t, w, map[string]any{
			"albums": []any{
				map[string]any{"id": "al1", "title": "Holiday", "mediaItemsCount": "12", "productUrl": "https://photos.example/al1"},
			},
		})
	}))

	var albums []model.Album
	for a, err := range c.ListAlbums(context.Background(), 100) {
		gt.NoError(t, err)
		albums = append(albums, a)
	}

	gt.Equal(t, len(albums), 1)
	gt.Equal(t, albums[0].Title, "Holiday")
	gt.Equal(t, albums[0].ItemsCount, int64(12))
}

func TestGetMediaItem(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/mediaItems/abc") {
			http.NotFound(w, r)
			return
		}
		writeJSON(t, w, item("abc", "2023-05-14T10:00:00Z"))
	}))

	d, err := c.GetMediaItem(context.Background(), "abc")
	gt.NoError(t, err)
	gt.Equal(t, d.ID, "abc")
	gt.Equal(t, d.BaseURL, "https://lh3.example/abc")

	_, err = c.GetMediaItem(context.Background(), "missing")
	var catalogErr *model.CatalogError
	gt.True(t, errors.As(err, &catalogErr))
}

func TestClampPageSize(t *testing.T) {
	gt.Equal(t, clampPageSize(0, MaxMediaPageSize), int64(100))
	gt.Equal(t, clampPageSize(-5, MaxMediaPageSize), int64(100))
	gt.Equal(t, clampPageSize(25, MaxMediaPageSize), int64(25))
	gt.Equal(t, clampPageSize(1000, MaxAlbumPageSize), int64(50))
}
