package backup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"go.uber.org/zap/zaptest"

	"github.com/handiism/gphotos-backup/internal/config"
	ioutils "github.com/handiism/gphotos-backup/internal/io"
	"github.com/handiism/gphotos-backup/internal/model"
	"github.com/handiism/gphotos-backup/internal/organize"
)

type library struct {
	items   []map[string]any
	missing map[string]bool
}

func (l *library) handler(t *testing.T, baseURL func() string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/mediaItems":
			items := make([]map[string]any, len(l.items))
			for i, it := range l.items {
				cp := map[string]any{}
				for k, v := range it {
					cp[k] = v
				}
				cp["baseUrl"] = baseURL() + "/media/" + it["id"].(string)
				items[i] = cp
			}
			w.Header().Set("Content-Type", "application/json")
			gt.NoError(t, json.NewEncoder(w).Encode(map[string]any{"mediaItems": items}))

		case strings.HasPrefix(r.URL.Path, "/media/"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/media/"), "=d")
			if l.missing[id] {
				http.Error(w, "gone", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("bytes of " + id))

		default:
			http.NotFound(w, r)
		}
	})
}

func newTestRunner(t *testing.T, lib *library) (*Runner, *config.Settings) {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(lib.handler(t, func() string { return srv.URL }))
	t.Cleanup(srv.Close)

	root := t.TempDir()
	settings := config.DefaultSettings()
	settings.BackupDir = filepath.Join(root, "backup")
	settings.StagingDir = filepath.Join(root, "staging")
	settings.CredentialsDir = filepath.Join(root, "credentials")
	settings.Workers = 3

	r, err := NewRunner(settings, zaptest.NewLogger(t),
		WithHTTPClient(srv.Client()),
		WithCatalogBasePath(srv.URL+"/"),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	gt.NoError(t, err)
	return r, settings
}

func mediaItem(id, filename, created string) map[string]any {
	return map[string]any{
		"id":            id,
		"filename":      filename,
		"mimeType":      "image/jpeg",
		"mediaMetadata": map[string]any{"creationTime": created},
	}
}

func TestRun(t *testing.T) {
	lib := &library{
		items: []map[string]any{
			mediaItem("1", "a.jpg", "2023-05-14T10:00:00Z"),
			mediaItem("2", "b.jpg", "2022-12-01T00:00:00Z"),
			mediaItem("3", "c.jpg", ""),
			mediaItem("4", "broken.jpg", "2023-05-15T00:00:00Z"),
		},
		missing: map[string]bool{"4": true},
	}
	r, settings := newTestRunner(t, lib)

	var (
		mu     sync.Mutex
		events []Event
		counts []int
	)
	report, err := r.Run(context.Background(), Hooks{
		OnEvent: func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		},
		OnProgress: func(completed, total int) {
			mu.Lock()
			defer mu.Unlock()
			counts = append(counts, completed)
		},
	})
	gt.NoError(t, err)

	gt.Equal(t, report.Stats.Total, 4)
	gt.Equal(t, report.Stats.Unknown, 1)
	gt.Equal(t, report.Download.Succeeded, 3)
	gt.Equal(t, report.Download.Failed, 1)
	gt.Equal(t, report.Download.Failures[0].ID, "4")
	gt.Equal(t, report.Organize.Moved, 3)
	gt.Equal(t, report.Organize.Failed, 0)
	gt.Equal(t, len(counts), 4)
	gt.True(t, len(events) > 0)
	gt.V(t, report.RunID).NotEqual("")

	content, err := os.ReadFile(filepath.Join(settings.BackupDir, "2023", "05", "a.jpg"))
	gt.NoError(t, err)
	gt.Equal(t, string(content), "bytes of 1")
	gt.True(t, ioutils.Exists(filepath.Join(settings.BackupDir, "2022", "12", "b.jpg")))
	gt.True(t, ioutils.Exists(filepath.Join(settings.BackupDir, model.UnknownDir, "c.jpg")))
	gt.False(t, ioutils.Exists(filepath.Join(settings.BackupDir, "2023", "05", "broken.jpg")))
}

func TestRun_SecondRunKeepsOrganizedFile(t *testing.T) {
	lib := &library{items: []map[string]any{mediaItem("1", "a.jpg", "2023-05-14T10:00:00Z")}}
	r, _ := newTestRunner(t, lib)

	first, err := r.Run(context.Background(), Hooks{})
	gt.NoError(t, err)
	gt.Equal(t, first.Organize.Moved, 1)

	// The staged copy is gone, so the item is downloaded again and the
	// occupied destination is reported as an organize failure.
	second, err := r.Run(context.Background(), Hooks{})
	gt.NoError(t, err)
	gt.Equal(t, second.Download.Succeeded, 1)
	gt.Equal(t, second.Organize.Failed, 1)
	gt.V(t, second.RunID).NotEqual(first.RunID)
}

func TestRun_Declined(t *testing.T) {
	lib := &library{items: []map[string]any{mediaItem("1", "a.jpg", "2023-05-14T10:00:00Z")}}
	r, settings := newTestRunner(t, lib)

	var seen organize.Stats
	report, err := r.Run(context.Background(), Hooks{
		Confirm: func(s organize.Stats) bool {
			seen = s
			return false
		},
	})
	gt.NoError(t, err)
	gt.True(t, report.Declined)
	gt.Equal(t, seen.Total, 1)
	gt.Equal(t, report.Download.Total, 0)

	entries, err := os.ReadDir(settings.StagingDir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 0)
}

func TestRun_EmptyLibrary(t *testing.T) {
	r, _ := newTestRunner(t, &library{})

	report, err := r.Run(context.Background(), Hooks{
		Confirm: func(organize.Stats) bool {
			t.Error("confirmation must not be asked for an empty library")
			return true
		},
	})
	gt.NoError(t, err)
	gt.Equal(t, report.Stats.Total, 0)
}

func TestCatalog(t *testing.T) {
	lib := &library{items: []map[string]any{
		mediaItem("1", "a.jpg", "2023-05-14T10:00:00Z"),
		mediaItem("2", "b.jpg", ""),
	}}
	r, _ := newTestRunner(t, lib)

	items, err := r.Catalog(context.Background(), Hooks{})
	gt.NoError(t, err)
	gt.Equal(t, len(items), 2)
}

func TestClean(t *testing.T) {
	r, settings := newTestRunner(t, &library{})

	gt.NoError(t, ioutils.EnsureDir(settings.StagingDir))
	for _, name := range []string{"a.jpg", "b.jpg", ioutils.PlaceholderFile} {
		gt.NoError(t, os.WriteFile(filepath.Join(settings.StagingDir, name), nil, 0644))
	}

	n, err := r.Clean()
	gt.NoError(t, err)
	gt.Equal(t, n, 2)
	gt.True(t, ioutils.Exists(filepath.Join(settings.StagingDir, ioutils.PlaceholderFile)))
}

func TestNewRunner_InvalidSettings(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Workers = 0

	_, err := NewRunner(settings, nil)
	gt.Error(t, err)
}

func TestRun_MissingCredentials(t *testing.T) {
	root := t.TempDir()
	settings := config.DefaultSettings()
	settings.BackupDir = filepath.Join(root, "backup")
	settings.StagingDir = filepath.Join(root, "staging")
	settings.CredentialsDir = filepath.Join(root, "credentials")

	r, err := NewRunner(settings, zaptest.NewLogger(t))
	gt.NoError(t, err)

	_, err = r.Run(context.Background(), Hooks{})
	gt.Error(t, err)
	gt.True(t, IsAuthError(err))
}
