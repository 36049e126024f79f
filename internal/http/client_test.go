package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
)

func TestClient_DownloadFile(t *testing.T) {
	content := []byte("fake jpeg content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	var lastWritten, lastTotal int64

	n, err := NewClient(5*time.Second).DownloadFile(context.Background(), server.URL+"/x=d", dest, func(written, total int64) {
		lastWritten, lastTotal = written, total
	})
	gt.NoError(t, err)
	gt.Equal(t, n, int64(len(content)))
	gt.Equal(t, lastWritten, int64(len(content)))
	gt.Equal(t, lastTotal, int64(len(content)))

	got, err := os.ReadFile(dest)
	gt.NoError(t, err)
	gt.Equal(t, string(got), string(content))
}

func TestClient_DownloadFile_StatusIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := NewClient(0).DownloadFile(context.Background(), server.URL, dest, nil)

	var terr *TransportError
	gt.True(t, errors.As(err, &terr))
	gt.Equal(t, terr.StatusCode, http.StatusServiceUnavailable)

	_, statErr := os.Stat(dest)
	gt.True(t, os.IsNotExist(statErr))
}

func TestClient_DownloadFile_TruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("short"))
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "a.jpg")
	_, err := NewClient(0).DownloadFile(context.Background(), server.URL, dest, nil)
	gt.True(t, IsTransport(err))

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 0)
}

func TestClient_DownloadFile_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(time.Second).DownloadFile(context.Background(), url, filepath.Join(t.TempDir(), "a.jpg"), nil)
	gt.True(t, IsTransport(err))
}

func TestClient_DownloadFile_MissingDirIsNotTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "missing", "a.jpg")
	_, err := NewClient(0).DownloadFile(context.Background(), server.URL, dest, nil)
	gt.Error(t, err)
	gt.False(t, IsTransport(err))
}

func TestClient_DownloadFile_SlowSteadyBodyOutlivesTimeout(t *testing.T) {
	const chunks = 10
	chunk := make([]byte, 1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(chunks*len(chunk)))
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for i := 0; i < chunks; i++ {
			_, _ = w.Write(chunk)
			flusher.Flush()
			time.Sleep(60 * time.Millisecond)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "movie.mp4")
	start := time.Now()
	n, err := NewClient(300*time.Millisecond).DownloadFile(context.Background(), server.URL, dest, nil)
	gt.NoError(t, err)
	gt.Equal(t, n, int64(chunks*len(chunk)))
	gt.True(t, time.Since(start) > 300*time.Millisecond)
}

func TestClient_DownloadFile_StalledBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "movie.mp4")
	start := time.Now()
	_, err := NewClient(200*time.Millisecond).DownloadFile(context.Background(), server.URL, dest, nil)

	var terr *TransportError
	gt.True(t, errors.As(err, &terr))
	gt.True(t, errors.Is(err, ErrStalled))
	gt.True(t, time.Since(start) < 3*time.Second)

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 0)
}

func TestClient_DownloadFile_FileMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.jpg")
	_, err := NewClient(0).DownloadFile(context.Background(), server.URL, dest, nil)
	gt.NoError(t, err)

	info, err := os.Stat(dest)
	gt.NoError(t, err)
	gt.Equal(t, info.Mode().Perm(), FileMode)
}
