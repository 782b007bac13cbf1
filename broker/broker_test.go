package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"hello": "world"})
	}))
	defer srv.Close()

	b := New(Config{}, nil)
	var out map[string]string
	err := b.FetchJSON(context.Background(), srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, "world", out["hello"])
}

func TestFetchJSON404IsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b := New(Config{MaxRetries: 1, RetryDelay: time.Millisecond}, nil)
	var out map[string]string
	err := b.FetchJSON(context.Background(), srv.URL, &out)
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestFetchJSONRetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	b := New(Config{MaxRetries: 3, RetryDelay: time.Millisecond}, nil)
	var out map[string]string
	err := b.FetchJSON(context.Background(), srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, "yes", out["ok"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDownloadFileWritesAndChecksAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "app.zip")

	b := New(Config{}, nil)
	var lastCompleted uint64
	err := b.DownloadFile(context.Background(), "secret-token", srv.URL, dest, func(completed, total uint64) {
		lastCompleted = completed
	})
	require.NoError(t, err)
	assert.Equal(t, "token secret-token", gotAuth)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))
	assert.Equal(t, uint64(len("archive-bytes")), lastCompleted)

	// no leftover temp file
	matches, _ := filepath.Glob(dest + ".tmp")
	assert.Empty(t, matches)
}

func TestDownloadFileRemovesPartialOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "app.zip")

	b := New(Config{MaxRetries: 1, RetryDelay: time.Millisecond}, nil)
	err := b.DownloadFile(context.Background(), "", srv.URL, dest, nil)
	assert.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	matches, _ := filepath.Glob(dest + ".tmp")
	assert.Empty(t, matches)
}

func TestPerHostThrottling(t *testing.T) {
	var inFlight int32
	var maxInFlight int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		json.NewEncoder(w).Encode(map[string]string{"ok": "1"})
	}))
	defer srv.Close()

	b := New(Config{PerHostConcurrency: 2, RetryDelay: 10 * time.Millisecond}, nil)

	start := time.Now()
	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		go func() {
			var out map[string]string
			b.FetchJSON(context.Background(), srv.URL, &out)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	elapsed := time.Since(start)

	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
}
