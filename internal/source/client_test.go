package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %q, want HEAD", r.Method)
		}
		w.Header().Set("Last-Modified", "Mon, 02 Jun 2025 10:00:00 GMT")
		w.Header().Set("ETag", `"abc123"`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	fp, err := c.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if fp.Hash == "" {
		t.Error("fingerprint hash is empty")
	}
	if fp.LastModified.IsZero() {
		t.Error("last modified not parsed")
	}

	// Same headers yield the same hash.
	fp2, err := c.Probe(context.Background())
	if err != nil {
		t.Fatalf("second Probe failed: %v", err)
	}
	if fp.Hash != fp2.Hash {
		t.Errorf("hash changed between identical probes: %q vs %q", fp.Hash, fp2.Hash)
	}
}

func TestProbeNoMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Suppress the Last-Modified header httptest would not set anyway.
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Probe(context.Background())
	if !errors.Is(err, ErrNoFingerprint) {
		t.Errorf("err = %v, want ErrNoFingerprint", err)
	}
}

func TestProbeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Probe(context.Background())

	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SourceError", err)
	}
	if !se.IsRetryable() {
		t.Error("503 should be retryable")
	}
}

func TestDownload(t *testing.T) {
	payload := []byte("not really a zip, but bytes travel the same")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL)

	path, err := c.Download(context.Background(), dir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer os.Remove(path)

	if filepath.Dir(path) != dir {
		t.Errorf("staged outside temp dir: %s", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("staged content = %q, want %q", got, payload)
	}
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL)

	_, err := c.Download(context.Background(), dir)
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SourceError", err)
	}
	if se.IsRetryable() {
		t.Error("404 should not be retryable")
	}

	// No staging file left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("staging dir not clean: %v", entries)
	}
}
