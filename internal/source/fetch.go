package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrNoFingerprint is returned when the source exposes no usable
// modification metadata.
var ErrNoFingerprint = errors.New("source: no modification metadata in response")

// Fingerprint is the source's modification marker.
type Fingerprint struct {
	LastModified time.Time
	ETag         string
	Hash         string // stable hex digest of the marker fields
}

// Probe issues a HEAD request and returns the source fingerprint
// without downloading the payload.
func (c *Client) Probe(ctx context.Context) (Fingerprint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("create probe request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("probe source: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return Fingerprint{}, &SourceError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	fp := Fingerprint{ETag: resp.Header.Get("ETag")}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			fp.LastModified = t
		}
	}

	if fp.ETag == "" && fp.LastModified.IsZero() {
		return Fingerprint{}, ErrNoFingerprint
	}

	marker := fp.LastModified.UTC().Format(time.RFC3339) + "|" + fp.ETag
	fp.Hash = strconv.FormatUint(xxhash.Sum64String(marker), 16)

	c.logger.Debug("probed source",
		"last_modified", fp.LastModified,
		"etag", fp.ETag,
		"fingerprint", fp.Hash,
	)
	return fp, nil
}

// Download streams the compressed payload into a temporary file under
// dir and returns its path. The caller owns the file and must remove
// it; on any error the partial file is removed here.
func (c *Client) Download(ctx context.Context, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return "", &SourceError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	tmp, err := os.CreateTemp(dir, "imports-*.zip")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	start := time.Now()
	n, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stream payload: %w", err)
	}

	c.logger.Info("payload downloaded",
		"bytes", n,
		"duration", time.Since(start).Round(time.Millisecond),
		"path", tmp.Name(),
	)
	return tmp.Name(), nil
}
