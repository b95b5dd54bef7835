// Package storage fetches and stores whole objects by location.
//
// A location is one of:
//   - http:// or https:// URL (fetch only)
//   - gs://bucket/object URI (Google Cloud Storage, fetch and put)
//   - a local file path (fetch and put)
//
// GCS access uses Application Default Credentials.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// maxFetchBytes caps remote downloads.
const maxFetchBytes = 64 << 20

// Fetcher retrieves the bytes stored at a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Putter stores bytes under a destination and returns the final location.
type Putter interface {
	Put(ctx context.Context, destination, name string, data []byte) (string, error)
}

// Store dispatches on the location scheme.
type Store struct {
	// HTTPClient is used for http(s) locations. nil means http.DefaultClient.
	HTTPClient *http.Client
}

// New returns a Store using the default HTTP client.
func New() *Store {
	return &Store{}
}

// Fetch reads the whole object at location.
func (s *Store) Fetch(ctx context.Context, location string) ([]byte, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return s.fetchHTTP(ctx, location)
	case strings.HasPrefix(location, "gs://"):
		bucket, object, err := SplitGCSURI(location)
		if err != nil {
			return nil, err
		}
		return fetchGCS(ctx, bucket, object)
	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}
		return data, nil
	}
}

// Put writes data as name under destination, a directory or a gs:// prefix.
func (s *Store) Put(ctx context.Context, destination, name string, data []byte) (string, error) {
	if strings.HasPrefix(destination, "gs://") {
		bucket, prefix, err := splitGCSPrefix(destination)
		if err != nil {
			return "", err
		}
		object := path.Join(prefix, name)
		if err := putGCS(ctx, bucket, object, data); err != nil {
			return "", err
		}
		return "gs://" + bucket + "/" + object, nil
	}

	if err := os.MkdirAll(destination, 0755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", destination, err)
	}
	target := filepath.Join(destination, name)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}

func (s *Store) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("get %s: response larger than %d bytes", url, maxFetchBytes)
	}
	return data, nil
}

func fetchGCS(ctx context.Context, bucket, object string) ([]byte, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

func putGCS(ctx context.Context, bucket, object string, data []byte) error {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if strings.HasSuffix(object, ".zip") {
		w.ContentType = "application/zip"
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object gs://%s/%s: %w", bucket, object, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

// SplitGCSURI splits gs://bucket/path/to/object into bucket and object.
func SplitGCSURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// splitGCSPrefix accepts gs://bucket and gs://bucket/prefix/.
func splitGCSPrefix(uri string) (string, string, error) {
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid GCS destination: %s", uri)
	}
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], strings.Trim(parts[1], "/"), nil
}
