// Package gcs implements page archival on Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/minsukl/toondex-ingest/internal/archive"
	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// Archiver writes raw pages into a GCS bucket.
type Archiver struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates the GCS client and fails fast when the bucket is not
// accessible. Authentication uses Application Default Credentials.
func New(ctx context.Context, bucket, prefix string) (*Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive.gcs_bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("check gcs bucket %q: %w", bucket, err)
	}
	return &Archiver{client: client, bucket: bucket, prefix: prefix}, nil
}

// ArchivePage implements ingest.Archiver.
func (a *Archiver) ArchivePage(ctx context.Context, source, runID string, page ingest.RawPage) error {
	path := archive.ObjectPath(a.prefix, source, runID, page)
	w := a.client.Bucket(a.bucket).Object(path).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(page.Body); err != nil {
		w.Close() //nolint:errcheck
		return fmt.Errorf("write gcs object %q: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs object %q: %w", path, err)
	}
	return nil
}

// Close releases the GCS client.
func (a *Archiver) Close() error {
	return a.client.Close()
}
