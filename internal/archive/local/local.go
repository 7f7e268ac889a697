// Package local implements page archival on the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minsukl/toondex-ingest/internal/archive"
	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// Archiver writes raw pages under a base directory.
type Archiver struct {
	dir    string
	prefix string
}

// New validates the base directory and constructs an Archiver.
func New(dir, prefix string) (*Archiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive.local_dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Archiver{dir: dir, prefix: prefix}, nil
}

// ArchivePage implements ingest.Archiver.
func (a *Archiver) ArchivePage(_ context.Context, source, runID string, page ingest.RawPage) error {
	path := filepath.Join(a.dir, filepath.FromSlash(archive.ObjectPath(a.prefix, source, runID, page)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive subdir: %w", err)
	}
	if err := os.WriteFile(path, page.Body, 0o644); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	return nil
}
