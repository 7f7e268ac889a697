// Package memory implements an in-memory page archive for tests.
package memory

import (
	"context"
	"sync"

	"github.com/minsukl/toondex-ingest/internal/archive"
	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// Archiver keeps archived pages in a map keyed by object path.
type Archiver struct {
	mu    sync.Mutex
	pages map[string][]byte
}

// New constructs an empty Archiver.
func New() *Archiver {
	return &Archiver{pages: make(map[string][]byte)}
}

// ArchivePage implements ingest.Archiver.
func (a *Archiver) ArchivePage(_ context.Context, source, runID string, page ingest.RawPage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pages[archive.ObjectPath("", source, runID, page)] = append([]byte(nil), page.Body...)
	return nil
}

// Pages returns a copy of everything archived so far.
func (a *Archiver) Pages() map[string][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string][]byte, len(a.pages))
	for k, v := range a.pages {
		out[k] = v
	}
	return out
}
