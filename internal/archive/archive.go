// Package archive stores raw page payloads for debugging and replay.
// Archival is best effort everywhere: the pipeline never fails a run
// over it.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// ObjectPath builds the canonical archive key for one page.
func ObjectPath(prefix, source, runID string, page ingest.RawPage) string {
	name := fmt.Sprintf("%s/%s/page-%04d.json", source, runID, page.Number)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Noop discards every page.
type Noop struct{}

// ArchivePage implements ingest.Archiver.
func (Noop) ArchivePage(context.Context, string, string, ingest.RawPage) error { return nil }
