package ingest

import (
	"context"
	"time"
)

// Source is the per-platform capability interface. The runner drives the
// fixed snapshot -> fetch -> normalize -> diff -> persist -> report
// sequence; a Source only knows how to retrieve one page and how to map
// its own payload shape onto ContentRecords.
//
// FetchPage must not touch the database. Normalize must be pure: no I/O,
// and a malformed individual item is skipped and counted, not fatal.
type Source interface {
	Name() string
	FetchPage(ctx context.Context, page int) (RawPage, error)
	Normalize(page RawPage) (NormalizedPage, error)
}

// SnapshotReader loads the persisted (content_id, status) index for one
// source. Implementations must close their read transaction before
// returning so no lock is held across the network-bound fetch phase.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, source string) (Snapshot, error)
}

// Persister applies one run's upserts and change events in a single
// write transaction opened only after the in-memory pipeline finished.
type Persister interface {
	PersistRun(ctx context.Context, records []ContentRecord, events []ChangeEvent) error
}

// Reporter writes the per-run audit row. One attempt only.
type Reporter interface {
	InsertReport(ctx context.Context, report RunReport) error
}

// Archiver stores raw page payloads for debugging/replay. Best effort:
// failures are logged and counted by callers, never fatal.
type Archiver interface {
	ArchivePage(ctx context.Context, source, runID string, page RawPage) error
}

// Alert describes a run worth telling the ops collaborator about.
type Alert struct {
	Source      string     `json:"source"`
	RunID       string     `json:"run_id"`
	Outcome     RunOutcome `json:"outcome"`
	Completions int        `json:"completions"`
	Detail      string     `json:"detail,omitempty"`
}

// AlertSink publishes operational alerts after a batch. The notification
// collaborator still polls cdc_events; this is ops-only fanout.
type AlertSink interface {
	PublishAlert(ctx context.Context, alert Alert) error
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
