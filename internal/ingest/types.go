// Package ingest defines the core types and the run pipeline shared across
// the catalog ingestion subsystems.
package ingest

import (
	"time"
)

// Status is the canonical publication status of a catalog entry.
type Status string

// Canonical status values persisted in the contents table.
const (
	StatusOngoing   Status = "ongoing"
	StatusHiatus    Status = "hiatus"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the three canonical values.
func (s Status) Valid() bool {
	switch s {
	case StatusOngoing, StatusHiatus, StatusCompleted:
		return true
	}
	return false
}

// MetaCommon holds the metadata fields visible across all sources.
type MetaCommon struct {
	Thumbnail string   `json:"thumbnail,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Weekdays  []string `json:"weekdays,omitempty"`
}

// Meta is the semi-structured metadata blob stored alongside each record.
// Source-specific residue goes under Attributes untouched.
type Meta struct {
	Common     MetaCommon     `json:"common"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ContentRecord is the canonical catalog entry produced by normalization.
// (ContentID, Source) is the immutable composite identity.
type ContentRecord struct {
	ContentID   string `json:"content_id"`
	Source      string `json:"source"`
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Status      Status `json:"status"`
	Meta        Meta   `json:"meta"`
}

// RawPage is one page of payload as retrieved from a source, before
// normalization. Body carries the payload bytes the loop guard fingerprints.
type RawPage struct {
	Source string
	Number int
	Body   []byte
	// Last is set when the source signalled end-of-list on this page.
	Last bool
}

// NormalizedPage is the result of normalizing a single RawPage.
// Malformed counts items skipped for missing identity fields.
type NormalizedPage struct {
	Records   []ContentRecord
	Malformed int
}

// Snapshot maps content_id to the status persisted before the fetch began.
// It is scoped to a single source and a single run.
type Snapshot map[string]Status

// ChangeEvent is an immutable audit fact emitted by the diff engine.
// A nil FromStatus means the content was newly observed this run.
type ChangeEvent struct {
	ContentID    string    `json:"content_id"`
	Source       string    `json:"source"`
	FromStatus   *Status   `json:"from_status"`
	ToStatus     Status    `json:"to_status"`
	IsCompletion bool      `json:"is_completion"`
	DetectedAt   time.Time `json:"detected_at"`
	RunID        string    `json:"run_id"`
}

// RunOutcome is the terminal state of one source run.
type RunOutcome string

// Run outcomes persisted in daily_crawler_reports.
const (
	RunOK      RunOutcome = "ok"
	RunPartial RunOutcome = "partial"
	RunFailed  RunOutcome = "failed"
)

// RunCounts aggregates per-run statistics for the audit report.
type RunCounts struct {
	Fetched      int `json:"fetched"`
	New          int `json:"new"`
	Transitioned int `json:"transitioned"`
	Errors       int `json:"errors"`
	Pages        int `json:"pages"`
	Truncated    int `json:"truncated"`
	Retries      int `json:"retries"`
}

// RunReport is the audit row written once per source run.
type RunReport struct {
	CrawlerName string     `json:"crawler_name"`
	Status      RunOutcome `json:"status"`
	Counts      RunCounts  `json:"report_data"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RunResult is the in-memory terminal state the orchestrator collects
// for each source task.
type RunResult struct {
	Source  string
	RunID   string
	Outcome RunOutcome
	Counts  RunCounts
	// Completions counts transitions into completed observed this run.
	Completions int
	Err         error
}

// BatchSummary aggregates every source's terminal state for one batch.
type BatchSummary struct {
	Started  time.Time
	Finished time.Time
	Results  []RunResult
}

// Outcomes tallies the batch results by outcome.
func (b BatchSummary) Outcomes() map[RunOutcome]int {
	out := make(map[RunOutcome]int, 3)
	for _, r := range b.Results {
		out[r.Outcome]++
	}
	return out
}
