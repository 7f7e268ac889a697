package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

type execQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// ReportStore writes and lists the per-run audit rows.
type ReportStore struct {
	pool execQuerier
}

// NewReportStore wraps an existing pool (or a pgxmock pool in tests).
func NewReportStore(pool execQuerier) (*ReportStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ReportStore{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *ReportStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const insertReportSQL = `
INSERT INTO daily_crawler_reports (crawler_name, status, report_data)
VALUES ($1, $2, $3)`

// InsertReport writes one audit row. Callers attempt this exactly once;
// a failure here never changes a run's outcome.
func (s *ReportStore) InsertReport(ctx context.Context, report ingest.RunReport) error {
	data, err := json.Marshal(report.Counts)
	if err != nil {
		return fmt.Errorf("marshal report data: %w", err)
	}
	if _, err := s.pool.Exec(ctx, insertReportSQL,
		report.CrawlerName,
		string(report.Status),
		data,
	); err != nil {
		return fmt.Errorf("insert run report: %w", err)
	}
	return nil
}

// StoredReport is a persisted audit row as served by the ops API.
type StoredReport struct {
	ID          int64           `json:"id"`
	CrawlerName string          `json:"crawler_name"`
	Status      string          `json:"status"`
	ReportData  json.RawMessage `json:"report_data"`
	CreatedAt   time.Time       `json:"created_at"`
}

const listReportsSQL = `
SELECT id, crawler_name, status, report_data, created_at
FROM daily_crawler_reports
ORDER BY created_at DESC, id DESC
LIMIT $1`

// ListRecent returns the most recent audit rows, newest first.
func (s *ReportStore) ListRecent(ctx context.Context, limit int) ([]StoredReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, listReportsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query run reports: %w", err)
	}
	defer rows.Close()

	var out []StoredReport
	for rows.Next() {
		var r StoredReport
		if err := rows.Scan(&r.ID, &r.CrawlerName, &r.Status, &r.ReportData, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run reports: %w", err)
	}
	return out, nil
}
