package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// Postgres error codes that mean the session timeout bounds fired.
const (
	pgCodeQueryCanceled    = "57014" // statement_timeout
	pgCodeLockNotAvailable = "55P03" // lock_timeout
)

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
}

// ContentStore reads snapshots and writes contents plus change events.
// It is both the ingest.SnapshotReader and the ingest.Persister.
type ContentStore struct {
	pool txBeginner
}

// NewContentStore wraps an existing pool (or a pgxmock pool in tests).
func NewContentStore(pool txBeginner) (*ContentStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ContentStore{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *ContentStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const snapshotSQL = `SELECT content_id, status FROM contents WHERE source = $1`

// ReadSnapshot loads the (content_id, status) index for one source in a
// read-only transaction, committed before this function returns. No
// database lock survives into the network-bound fetch phase.
func (s *ContentStore) ReadSnapshot(ctx context.Context, source string) (ingest.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}

	rows, err := tx.Query(ctx, snapshotSQL, source)
	if err != nil {
		tx.Rollback(ctx) //nolint:errcheck
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	snapshot := make(ingest.Snapshot)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			rows.Close()
			tx.Rollback(ctx) //nolint:errcheck
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshot[id] = ingest.Status(status)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		tx.Rollback(ctx) //nolint:errcheck
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot tx: %w", err)
	}
	return snapshot, nil
}

const upsertContentSQL = `
INSERT INTO contents (content_id, source, content_type, title, status, meta, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (content_id, source) DO UPDATE SET
	content_type = EXCLUDED.content_type,
	title = EXCLUDED.title,
	status = EXCLUDED.status,
	meta = EXCLUDED.meta,
	updated_at = NOW()`

const insertEventSQL = `
INSERT INTO cdc_events (content_id, source, from_status, to_status, is_completion, detected_at, run_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PersistRun applies one run's upserts and appends its change events in
// a single write transaction, opened only after the in-memory pipeline
// finished. The session statement/lock timeouts bound the whole phase;
// on timeout everything rolls back and the error reports as a
// persistence timeout so the run is marked partial.
func (s *ContentStore) PersistRun(ctx context.Context, records []ingest.ContentRecord, events []ingest.ChangeEvent) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classifyWriteErr(fmt.Errorf("begin write tx: %w", err))
	}
	if err := persistRunTx(ctx, tx, records, events); err != nil {
		tx.Rollback(ctx) //nolint:errcheck
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyWriteErr(fmt.Errorf("commit write tx: %w", err))
	}
	return nil
}

func persistRunTx(ctx context.Context, tx pgx.Tx, records []ingest.ContentRecord, events []ingest.ChangeEvent) error {
	for _, rec := range records {
		metaJSON, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("marshal meta for %s/%s: %w", rec.Source, rec.ContentID, err)
		}
		if _, err := tx.Exec(ctx, upsertContentSQL,
			rec.ContentID,
			rec.Source,
			rec.ContentType,
			rec.Title,
			string(rec.Status),
			metaJSON,
		); err != nil {
			return classifyWriteErr(fmt.Errorf("upsert content %s/%s: %w", rec.Source, rec.ContentID, err))
		}
	}

	for _, ev := range events {
		var from *string
		if ev.FromStatus != nil {
			v := string(*ev.FromStatus)
			from = &v
		}
		if _, err := tx.Exec(ctx, insertEventSQL,
			ev.ContentID,
			ev.Source,
			from,
			string(ev.ToStatus),
			ev.IsCompletion,
			ev.DetectedAt,
			ev.RunID,
		); err != nil {
			return classifyWriteErr(fmt.Errorf("insert change event %s/%s: %w", ev.Source, ev.ContentID, err))
		}
	}
	return nil
}

// classifyWriteErr folds statement/lock timeout errors into the
// persistence-timeout taxonomy; everything else passes through.
func classifyWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgCodeQueryCanceled || pgErr.Code == pgCodeLockNotAvailable {
			return &ingest.PersistenceTimeoutError{Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ingest.PersistenceTimeoutError{Err: err}
	}
	return err
}
