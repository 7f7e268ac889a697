package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minsukl/toondex-ingest/internal/metrics"
)

// stage labels for run progress logging.
const (
	stagePending  = "pending"
	stageFetching = "fetching"
	stageDiffing  = "diffing"
	stageWriting  = "writing"
)

// SourceRunConfig carries the per-source knobs resolved from configuration.
type SourceRunConfig struct {
	Paginate PaginateConfig
	// Timeout bounds the whole run for this source. Zero means the
	// batch context alone governs cancellation.
	Timeout time.Duration
}

// Runner drives the fixed per-source pipeline:
// snapshot -> fetch -> normalize -> diff -> persist -> report.
// The ordering is the core correctness property: the snapshot
// transaction closes before any network I/O, and the write transaction
// opens only after the in-memory pipeline finished.
type Runner struct {
	snapshots SnapshotReader
	persister Persister
	reports   Reporter
	archiver  Archiver
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
}

// NewRunner constructs a Runner. archiver may be nil to disable raw
// page archival.
func NewRunner(
	snapshots SnapshotReader,
	persister Persister,
	reports Reporter,
	archiver Archiver,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		snapshots: snapshots,
		persister: persister,
		reports:   reports,
		archiver:  archiver,
		clock:     clock,
		ids:       ids,
		logger:    logger,
	}
}

// RunSource executes one full run for one source and always files a run
// report, including on failure paths. Errors never escape to the caller
// raw; they are folded into the RunResult.
func (r *Runner) RunSource(ctx context.Context, src Source, cfg SourceRunConfig) RunResult {
	started := r.clock.Now()
	result := RunResult{Source: src.Name(), Outcome: RunFailed}

	runID, err := r.ids.NewID()
	if err != nil {
		result.Err = err
		r.finish(ctx, src.Name(), result, started)
		return result
	}
	result.RunID = runID

	log := r.logger.With(
		zap.String("source", src.Name()),
		zap.String("run_id", runID),
	)
	log.Info("run starting", zap.String("stage", stagePending))

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// Snapshot first: the read transaction is opened and closed inside
	// ReadSnapshot, strictly before any network call.
	snapshot, err := r.snapshots.ReadSnapshot(ctx, src.Name())
	if err != nil {
		result.Err = err
		log.Error("snapshot read failed", zap.Error(err))
		r.finish(ctx, src.Name(), result, started)
		return result
	}

	log.Info("run fetching", zap.String("stage", stageFetching), zap.Int("snapshot_size", len(snapshot)))
	outcome, err := FetchAll(ctx, src, cfg.Paginate, log, r.archiveHook(ctx, src.Name(), runID, log))
	result.Counts = RunCounts{
		Fetched:   len(outcome.Records),
		Errors:    outcome.Malformed,
		Pages:     outcome.Pages,
		Truncated: outcome.Truncated,
		Retries:   outcome.Retries,
	}
	if err != nil {
		// Fatal fetch, exhausted retries, or cancellation: discard all
		// in-memory state. Nothing was written, so the next run
		// re-derives everything from an unchanged snapshot.
		result.Err = err
		log.Error("fetch phase failed", zap.Error(err))
		r.finish(ctx, src.Name(), result, started)
		return result
	}

	log.Info("run diffing", zap.String("stage", stageDiffing), zap.Int("fetched", len(outcome.Records)))
	events := Diff(snapshot, outcome.Records, runID, r.clock.Now())
	for _, ev := range events {
		if ev.FromStatus == nil {
			result.Counts.New++
		} else {
			result.Counts.Transitioned++
		}
		if ev.IsCompletion {
			result.Completions++
		}
	}
	if unseen := countUnseen(snapshot, outcome.Records); unseen > 0 {
		// Absence from a fetch is never treated as deletion; surfaced
		// here only so product review has a signal.
		log.Debug("snapshot ids not present in fetch", zap.Int("unseen", unseen))
	}

	log.Info("run writing", zap.String("stage", stageWriting), zap.Int("events", len(events)))
	if err := r.persister.PersistRun(ctx, outcome.Records, events); err != nil {
		result.Err = err
		if IsPersistenceTimeout(err) {
			result.Outcome = RunPartial
			log.Warn("write phase timed out, run partial", zap.Error(err))
		} else {
			log.Error("write phase failed", zap.Error(err))
		}
		r.finish(ctx, src.Name(), result, started)
		return result
	}

	result.Outcome = RunOK
	r.finish(ctx, src.Name(), result, started)
	log.Info("run finished",
		zap.String("outcome", string(result.Outcome)),
		zap.Int("new", result.Counts.New),
		zap.Int("transitioned", result.Counts.Transitioned),
		zap.Int("truncated", result.Counts.Truncated),
	)
	return result
}

// archiveHook returns the per-page archival callback, or nil when
// archival is disabled.
func (r *Runner) archiveHook(ctx context.Context, source, runID string, log *zap.Logger) PageHook {
	if r.archiver == nil {
		return nil
	}
	return func(page RawPage) {
		if err := r.archiver.ArchivePage(ctx, source, runID, page); err != nil {
			log.Warn("raw page archive failed",
				zap.Int("page", page.Number),
				zap.Error(err),
			)
			metrics.ObserveArchiveError(source)
		}
	}
}

// finish files the audit report (single attempt) and records metrics.
// A failed report write is logged but never changes the run outcome.
func (r *Runner) finish(ctx context.Context, source string, result RunResult, started time.Time) {
	report := RunReport{
		CrawlerName: source,
		Status:      result.Outcome,
		Counts:      result.Counts,
		CreatedAt:   r.clock.Now(),
	}
	// Reporting must survive cancellation of the run context.
	reportCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		reportCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if err := r.reports.InsertReport(reportCtx, report); err != nil {
		r.logger.Error("run report write failed",
			zap.String("source", source),
			zap.String("run_id", result.RunID),
			zap.Error(err),
		)
	}
	metrics.ObserveRun(source, string(result.Outcome), r.clock.Now().Sub(started))
	metrics.ObservePages(source, result.Counts.Pages)
	metrics.ObserveRetries(source, result.Counts.Retries)
	metrics.ObserveMalformed(source, result.Counts.Errors)
	metrics.ObserveEvents(source, result.Counts.New, result.Counts.Transitioned)
	if result.Counts.Truncated > 0 {
		metrics.ObserveTruncation(source)
	}
}

func countUnseen(snap Snapshot, records []ContentRecord) int {
	fetched := make(map[string]struct{}, len(records))
	for _, rec := range records {
		fetched[rec.ContentID] = struct{}{}
	}
	unseen := 0
	for id := range snap {
		if _, ok := fetched[id]; !ok {
			unseen++
		}
	}
	return unseen
}
