package ingest

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Orchestrator fans out one runner task per configured source. Sources
// are isolated: each task owns its own snapshot, its own rows (keyed by
// its source value), and its failures never cancel or mask a sibling's.
type Orchestrator struct {
	runner  *Runner
	sources []Source
	configs map[string]SourceRunConfig
	alerts  AlertSink
	clock   Clock
	logger  *zap.Logger
}

// NewOrchestrator constructs an Orchestrator. alerts may be nil to
// disable ops fanout. configs is keyed by source name; sources missing
// an entry run with zero-value config (batch context only, no guards).
func NewOrchestrator(
	runner *Runner,
	sources []Source,
	configs map[string]SourceRunConfig,
	alerts AlertSink,
	clock Clock,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		runner:  runner,
		sources: sources,
		configs: configs,
		alerts:  alerts,
		clock:   clock,
		logger:  logger,
	}
}

// RunBatch executes every source concurrently and blocks until all
// tasks reach a terminal state. A panic inside one source task is
// captured as that task's failure.
func (o *Orchestrator) RunBatch(ctx context.Context) BatchSummary {
	summary := BatchSummary{Started: o.clock.Now()}
	results := make([]RunResult, len(o.sources))

	var wg sync.WaitGroup
	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = RunResult{
						Source:  src.Name(),
						Outcome: RunFailed,
						Err:     fmt.Errorf("source task panic: %v", rec),
					}
					o.logger.Error("source task panicked",
						zap.String("source", src.Name()),
						zap.Any("panic", rec),
					)
				}
			}()
			results[i] = o.runner.RunSource(ctx, src, o.configs[src.Name()])
		}(i, src)
	}
	wg.Wait()

	summary.Results = results
	summary.Finished = o.clock.Now()
	o.logSummary(summary)
	o.publishAlerts(ctx, summary)
	return summary
}

func (o *Orchestrator) logSummary(summary BatchSummary) {
	outcomes := summary.Outcomes()
	o.logger.Info("batch finished",
		zap.Duration("elapsed", summary.Finished.Sub(summary.Started)),
		zap.Int("sources", len(summary.Results)),
		zap.Int("ok", outcomes[RunOK]),
		zap.Int("partial", outcomes[RunPartial]),
		zap.Int("failed", outcomes[RunFailed]),
	)
}

// publishAlerts tells the ops collaborator about failed or partial runs
// and about runs that observed completions. Best effort.
func (o *Orchestrator) publishAlerts(ctx context.Context, summary BatchSummary) {
	if o.alerts == nil {
		return
	}
	for _, res := range summary.Results {
		if res.Outcome == RunOK && res.Completions == 0 {
			continue
		}
		alert := Alert{
			Source:      res.Source,
			RunID:       res.RunID,
			Outcome:     res.Outcome,
			Completions: res.Completions,
		}
		if res.Err != nil {
			alert.Detail = res.Err.Error()
		}
		if err := o.alerts.PublishAlert(ctx, alert); err != nil {
			o.logger.Warn("alert publish failed",
				zap.String("source", res.Source),
				zap.Error(err),
			)
		}
	}
}
