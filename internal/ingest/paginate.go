package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"

	"go.uber.org/zap"
)

// PaginateConfig bounds the page loop for one source run.
type PaginateConfig struct {
	// MaxPages is the hard ceiling on pages per run; stops runaway loops
	// on sources that keep returning the same page on error.
	MaxPages int
	// IdenticalPageLimit stops pagination after this many consecutive
	// byte-identical pages.
	IdenticalPageLimit int
	// NoNewIDLimit stops pagination after this many consecutive pages
	// that yielded zero previously-unseen content ids.
	NoNewIDLimit int
	Retry        RetryPolicy
}

// PageHook is invoked once per successfully fetched page, before
// normalization. Used for raw payload archival; must not fail the run.
type PageHook func(page RawPage)

// FetchOutcome is the in-memory result of the fetch+normalize phase.
type FetchOutcome struct {
	// Records holds one entry per unique content id, in first-seen fetch
	// order. When an id repeats across pages the later occurrence wins.
	Records   []ContentRecord
	Pages     int
	Malformed int
	Truncated int
	Retries   int
}

// FetchAll drives sequential pagination for one source: page N+1 is only
// requested after page N completed, each page fetch retried per the
// policy. It returns what was gathered so far alongside any terminal
// error, so callers can report counts even for failed runs.
func FetchAll(ctx context.Context, src Source, cfg PaginateConfig, logger *zap.Logger, hook PageHook) (FetchOutcome, error) {
	var out FetchOutcome
	seen := make(map[string]int)

	var prevSum [sha256.Size]byte
	identicalRun := 0
	noNewRun := 0

	for pageNo := 1; ; pageNo++ {
		if cfg.MaxPages > 0 && pageNo > cfg.MaxPages {
			logger.Warn("page ceiling reached, truncating pagination",
				zap.String("source", src.Name()),
				zap.Int("max_pages", cfg.MaxPages),
			)
			out.Truncated++
			return out, nil
		}

		var page RawPage
		retries, err := cfg.Retry.Do(ctx, func() error {
			var fetchErr error
			page, fetchErr = src.FetchPage(ctx, pageNo)
			return fetchErr
		})
		out.Retries += retries
		if err != nil {
			return out, fmt.Errorf("fetch page %d: %w", pageNo, err)
		}
		out.Pages++

		if hook != nil {
			hook(page)
		}

		sum := sha256.Sum256(page.Body)
		if out.Pages > 1 && sum == prevSum {
			identicalRun++
			if cfg.IdenticalPageLimit > 0 && identicalRun >= cfg.IdenticalPageLimit {
				logger.Warn("identical page loop guard tripped",
					zap.String("source", src.Name()),
					zap.Int("page", pageNo),
					zap.Int("identical_run", identicalRun),
				)
				out.Truncated++
				return out, nil
			}
		} else {
			identicalRun = 0
		}
		prevSum = sum

		norm, err := src.Normalize(page)
		if err != nil {
			return out, fmt.Errorf("normalize page %d: %w", pageNo, err)
		}
		out.Malformed += norm.Malformed

		newIDs := 0
		for _, rec := range norm.Records {
			if idx, ok := seen[rec.ContentID]; ok {
				// Duplicate across pages: later occurrence wins.
				out.Records[idx] = rec
				continue
			}
			seen[rec.ContentID] = len(out.Records)
			out.Records = append(out.Records, rec)
			newIDs++
		}

		if len(norm.Records) == 0 {
			// Empty page signals end-of-list.
			return out, nil
		}
		if page.Last {
			return out, nil
		}

		if newIDs == 0 {
			noNewRun++
			if cfg.NoNewIDLimit > 0 && noNewRun >= cfg.NoNewIDLimit {
				logger.Warn("no-new-id loop guard tripped",
					zap.String("source", src.Name()),
					zap.Int("page", pageNo),
					zap.Int("no_new_run", noNewRun),
				)
				out.Truncated++
				return out, nil
			}
		} else {
			noNewRun = 0
		}
	}
}
