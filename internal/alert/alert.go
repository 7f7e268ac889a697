// Package alert fans out operational run alerts. The notification
// collaborator polls cdc_events directly; these alerts exist for the
// ops/deployment collaborator only.
package alert

import (
	"context"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// Noop discards every alert.
type Noop struct{}

// PublishAlert implements ingest.AlertSink.
func (Noop) PublishAlert(context.Context, ingest.Alert) error { return nil }
