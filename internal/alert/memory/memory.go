// Package memory records alerts in memory for tests.
package memory

import (
	"context"
	"sync"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// Sink stores published alerts for inspection.
type Sink struct {
	mu     sync.Mutex
	alerts []ingest.Alert
}

// New returns an empty Sink.
func New() *Sink { return &Sink{} }

// PublishAlert implements ingest.AlertSink.
func (s *Sink) PublishAlert(_ context.Context, alert ingest.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

// Alerts returns the recorded alerts.
func (s *Sink) Alerts() []ingest.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ingest.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
