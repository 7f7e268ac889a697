// Package pubsub publishes run alerts to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// Sink publishes alerts to one topic.
type Sink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New creates the Pub/Sub client and verifies the topic exists.
// Authentication uses Application Default Credentials.
func New(ctx context.Context, projectID, topicID string) (*Sink, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("alerts.project_id and alerts.topic_id are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !ok {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	return &Sink{client: client, topic: topic}, nil
}

// PublishAlert implements ingest.AlertSink.
func (s *Sink) PublishAlert(ctx context.Context, alert ingest.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	result := s.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"source":  alert.Source,
			"outcome": string(alert.Outcome),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Close stops the topic's publish goroutines and releases the client.
func (s *Sink) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
