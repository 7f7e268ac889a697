package ingest

import (
	"time"
)

// Diff compares the pre-fetch snapshot with the freshly normalized
// records and emits one ChangeEvent per new title or status transition,
// in fetch order. Records present in the snapshot but absent from the
// fetch are deliberately ignored: absence is ambiguous (pagination
// truncation, partial payloads) and must not produce spurious events.
//
// Diff is pure; running it twice on the same inputs yields the same
// event list.
func Diff(snap Snapshot, records []ContentRecord, runID string, detectedAt time.Time) []ChangeEvent {
	var events []ChangeEvent
	for _, rec := range records {
		prev, known := snap[rec.ContentID]
		if !known {
			events = append(events, ChangeEvent{
				ContentID:  rec.ContentID,
				Source:     rec.Source,
				FromStatus: nil,
				ToStatus:   rec.Status,
				// A first sighting is not a transition, even when the
				// title arrives already completed.
				IsCompletion: false,
				DetectedAt:   detectedAt,
				RunID:        runID,
			})
			continue
		}
		if prev == rec.Status {
			continue
		}
		from := prev
		events = append(events, ChangeEvent{
			ContentID:    rec.ContentID,
			Source:       rec.Source,
			FromStatus:   &from,
			ToStatus:     rec.Status,
			IsCompletion: rec.Status == StatusCompleted,
			DetectedAt:   detectedAt,
			RunID:        runID,
		})
	}
	return events
}
