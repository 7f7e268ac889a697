// Package normalize provides the shared helpers sources use to map raw
// payloads onto the canonical record shape.
package normalize

import (
	"strings"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// StatusTable maps one source's status vocabulary onto the canonical
// three-value enum.
type StatusTable map[string]ingest.Status

// Map resolves a raw status value. Unknown vocabulary falls back to
// ongoing: a wrong ongoing is corrected by a later run, while a wrong
// completed would fan out spurious notifications.
func (t StatusTable) Map(raw string) (ingest.Status, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := t[key]; ok {
		return status, true
	}
	return ingest.StatusOngoing, false
}

// Dedupe trims entries, drops empties, and removes duplicates while
// preserving first-seen source order.
func Dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = CleanText(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CleanText trims surrounding whitespace and collapses internal runs of
// whitespace to a single space.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BuildMeta assembles the meta blob: cross-source fields under common,
// source-specific residue under attributes.
func BuildMeta(common ingest.MetaCommon, attributes map[string]any) ingest.Meta {
	common.Authors = Dedupe(common.Authors)
	common.Weekdays = Dedupe(common.Weekdays)
	meta := ingest.Meta{Common: common}
	if len(attributes) > 0 {
		meta.Attributes = attributes
	}
	return meta
}
