package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBeforeInitIsSafe(t *testing.T) {
	// Must not panic even if Init has not run in this process yet.
	ObservePages("naver", 3)
	ObserveRetries("naver", 1)
	ObserveTruncation("naver")
}

func TestInitIsIdempotentAndObservable(t *testing.T) {
	Init()
	Init()

	ObserveRun("naver", "ok", 3*time.Second)
	ObservePages("naver", 2)
	ObserveRetries("naver", 1)
	ObserveMalformed("naver", 4)
	ObserveEvents("naver", 3, 1)
	ObserveTruncation("naver")
	ObserveArchiveError("naver")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, metric := range []string{
		"ingest_runs_total",
		"ingest_run_duration_seconds",
		"ingest_pages_total",
		"ingest_fetch_retries_total",
		"ingest_malformed_records_total",
		"ingest_change_events_total",
		"ingest_pagination_truncations_total",
		"ingest_archive_errors_total",
	} {
		assert.True(t, strings.Contains(body, metric), metric)
	}
}
