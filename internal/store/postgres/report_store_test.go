package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

func newReportStoreMock(t *testing.T) (*ReportStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewReportStore(mock)
	require.NoError(t, err)
	return store, mock
}

func TestInsertReport(t *testing.T) {
	t.Parallel()

	store, mock := newReportStoreMock(t)

	report := ingest.RunReport{
		CrawlerName: "naver",
		Status:      ingest.RunOK,
		Counts:      ingest.RunCounts{Fetched: 120, New: 3, Transitioned: 1, Pages: 2},
	}
	data, err := json.Marshal(report.Counts)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO daily_crawler_reports`).
		WithArgs("naver", "ok", data).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertReport(context.Background(), report))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReportExecError(t *testing.T) {
	t.Parallel()

	store, mock := newReportStoreMock(t)

	mock.ExpectExec(`INSERT INTO daily_crawler_reports`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	err := store.InsertReport(context.Background(), ingest.RunReport{CrawlerName: "naver", Status: ingest.RunFailed})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecent(t *testing.T) {
	t.Parallel()

	store, mock := newReportStoreMock(t)

	createdAt := time.Date(2026, 8, 27, 3, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, crawler_name, status, report_data, created_at`).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "crawler_name", "status", "report_data", "created_at"}).
			AddRow(int64(12), "naver", "ok", []byte(`{"fetched":120}`), createdAt).
			AddRow(int64(11), "kakao", "partial", []byte(`{"fetched":80}`), createdAt.Add(-time.Hour)))

	reports, err := store.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, int64(12), reports[0].ID)
	assert.Equal(t, "naver", reports[0].CrawlerName)
	assert.Equal(t, "ok", reports[0].Status)
	assert.JSONEq(t, `{"fetched":120}`, string(reports[0].ReportData))
	assert.Equal(t, "partial", reports[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentDefaultsLimit(t *testing.T) {
	t.Parallel()

	store, mock := newReportStoreMock(t)

	mock.ExpectQuery(`SELECT id, crawler_name, status, report_data, created_at`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "crawler_name", "status", "report_data", "created_at"}))

	reports, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, reports)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentQueryError(t *testing.T) {
	t.Parallel()

	store, mock := newReportStoreMock(t)

	mock.ExpectQuery(`SELECT id, crawler_name, status, report_data, created_at`).
		WithArgs(10).
		WillReturnError(errors.New("relation does not exist"))

	_, err := store.ListRecent(context.Background(), 10)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
