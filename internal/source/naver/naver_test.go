package naver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsukl/toondex-ingest/internal/ingest"
	"github.com/minsukl/toondex-ingest/internal/source/httpx"
)

const pageOne = `{
	"page": 1,
	"totalPages": 2,
	"titleList": [
		{
			"titleId": 758037,
			"titleName": "  전지적 독자   시점 ",
			"publishStatus": "연재중",
			"writers": ["싱숑", "싱숑"],
			"thumbnailUrl": "https://img.example/758037.jpg",
			"publishDayOfWeekList": ["WEDNESDAY"],
			"adult": false,
			"representGenre": "fantasy"
		},
		{
			"titleName": "missing id",
			"publishStatus": "연재중"
		},
		{
			"titleId": 183559,
			"titleName": "신의 탑",
			"publishStatus": "완결",
			"adult": true
		}
	]
}`

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, PageSize: 50}, httpx.New(httpx.Config{}))
}

func TestFetchPageSetsLastFlagFromTotalPages(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/webtoons", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("size"))
		page := r.URL.Query().Get("page")
		fmt.Fprintf(w, `{"page": %s, "totalPages": 2, "titleList": []}`, page)
	})

	first, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, first.Last)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "naver", first.Source)

	last, err := src.FetchPage(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, last.Last)
}

func TestFetchPageRejectsBrokenEnvelope(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`)) //nolint:errcheck
	})

	_, err := src.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, ingest.IsFatal(err))
}

func TestFetchPagePropagatesClientErrors(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := src.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, ingest.IsTransient(err))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	src := New(Config{}, nil)
	out, err := src.Normalize(ingest.RawPage{Source: "naver", Number: 1, Body: []byte(pageOne)})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Malformed, "an item without a title id is skipped")
	require.Len(t, out.Records, 2)

	first := out.Records[0]
	assert.Equal(t, "758037", first.ContentID)
	assert.Equal(t, "naver", first.Source)
	assert.Equal(t, "webtoon", first.ContentType)
	assert.Equal(t, "전지적 독자 시점", first.Title)
	assert.Equal(t, ingest.StatusOngoing, first.Status)
	assert.Equal(t, []string{"싱숑"}, first.Meta.Common.Authors)
	assert.Equal(t, []string{"WEDNESDAY"}, first.Meta.Common.Weekdays)
	assert.Equal(t, "https://img.example/758037.jpg", first.Meta.Common.Thumbnail)
	assert.Equal(t, "fantasy", first.Meta.Attributes["genre"])

	second := out.Records[1]
	assert.Equal(t, ingest.StatusCompleted, second.Status)
	assert.Equal(t, true, second.Meta.Attributes["adult"])
}

func TestNormalizeUnknownStatusFallsBackToOngoing(t *testing.T) {
	t.Parallel()

	body := `{"titleList": [{"titleId": 1, "titleName": "t", "publishStatus": "예정"}]}`
	out, err := New(Config{}, nil).Normalize(ingest.RawPage{Body: []byte(body)})
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, ingest.StatusOngoing, out.Records[0].Status)
}

func TestNormalizeRejectsBrokenPayload(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil).Normalize(ingest.RawPage{Body: []byte(`not json`)})
	require.Error(t, err)
	assert.True(t, ingest.IsFatal(err))
}
