package kakao

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsukl/toondex-ingest/internal/ingest"
	"github.com/minsukl/toondex-ingest/internal/source/httpx"
)

const lastPage = `{
	"isEnd": true,
	"items": [
		{
			"seriesId": "53123456",
			"title": "나 혼자만 레벨업",
			"status": "STATUS_FINISHED",
			"authors": [
				{"name": "추공", "role": "writer"},
				{"name": "장성락", "role": "illustrator"}
			],
			"thumbnailUrl": "https://img.example/53123456.png",
			"seriesType": "webnovel",
			"ageGrade": 15,
			"businessModel": "wait_for_free"
		},
		{
			"title": "missing series id",
			"status": "STATUS_ONGOING"
		}
	]
}`

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, PageSize: 30}, httpx.New(httpx.Config{}))
}

func TestFetchPageSetsLastFlagFromIsEnd(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/series", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("size"))
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`{"isEnd": true, "items": []}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"isEnd": false, "items": []}`)) //nolint:errcheck
	})

	first, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, first.Last)
	assert.Equal(t, "kakao", first.Source)

	last, err := src.FetchPage(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, last.Last)
}

func TestFetchPageRejectsBrokenEnvelope(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]garbage`)) //nolint:errcheck
	})

	_, err := src.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, ingest.IsFatal(err))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	out, err := New(Config{}, nil).Normalize(ingest.RawPage{Source: "kakao", Number: 1, Body: []byte(lastPage)})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Malformed)
	require.Len(t, out.Records, 1)

	rec := out.Records[0]
	assert.Equal(t, "53123456", rec.ContentID)
	assert.Equal(t, "kakao", rec.Source)
	assert.Equal(t, "webnovel", rec.ContentType, "seriesType overrides the webtoon default")
	assert.Equal(t, "나 혼자만 레벨업", rec.Title)
	assert.Equal(t, ingest.StatusCompleted, rec.Status)
	assert.Equal(t, []string{"추공", "장성락"}, rec.Meta.Common.Authors)
	assert.Equal(t, "wait_for_free", rec.Meta.Attributes["business_model"])
	assert.Equal(t, 15, rec.Meta.Attributes["age_grade"])
}

func TestNormalizeDefaultsContentType(t *testing.T) {
	t.Parallel()

	body := `{"items": [{"seriesId": "1", "title": "t", "status": "STATUS_ONGOING"}]}`
	out, err := New(Config{}, nil).Normalize(ingest.RawPage{Body: []byte(body)})
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "webtoon", out.Records[0].ContentType)
	assert.Equal(t, ingest.StatusOngoing, out.Records[0].Status)
}

func TestNormalizeUnknownStatusFallsBackToOngoing(t *testing.T) {
	t.Parallel()

	body := `{"items": [{"seriesId": "1", "title": "t", "status": "STATUS_PREPARING"}]}`
	out, err := New(Config{}, nil).Normalize(ingest.RawPage{Body: []byte(body)})
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, ingest.StatusOngoing, out.Records[0].Status)
}
