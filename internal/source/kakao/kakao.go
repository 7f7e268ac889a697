// Package kakao implements the catalog source backed by the Kakao Page
// series API: page-number pagination with an isEnd cursor flag.
package kakao

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minsukl/toondex-ingest/internal/ingest"
	"github.com/minsukl/toondex-ingest/internal/normalize"
	"github.com/minsukl/toondex-ingest/internal/source/httpx"
)

const sourceName = "kakao"

var statusTable = normalize.StatusTable{
	"status_ongoing":  ingest.StatusOngoing,
	"status_paused":   ingest.StatusHiatus,
	"status_finished": ingest.StatusCompleted,
}

// Config holds the source endpoint settings.
type Config struct {
	BaseURL  string
	PageSize int
}

// Source fetches and normalizes the Kakao Page catalog.
type Source struct {
	cfg    Config
	client *httpx.Client
}

// New constructs the source over the given client.
func New(cfg Config, client *httpx.Client) *Source {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Source{cfg: cfg, client: client}
}

// Name implements ingest.Source.
func (s *Source) Name() string { return sourceName }

type listResponse struct {
	IsEnd bool            `json:"isEnd"`
	Items []seriesPayload `json:"items"`
}

type seriesPayload struct {
	SeriesID   string   `json:"seriesId"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	Authors    []author `json:"authors"`
	Thumbnail  string   `json:"thumbnailUrl"`
	SeriesType string   `json:"seriesType"`
	AgeGrade   int      `json:"ageGrade"`
	BM         string   `json:"businessModel"`
}

type author struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// FetchPage retrieves one catalog page; isEnd from the payload sets the
// last-page flag.
func (s *Source) FetchPage(ctx context.Context, page int) (ingest.RawPage, error) {
	url := fmt.Sprintf("%s/v2/series?page=%d&size=%d", s.cfg.BaseURL, page, s.cfg.PageSize)
	body, err := s.client.Get(ctx, url)
	if err != nil {
		return ingest.RawPage{}, err
	}
	var probe struct {
		IsEnd bool `json:"isEnd"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ingest.RawPage{}, ingest.Fatal(fmt.Errorf("decode kakao envelope: %w", err))
	}
	return ingest.RawPage{
		Source: sourceName,
		Number: page,
		Body:   body,
		Last:   probe.IsEnd,
	}, nil
}

// Normalize maps the Kakao payload onto canonical records. Items
// missing seriesId are skipped and counted.
func (s *Source) Normalize(page ingest.RawPage) (ingest.NormalizedPage, error) {
	var resp listResponse
	if err := json.Unmarshal(page.Body, &resp); err != nil {
		return ingest.NormalizedPage{}, ingest.Fatal(fmt.Errorf("decode kakao page %d: %w", page.Number, err))
	}

	out := ingest.NormalizedPage{Records: make([]ingest.ContentRecord, 0, len(resp.Items))}
	for _, item := range resp.Items {
		if item.SeriesID == "" {
			out.Malformed++
			continue
		}
		status, _ := statusTable.Map(item.Status)
		names := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			names = append(names, a.Name)
		}
		attrs := map[string]any{}
		if item.BM != "" {
			attrs["business_model"] = item.BM
		}
		if item.AgeGrade > 0 {
			attrs["age_grade"] = item.AgeGrade
		}
		contentType := "webtoon"
		if item.SeriesType != "" {
			contentType = item.SeriesType
		}
		out.Records = append(out.Records, ingest.ContentRecord{
			ContentID:   item.SeriesID,
			Source:      sourceName,
			ContentType: contentType,
			Title:       normalize.CleanText(item.Title),
			Status:      status,
			Meta: normalize.BuildMeta(ingest.MetaCommon{
				Thumbnail: item.Thumbnail,
				Authors:   names,
			}, attrs),
		})
	}
	return out, nil
}
