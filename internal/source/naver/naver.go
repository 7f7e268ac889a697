// Package naver implements the webtoon catalog source backed by the
// Naver series API: page-number pagination with a totalPages marker.
package naver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minsukl/toondex-ingest/internal/ingest"
	"github.com/minsukl/toondex-ingest/internal/normalize"
	"github.com/minsukl/toondex-ingest/internal/source/httpx"
)

const sourceName = "naver"

var statusTable = normalize.StatusTable{
	"연재중":      ingest.StatusOngoing,
	"휴재":       ingest.StatusHiatus,
	"완결":       ingest.StatusCompleted,
	"finished": ingest.StatusCompleted,
}

// Config holds the source endpoint settings.
type Config struct {
	BaseURL  string
	PageSize int
}

// Source fetches and normalizes the Naver webtoon catalog.
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

// envelope is the pagination frame around every list response.
type envelope struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

type listResponse struct {
	envelope
	Titles []titlePayload `json:"titleList"`
}

type titlePayload struct {
	TitleID   json.Number `json:"titleId"`
	Title     string      `json:"titleName"`
	Status    string      `json:"publishStatus"`
	Writers   []string    `json:"writers"`
	Thumbnail string      `json:"thumbnailUrl"`
	Weekdays  []string    `json:"publishDayOfWeekList"`
	Adult     bool        `json:"adult"`
	Genre     string      `json:"representGenre"`
}

// FetchPage retrieves one catalog page. The envelope is decoded here
// only to set the last-page flag; record extraction stays in Normalize.
func (s *Source) FetchPage(ctx context.Context, page int) (ingest.RawPage, error) {
	url := fmt.Sprintf("%s/api/v1/webtoons?page=%d&size=%d", s.cfg.BaseURL, page, s.cfg.PageSize)
	body, err := s.client.Get(ctx, url)
	if err != nil {
		return ingest.RawPage{}, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ingest.RawPage{}, ingest.Fatal(fmt.Errorf("decode naver envelope: %w", err))
	}
	return ingest.RawPage{
		Source: sourceName,
		Number: page,
		Body:   body,
		Last:   env.TotalPages > 0 && env.Page >= env.TotalPages,
	}, nil
}

// Normalize maps the Naver payload onto canonical records. Items
// missing their title id are skipped and counted.
func (s *Source) Normalize(page ingest.RawPage) (ingest.NormalizedPage, error) {
	var resp listResponse
	if err := json.Unmarshal(page.Body, &resp); err != nil {
		return ingest.NormalizedPage{}, ingest.Fatal(fmt.Errorf("decode naver page %d: %w", page.Number, err))
	}

	out := ingest.NormalizedPage{Records: make([]ingest.ContentRecord, 0, len(resp.Titles))}
	for _, item := range resp.Titles {
		id := item.TitleID.String()
		if id == "" {
			out.Malformed++
			continue
		}
		status, _ := statusTable.Map(item.Status)
		attrs := map[string]any{}
		if item.Adult {
			attrs["adult"] = true
		}
		if item.Genre != "" {
			attrs["genre"] = item.Genre
		}
		out.Records = append(out.Records, ingest.ContentRecord{
			ContentID:   id,
			Source:      sourceName,
			ContentType: "webtoon",
			Title:       normalize.CleanText(item.Title),
			Status:      status,
			Meta: normalize.BuildMeta(ingest.MetaCommon{
				Thumbnail: item.Thumbnail,
				Authors:   item.Writers,
				Weekdays:  item.Weekdays,
			}, attrs),
		})
	}
	return out, nil
}
