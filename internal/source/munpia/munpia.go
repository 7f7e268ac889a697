// Package munpia implements the web-novel catalog source scraped from
// the Munpia HTML list pages via colly. The raw payload for this source
// is the extracted row set, serialized so the loop guard can fingerprint
// it without markup noise.
package munpia

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/minsukl/toondex-ingest/internal/ingest"
	"github.com/minsukl/toondex-ingest/internal/normalize"
	"github.com/minsukl/toondex-ingest/internal/source/httpx"
)

const sourceName = "munpia"

var statusTable = normalize.StatusTable{
	"연재중": ingest.StatusOngoing,
	"휴재중": ingest.StatusHiatus,
	"완결":  ingest.StatusCompleted,
}

// Config holds the source endpoint settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Source scrapes and normalizes the Munpia novel catalog.
type Source struct {
	cfg  Config
	base *colly.Collector
}

// New constructs the source with a reusable base collector; each page
// fetch clones it, following the one-collector-per-request pattern.
func New(cfg Config) *Source {
	c := colly.NewCollector(colly.Async(false))
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	c.SetRequestTimeout(timeout)
	return &Source{cfg: cfg, base: c}
}

// Name implements ingest.Source.
func (s *Source) Name() string { return sourceName }

// pageDoc is the extracted raw payload for one list page.
type pageDoc struct {
	Rows    []rawRow `json:"rows"`
	HasNext bool     `json:"has_next"`
}

type rawRow struct {
	NovelID   string `json:"novel_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Author    string `json:"author"`
	Thumbnail string `json:"thumbnail"`
	Genre     string `json:"genre"`
}

// FetchPage scrapes one list page.
func (s *Source) FetchPage(ctx context.Context, page int) (ingest.RawPage, error) {
	collector := s.base.Clone()

	doc := pageDoc{}
	var respErr error

	collector.OnHTML("ul.novel-list li.novel-item", func(e *colly.HTMLElement) {
		doc.Rows = append(doc.Rows, rawRow{
			NovelID:   e.Attr("data-novel-id"),
			Title:     e.ChildText("a.title"),
			Status:    e.ChildText("span.badge-status"),
			Author:    e.ChildText("span.author"),
			Thumbnail: e.ChildAttr("img.cover", "src"),
			Genre:     e.ChildText("span.genre"),
		})
	})
	collector.OnHTML("div.pagination a.next", func(*colly.HTMLElement) {
		doc.HasNext = true
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			respErr = httpx.ClassifyStatus(r.StatusCode)
			return
		}
		respErr = ingest.Transient(err)
	})

	url := fmt.Sprintf("%s/novel/list?page=%d", s.cfg.BaseURL, page)
	if err := s.visit(ctx, collector, url); err != nil {
		// OnError classified the response if there was one; prefer that
		// over colly's own error, which loses the status code.
		if respErr != nil {
			return ingest.RawPage{}, fmt.Errorf("fetch %s: %w", url, respErr)
		}
		return ingest.RawPage{}, err
	}
	if respErr != nil {
		return ingest.RawPage{}, fmt.Errorf("fetch %s: %w", url, respErr)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return ingest.RawPage{}, ingest.Fatal(fmt.Errorf("encode munpia rows: %w", err))
	}
	return ingest.RawPage{
		Source: sourceName,
		Number: page,
		Body:   body,
		Last:   !doc.HasNext,
	}, nil
}

func (s *Source) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		err := collector.Visit(url)
		collector.Wait()
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return ingest.Transient(fmt.Errorf("visit %s: %w", url, err))
		}
		return nil
	}
}

// Normalize maps extracted rows onto canonical records. Rows missing
// their novel id are skipped and counted.
func (s *Source) Normalize(page ingest.RawPage) (ingest.NormalizedPage, error) {
	var doc pageDoc
	if err := json.Unmarshal(page.Body, &doc); err != nil {
		return ingest.NormalizedPage{}, ingest.Fatal(fmt.Errorf("decode munpia page %d: %w", page.Number, err))
	}

	out := ingest.NormalizedPage{Records: make([]ingest.ContentRecord, 0, len(doc.Rows))}
	for _, row := range doc.Rows {
		if row.NovelID == "" {
			out.Malformed++
			continue
		}
		status, _ := statusTable.Map(row.Status)
		attrs := map[string]any{}
		if row.Genre != "" {
			attrs["genre"] = row.Genre
		}
		out.Records = append(out.Records, ingest.ContentRecord{
			ContentID:   row.NovelID,
			Source:      sourceName,
			ContentType: "webnovel",
			Title:       normalize.CleanText(row.Title),
			Status:      status,
			Meta: normalize.BuildMeta(ingest.MetaCommon{
				Thumbnail: row.Thumbnail,
				Authors:   []string{row.Author},
			}, attrs),
		})
	}
	return out, nil
}
