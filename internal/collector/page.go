package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"surebet/internal/config"
	"surebet/internal/model"
)

const maxPageBytes = 8 << 20

// PageCollector fetches a bookmaker page over HTTP and reads quotes from the
// elements matching the source selector.
type PageCollector struct {
	logger *slog.Logger
	cfg    config.CollectorConfig
	client *http.Client
}

// NewPageCollector creates a new PageCollector.
func NewPageCollector(logger *slog.Logger, cfg config.CollectorConfig) *PageCollector {
	return &PageCollector{
		logger: logger,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *PageCollector) Kind() model.SourceKind {
	return model.SourceKindPage
}

// Collect loads src.URL and extracts up to MaxElements candidate quotes.
func (p *PageCollector) Collect(ctx context.Context, src model.Source) model.QuoteBatch {
	p.logger.Info("PageCollector: scraping", "source", src.Name, "url", src.URL)

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	quotes, err := p.fetch(ctx, src)
	if err != nil {
		p.logger.Error("PageCollector: scrape failed", "source", src.Name, "error", err)
		return failed(src, err)
	}

	p.logger.Info("PageCollector: quotes found", "source", src.Name, "count", len(quotes))
	return succeeded(src, quotes)
}

func (p *PageCollector) fetch(ctx context.Context, src model.Source) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	return extractQuotes(doc.Selection, src.Selector, p.cfg.MaxElements), nil
}

// extractQuotes reads at most limit elements matching selector, parses the first
// decimal in each, and drops the ones outside the plausible range.
func extractQuotes(root *goquery.Selection, selector string, limit int) []float64 {
	elements := root.Find(selector)
	if limit > 0 && elements.Length() > limit {
		elements = elements.Slice(0, limit)
	}

	candidates := make([]float64, 0, elements.Length())
	elements.Each(func(_ int, el *goquery.Selection) {
		if q, ok := parseQuote(el.Text()); ok {
			candidates = append(candidates, q)
		}
	})
	return filterQuotes(candidates)
}
