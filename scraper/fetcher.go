package scraper

//go:generate mockgen -source=fetcher.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"jobfeed/config"
	"jobfeed/httputil"
	"jobfeed/models"
)

// Fetcher returns the raw candidates a source currently lists. It must not
// touch pipeline state; any error fails the scrape attempt.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, src models.Source) ([]models.RawCandidate, error)
}

// Pacer is the per-source rate limiter. The orchestrator calls BeforeAttempt
// ahead of every fetch attempt; fetchers call Wait between their own
// follow-up requests.
type Pacer interface {
	BeforeAttempt(ctx context.Context, src models.Source) error
	Wait(ctx context.Context, src models.Source) error
}

// NewFetcher picks the plugin named by the source's handler. JSON APIs go
// out on the direct client, HTML pages on the scraping client.
func NewFetcher(cfg *config.SourceConfig, clients *httputil.Clients, pacer Pacer) (Fetcher, error) {
	switch cfg.Handler {
	case "json":
		return NewJSONFetcher(cfg, clients.API, pacer), nil
	case "html":
		return NewHTMLFetcher(cfg, clients.Scraping, pacer), nil
	case "mock":
		return NewMockFetcher(cfg, seedFor(cfg.ID)), nil
	default:
		return nil, fmt.Errorf("source %s: unknown handler %q", cfg.ID, cfg.Handler)
	}
}

// NewFetchers builds one fetcher per configured source, keyed by source id.
func NewFetchers(cfgs map[string]*config.SourceConfig, clients *httputil.Clients, pacer Pacer) (map[string]Fetcher, error) {
	fetchers := make(map[string]Fetcher, len(cfgs))
	for id, sc := range cfgs {
		f, err := NewFetcher(sc, clients, pacer)
		if err != nil {
			return nil, err
		}
		fetchers[id] = f
	}
	return fetchers, nil
}

// endpointURLs resolves the source's endpoints against its base URL. A
// source with no endpoints is fetched at the base URL itself.
func endpointURLs(src models.Source) ([]string, error) {
	if len(src.Endpoints) == 0 {
		if src.BaseURL == "" {
			return nil, fmt.Errorf("source %s: no base_url or endpoints", src.ID)
		}
		return []string{src.BaseURL}, nil
	}

	base, err := url.Parse(src.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("source %s: bad base_url: %w", src.ID, err)
	}

	urls := make([]string, 0, len(src.Endpoints))
	for _, ep := range src.Endpoints {
		// Keep {page} placeholders readable through URL resolution.
		ref, err := url.Parse(strings.ReplaceAll(ep, "{page}", "__page__"))
		if err != nil {
			return nil, fmt.Errorf("source %s: bad endpoint %q: %w", src.ID, ep, err)
		}
		urls = append(urls, strings.ReplaceAll(base.ResolveReference(ref).String(), "__page__", "{page}"))
	}
	return urls, nil
}

// readLimited returns the start of an error response body.
func readLimited(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return strings.TrimSpace(string(body))
}
