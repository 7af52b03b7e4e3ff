package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"jobfeed/config"
	"jobfeed/logging"
	"jobfeed/models"
)

const maxJSONPages = 10

// JSONFetcher reads job boards that expose a JSON search API. Field paths
// from the source config map the provider's document onto candidates; an
// endpoint containing {page} is walked page by page until a short or empty
// page.
type JSONFetcher struct {
	cfg    *config.SourceConfig
	client *http.Client
	pacer  Pacer
}

func NewJSONFetcher(cfg *config.SourceConfig, client *http.Client, pacer Pacer) *JSONFetcher {
	return &JSONFetcher{cfg: cfg, client: client, pacer: pacer}
}

func (f *JSONFetcher) ID() string {
	return f.cfg.ID
}

func (f *JSONFetcher) Fetch(ctx context.Context, src models.Source) ([]models.RawCandidate, error) {
	urls, err := endpointURLs(src)
	if err != nil {
		return nil, err
	}

	var all []models.RawCandidate
	requests := 0
	for _, u := range urls {
		paged := strings.Contains(u, "{page}")
		pageSize := 0

		for page := 1; page <= maxJSONPages; page++ {
			if requests > 0 {
				if err := f.pacer.Wait(ctx, src); err != nil {
					return nil, err
				}
			}
			requests++

			target := strings.ReplaceAll(u, "{page}", strconv.Itoa(page))
			items, err := f.fetchPage(ctx, target)
			if err != nil {
				return nil, fmt.Errorf("fetch %s: %w", target, err)
			}
			for _, item := range items {
				all = append(all, f.candidate(item))
			}

			if !paged || len(items) == 0 {
				break
			}
			if pageSize == 0 {
				pageSize = len(items)
			} else if len(items) < pageSize {
				break
			}
		}
	}

	logging.Event(models.LogLevelInfo, f.cfg.ID, "json fetch returned %d candidates from %d requests", len(all), requests)
	return all, nil
}

func (f *JSONFetcher) fetchPage(ctx context.Context, target string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "jobfeed/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, readLimited(resp))
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	results := doc
	if f.cfg.ResultsKey != "" {
		results = lookup(doc, f.cfg.ResultsKey)
	}
	arr, ok := results.([]any)
	if !ok {
		return nil, fmt.Errorf("results at %q are not a list", f.cfg.ResultsKey)
	}

	items := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items, nil
}

// path returns the configured document path for a canonical field.
func (f *JSONFetcher) path(field string) string {
	if p, ok := f.cfg.Fields[field]; ok {
		return p
	}
	return field
}

func (f *JSONFetcher) str(item map[string]any, field string) string {
	return asString(lookup(item, f.path(field)))
}

func (f *JSONFetcher) candidate(item map[string]any) models.RawCandidate {
	c := models.RawCandidate{
		ExternalID:     f.str(item, "external_id"),
		Title:          f.str(item, "title"),
		Company:        f.str(item, "company"),
		Location:       f.str(item, "location"),
		Description:    f.str(item, "description"),
		SalaryMin:      asFloat(lookup(item, f.path("salary_min"))),
		SalaryMax:      asFloat(lookup(item, f.path("salary_max"))),
		SalaryCurrency: f.str(item, "salary_currency"),
		SalaryPeriod:   f.str(item, "salary_period"),
		Requirements:   asStrings(lookup(item, f.path("requirements"))),
		Benefits:       asStrings(lookup(item, f.path("benefits"))),
		Tags:           asStrings(lookup(item, f.path("tags"))),
		Skills:         asStrings(lookup(item, f.path("skills"))),
		Languages:      asStrings(lookup(item, f.path("languages"))),
		Seniority:      f.str(item, "seniority"),
		ContractType:   f.str(item, "contract_type"),
		RemoteType:     f.str(item, "remote_type"),
		Remote:         asBool(lookup(item, f.path("remote"))),
		Category:       f.str(item, "category"),
		PostedAt:       f.str(item, "posted_at"),
		Deadline:       f.str(item, "deadline"),
		ApplicationURL: f.str(item, "application_url"),
		SourceURL:      f.str(item, "source_url"),
	}
	if data, err := json.Marshal(item); err == nil {
		c.Data = data
	}
	return c
}

// lookup walks a dot path through nested objects.
func lookup(doc any, path string) any {
	cur := doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func asFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}

func asBool(v any) *bool {
	switch t := v.(type) {
	case bool:
		return &t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return &b
		}
	}
	return nil
}

// asStrings accepts a list or a comma separated string.
func asStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s := asString(el); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}
