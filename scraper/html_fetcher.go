package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"jobfeed/config"
	"jobfeed/logging"
	"jobfeed/models"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	amountRe     = regexp.MustCompile(`(\d[\d,.\s]*\d|\d)\s*([kK])?`)
)

// HTMLFetcher scrapes listing pages with CSS selectors. Pages are decoded
// to UTF-8 from whatever charset the server declares before parsing.
type HTMLFetcher struct {
	cfg    *config.SourceConfig
	client *http.Client
	pacer  Pacer
}

func NewHTMLFetcher(cfg *config.SourceConfig, client *http.Client, pacer Pacer) *HTMLFetcher {
	return &HTMLFetcher{cfg: cfg, client: client, pacer: pacer}
}

func (f *HTMLFetcher) ID() string {
	return f.cfg.ID
}

func (f *HTMLFetcher) Fetch(ctx context.Context, src models.Source) ([]models.RawCandidate, error) {
	if f.cfg.Selectors.Item == "" {
		return nil, fmt.Errorf("source %s: selectors.item is required", f.cfg.ID)
	}

	urls, err := endpointURLs(src)
	if err != nil {
		return nil, err
	}

	var all []models.RawCandidate
	for i, u := range urls {
		u = strings.ReplaceAll(u, "{page}", "1")
		if i > 0 {
			if err := f.pacer.Wait(ctx, src); err != nil {
				return nil, err
			}
		}

		doc, pageURL, err := f.load(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", u, err)
		}
		all = append(all, f.extract(doc, pageURL)...)
	}

	logging.Event(models.LogLevelInfo, f.cfg.ID, "html fetch returned %d candidates from %d pages", len(all), len(urls))
	return all, nil
}

func (f *HTMLFetcher) load(ctx context.Context, target string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; jobfeed/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("status %d: %s", resp.StatusCode, readLimited(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}

	body := io.Reader(bytes.NewReader(data))
	if enc, _, _ := charset.DetermineEncoding(data, resp.Header.Get("Content-Type")); enc != nil {
		body = enc.NewDecoder().Reader(bytes.NewReader(data))
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, resp.Request.URL, nil
}

func (f *HTMLFetcher) extract(doc *goquery.Document, pageURL *url.URL) []models.RawCandidate {
	sel := f.cfg.Selectors
	var out []models.RawCandidate

	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		c := models.RawCandidate{
			Title:       text(item, sel.Title),
			Company:     text(item, sel.Company),
			Location:    text(item, sel.Location),
			Description: text(item, sel.Description),
		}

		if sel.Salary != "" {
			c.SalaryMin, c.SalaryMax = parseSalaryText(text(item, sel.Salary))
		}

		if sel.Posted != "" {
			posted := item.Find(sel.Posted).First()
			if dt, ok := posted.Attr("datetime"); ok {
				c.PostedAt = dt
			} else {
				c.PostedAt = clean(posted.Text())
			}
		}

		if sel.Link != "" {
			if href, ok := item.Find(sel.Link).First().Attr("href"); ok {
				if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
					c.SourceURL = pageURL.ResolveReference(ref).String()
					c.ApplicationURL = c.SourceURL
				}
			}
		}

		if sel.Tags != "" {
			item.Find(sel.Tags).Each(func(_ int, t *goquery.Selection) {
				if tag := clean(t.Text()); tag != "" {
					c.Tags = append(c.Tags, tag)
				}
			})
		}

		out = append(out, c)
	})

	return out
}

func text(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return clean(item.Find(selector).First().Text())
}

func clean(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// parseSalaryText pulls up to two amounts out of free text such as
// "€50,000 - €70,000" or "$90k-120k".
func parseSalaryText(s string) (lo, hi *float64) {
	var amounts []float64
	for _, m := range amountRe.FindAllStringSubmatch(s, 2) {
		digits := strings.NewReplacer(",", "", " ", "").Replace(m[1])
		// A dot followed by exactly three digits is a thousands separator.
		if i := strings.LastIndex(digits, "."); i >= 0 && len(digits)-i-1 == 3 {
			digits = strings.ReplaceAll(digits, ".", "")
		}
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 1000
		}
		amounts = append(amounts, v)
	}

	switch len(amounts) {
	case 0:
		return nil, nil
	case 1:
		return &amounts[0], nil
	default:
		return &amounts[0], &amounts[1]
	}
}
