package models

import "time"

type RateLimitPolicy struct {
	RequestsPerMinute      int `json:"requestsPerMinute" yaml:"requests_per_minute"`
	DelayBetweenRequestsMs int `json:"delayBetweenRequestsMs" yaml:"delay_between_requests_ms"`
}

func (p RateLimitPolicy) Delay() time.Duration {
	return time.Duration(p.DelayBetweenRequestsMs) * time.Millisecond
}

// Source is one external provider plus its reliability history. The
// configuration half is static; counters and timestamps change after every
// scrape attempt.
type Source struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	BaseURL   string          `json:"baseUrl"`
	Endpoints []string        `json:"endpoints"`
	Handler   string          `json:"handler"`
	IsActive  bool            `json:"isActive"`
	Priority  int             `json:"priority"`
	RateLimit RateLimitPolicy `json:"rateLimit"`
	Tags      []string        `json:"tags"`
	Country   string          `json:"country,omitempty"`
	Currency  string          `json:"currency,omitempty"`

	ErrorCount           int        `json:"errorCount"`
	SuccessRate          float64    `json:"successRate"`
	Attempts             int        `json:"attempts"`
	Successes            int        `json:"successes"`
	LastScraped          *time.Time `json:"lastScraped,omitempty"`
	LastSuccessfulScrape *time.Time `json:"lastSuccessfulScrape,omitempty"`
}
