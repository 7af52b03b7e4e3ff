package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"jobfeed/models"
	"jobfeed/storage"
)

const topN = 10

type activeSources interface {
	Active() []models.Source
}

type passClock interface {
	LastPassTime() *time.Time
}

// StatsAggregator summarizes the corpus. Freshness is measured on ScrapedAt,
// the time this system first saw a posting.
type StatsAggregator struct {
	store   storage.JobStore
	sources activeSources
	passes  passClock
	now     func() time.Time
}

func NewStatsAggregator(store storage.JobStore, sources activeSources, passes passClock) *StatsAggregator {
	return &StatsAggregator{store: store, sources: sources, passes: passes, now: time.Now}
}

func (s *StatsAggregator) GetStats(ctx context.Context) (*models.Stats, error) {
	postings, err := s.store.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.Add(-7 * 24 * time.Hour)

	stats := &models.Stats{
		TotalJobs:         len(postings),
		CategoryBreakdown: make(map[models.Category]int, len(models.AllCategories)),
	}
	for _, c := range models.AllCategories {
		stats.CategoryBreakdown[c] = 0
	}

	bySource := newCounter()
	byCompany := newCounter()
	for i := range postings {
		p := &postings[i]
		if !p.ScrapedAt.Before(midnight) {
			stats.JobsToday++
		}
		if !p.ScrapedAt.Before(weekAgo) {
			stats.JobsThisWeek++
		}
		bySource.add(p.SourceSite)
		byCompany.add(p.Company)
		stats.CategoryBreakdown[p.Category]++
	}

	stats.TopSources = bySource.top(topN)
	stats.TopCompanies = byCompany.top(topN)
	if s.sources != nil {
		stats.ActiveSources = len(s.sources.Active())
	}
	if s.passes != nil {
		stats.LastScrapeTime = s.passes.LastPassTime()
	}

	return stats, nil
}

// counter groups by name and remembers first-seen order for ties.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(name string) {
	if _, ok := c.counts[name]; !ok {
		c.order = append(c.order, name)
	}
	c.counts[name]++
}

func (c *counter) top(n int) []models.RankedCount {
	out := make([]models.RankedCount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, models.RankedCount{Name: name, Count: c.counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
