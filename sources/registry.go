package sources

import (
	"sort"
	"sync"
	"time"

	"jobfeed/config"
	"jobfeed/models"
)

// Registry holds the source catalog and each source's reliability counters.
// Static fields come from configuration and are never changed here; only
// counters, timestamps and the active flag move at runtime.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*models.Source
}

func NewRegistry(cfgs map[string]*config.SourceConfig) *Registry {
	r := &Registry{sources: make(map[string]*models.Source, len(cfgs))}
	for id, sc := range cfgs {
		src := sc.ToSource()
		r.sources[id] = &src
	}
	return r
}

// Get returns a copy of the source, or false if the id is unknown.
func (r *Registry) Get(id string) (models.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok {
		return models.Source{}, false
	}
	return cloneSource(src), true
}

// All returns every source, highest priority first.
func (r *Registry) All() []models.Source {
	return r.list(false)
}

// Active returns the sources eligible for a scrape pass, highest priority first.
func (r *Registry) Active() []models.Source {
	return r.list(true)
}

func (r *Registry) list(activeOnly bool) []models.Source {
	r.mu.RLock()
	out := make([]models.Source, 0, len(r.sources))
	for _, src := range r.sources {
		if activeOnly && !src.IsActive {
			continue
		}
		out = append(out, cloneSource(src))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetActive toggles a source in or out of future passes.
func (r *Registry) SetActive(id string, active bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sources[id]
	if !ok {
		return false
	}
	src.IsActive = active
	return true
}

// RecordSuccess resets the error streak and stamps both scrape times.
func (r *Registry) RecordSuccess(id string, at time.Time) (models.SourceStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sources[id]
	if !ok {
		return models.SourceStats{}, false
	}
	src.Attempts++
	src.Successes++
	src.ErrorCount = 0
	src.LastScraped = &at
	src.LastSuccessfulScrape = &at
	src.SuccessRate = successRate(src)
	return statsOf(src), true
}

// RecordFailure extends the error streak. Each attempt, including retries,
// counts toward the success rate.
func (r *Registry) RecordFailure(id string, at time.Time) (models.SourceStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sources[id]
	if !ok {
		return models.SourceStats{}, false
	}
	src.Attempts++
	src.ErrorCount++
	src.LastScraped = &at
	src.SuccessRate = successRate(src)
	return statsOf(src), true
}

// Restore loads counters persisted by a previous process. Unknown ids are
// ignored.
func (r *Registry) Restore(stats []models.SourceStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, st := range stats {
		src, ok := r.sources[st.SourceID]
		if !ok {
			continue
		}
		src.ErrorCount = st.ErrorCount
		src.Attempts = st.Attempts
		src.Successes = st.Successes
		src.SuccessRate = st.SuccessRate
		src.LastScraped = copyTime(st.LastScraped)
		src.LastSuccessfulScrape = copyTime(st.LastSuccessfulScrape)
	}
}

func successRate(src *models.Source) float64 {
	if src.Attempts == 0 {
		return 0
	}
	return float64(src.Successes) / float64(src.Attempts)
}

func statsOf(src *models.Source) models.SourceStats {
	return models.SourceStats{
		SourceID:             src.ID,
		ErrorCount:           src.ErrorCount,
		SuccessRate:          src.SuccessRate,
		Attempts:             src.Attempts,
		Successes:            src.Successes,
		LastScraped:          copyTime(src.LastScraped),
		LastSuccessfulScrape: copyTime(src.LastSuccessfulScrape),
	}
}

func cloneSource(src *models.Source) models.Source {
	c := *src
	c.Endpoints = append([]string(nil), src.Endpoints...)
	c.Tags = append([]string(nil), src.Tags...)
	c.LastScraped = copyTime(src.LastScraped)
	c.LastSuccessfulScrape = copyTime(src.LastSuccessfulScrape)
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
