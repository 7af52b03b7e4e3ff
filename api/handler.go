// Package api is the operator and query surface over HTTP.
//
// Routes:
//
//	GET  /health                 liveness plus scheduler state
//	GET  /jobs                   filtered, paged postings with facets
//	GET  /stats                  corpus summary
//	GET  /sources                source catalog with reliability counters
//	GET  /scrape-jobs            retained scrape jobs, newest first
//	GET  /scrape-jobs/{id}       one scrape job
//	POST /scrape                 start a full pass
//	POST /scrape/{sourceId}      scrape one source
//	POST /scheduler/enable       arm the schedule
//	POST /scheduler/disable      cancel the schedule
//	POST /export                 upload a corpus snapshot
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jobfeed/models"
	"jobfeed/scraper"
)

const maxPageLimit = 100

type JobQuerier interface {
	GetJobs(ctx context.Context, f models.JobFilters) (*models.JobsPage, error)
}

type StatsProvider interface {
	GetStats(ctx context.Context) (*models.Stats, error)
}

type SourceLister interface {
	All() []models.Source
}

type ScrapeController interface {
	Jobs() []models.ScrapeJob
	Job(id string) (*models.ScrapeJob, bool)
	TriggerPass() error
	TriggerSource(sourceID string) (*models.ScrapeJob, error)
	PassInProgress() bool
}

type SchedulerControl interface {
	Enable() error
	Disable()
	IsEnabled() bool
}

type Triggerable interface {
	Trigger()
}

// Deps are the services the handler exposes. Exporter may be nil when
// snapshot export is not configured.
type Deps struct {
	Jobs      JobQuerier
	Stats     StatsProvider
	Sources   SourceLister
	Scrapes   ScrapeController
	Scheduler SchedulerControl
	Exporter  Triggerable
}

type Handler struct {
	d Deps
}

func NewHandler(d Deps) *Handler {
	return &Handler{d: d}
}

// RegisterRoutes mounts every route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /jobs", h.listJobs)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("GET /sources", h.listSources)
	mux.HandleFunc("GET /scrape-jobs", h.listScrapeJobs)
	mux.HandleFunc("GET /scrape-jobs/{id}", h.getScrapeJob)
	mux.HandleFunc("POST /scrape", h.scrapeAll)
	mux.HandleFunc("POST /scrape/{sourceId}", h.scrapeSource)
	mux.HandleFunc("POST /scheduler/enable", h.enableScheduler)
	mux.HandleFunc("POST /scheduler/disable", h.disableScheduler)
	mux.HandleFunc("POST /export", h.export)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]any{
		"status":           "ok",
		"schedulerEnabled": h.d.Scheduler.IsEnabled(),
		"passInProgress":   h.d.Scrapes.PassInProgress(),
	})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilters(r.URL.Query())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.d.Jobs.GetJobs(r.Context(), f)
	if err != nil {
		log.Printf("[api] getJobs error: %v", err)
		jsonError(w, "query failed", http.StatusInternalServerError)
		return
	}
	jsonOK(w, page)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.d.Stats.GetStats(r.Context())
	if err != nil {
		log.Printf("[api] getStats error: %v", err)
		jsonError(w, "stats failed", http.StatusInternalServerError)
		return
	}
	jsonOK(w, st)
}

func (h *Handler) listSources(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, h.d.Sources.All())
}

func (h *Handler) listScrapeJobs(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, h.d.Scrapes.Jobs())
}

func (h *Handler) getScrapeJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.d.Scrapes.Job(r.PathValue("id"))
	if !ok {
		jsonError(w, "scrape job not found", http.StatusNotFound)
		return
	}
	jsonOK(w, job)
}

func (h *Handler) scrapeAll(w http.ResponseWriter, _ *http.Request) {
	if err := h.d.Scrapes.TriggerPass(); err != nil {
		if errors.Is(err, scraper.ErrPassInProgress) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonStatus(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) scrapeSource(w http.ResponseWriter, r *http.Request) {
	job, err := h.d.Scrapes.TriggerSource(r.PathValue("sourceId"))
	if err != nil {
		if errors.Is(err, scraper.ErrSourceNotFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonStatus(w, http.StatusAccepted, job)
}

func (h *Handler) enableScheduler(w http.ResponseWriter, _ *http.Request) {
	if err := h.d.Scheduler.Enable(); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]bool{"enabled": true})
}

func (h *Handler) disableScheduler(w http.ResponseWriter, _ *http.Request) {
	h.d.Scheduler.Disable()
	jsonOK(w, map[string]bool{"enabled": false})
}

func (h *Handler) export(w http.ResponseWriter, _ *http.Request) {
	if h.d.Exporter == nil {
		jsonError(w, "snapshot export is not configured", http.StatusServiceUnavailable)
		return
	}
	h.d.Exporter.Trigger()
	jsonStatus(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// ParseFilters reads JobFilters from query parameters. List parameters are
// comma separated.
func ParseFilters(q url.Values) (models.JobFilters, error) {
	f := models.JobFilters{
		Keywords: strings.TrimSpace(q.Get("keywords")),
		Category: models.Category(strings.TrimSpace(q.Get("category"))),
		Location: strings.TrimSpace(q.Get("location")),
	}

	if v := q.Get("remote"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("remote: %q is not a boolean", v)
		}
		f.Remote = &b
	}

	var err error
	if f.MinSalary, err = floatParam(q, "minSalary"); err != nil {
		return f, err
	}
	if f.MaxSalary, err = floatParam(q, "maxSalary"); err != nil {
		return f, err
	}

	for _, s := range listParam(q, "seniority") {
		f.Seniority = append(f.Seniority, models.Seniority(s))
	}
	for _, c := range listParam(q, "contractType") {
		f.ContractType = append(f.ContractType, models.ContractType(c))
	}
	f.SourceSite = listParam(q, "sourceSite")

	if f.Offset, err = intParam(q, "offset"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(q, "limit"); err != nil {
		return f, err
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	return f, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("%s: %q is not a non-negative number", key, v)
	}
	return &n, nil
}

func intParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: %q is not a non-negative integer", key, v)
	}
	return n, nil
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonStatus(w, code, map[string]string{"error": msg})
}
