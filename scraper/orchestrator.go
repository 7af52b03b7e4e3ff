package scraper

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"jobfeed/config"
	"jobfeed/logging"
	"jobfeed/models"
	"jobfeed/notify"
	"jobfeed/services"
	"jobfeed/sources"
)

const maxRetainedJobs = 500

var (
	ErrSourceNotFound = errors.New("source not found")
	ErrPassInProgress = errors.New("scrape pass already in progress")
)

// OpsRecorder persists run records, the run log and source counters. A nil
// recorder keeps everything in memory.
type OpsRecorder interface {
	SaveRun(job *models.ScrapeJob) error
	Log(runID string, level models.LogLevel, message, sourceID string) error
	SaveSourceStats(st models.SourceStats) error
	RecordPass(startedAt, completedAt time.Time, sources int) error
}

// Orchestrator runs scrape jobs: fetch, normalize, dedup and persist per
// source, with bounded retries, and full passes over every active source.
type Orchestrator struct {
	registry   *sources.Registry
	pacer      Pacer
	fetchers   map[string]Fetcher
	normalizer *services.Normalizer
	dedup      *services.Deduplicator
	publisher  notify.Publisher
	ops        OpsRecorder
	cfg        config.ScraperConfig

	mu       sync.RWMutex
	jobs     map[string]*models.ScrapeJob
	lastPass *time.Time

	passRunning atomic.Bool
	background  sync.WaitGroup
	baseCtx     context.Context
	cancel      context.CancelFunc

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewOrchestrator(
	cfg config.ScraperConfig,
	registry *sources.Registry,
	pacer Pacer,
	fetchers map[string]Fetcher,
	dedup *services.Deduplicator,
	publisher notify.Publisher,
	ops OpsRecorder,
) *Orchestrator {
	if publisher == nil {
		publisher = notify.NoOp{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		registry:   registry,
		pacer:      pacer,
		fetchers:   fetchers,
		normalizer: services.NewNormalizer(),
		dedup:      dedup,
		publisher:  publisher,
		ops:        ops,
		cfg:        cfg,
		jobs:       make(map[string]*models.ScrapeJob),
		baseCtx:    ctx,
		cancel:     cancel,
		sleep:      sleepCtx,
		now:        time.Now,
	}
}

// ScrapeSource runs one job for src to a terminal state, retrying failed
// attempts up to MaxRetries times. Failures are reported through the job,
// never as an error.
func (o *Orchestrator) ScrapeSource(ctx context.Context, src models.Source) models.ScrapeJob {
	job := o.begin(src)
	o.run(ctx, job, src)
	return o.snapshot(job)
}

// ManualScrapeSource scrapes one source by id, whether or not it is active.
func (o *Orchestrator) ManualScrapeSource(ctx context.Context, sourceID string) (*models.ScrapeJob, error) {
	src, ok := o.registry.Get(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceID)
	}
	job := o.ScrapeSource(ctx, src)
	return &job, nil
}

// TriggerSource starts a scrape in the background and returns the job as
// first recorded.
func (o *Orchestrator) TriggerSource(sourceID string) (*models.ScrapeJob, error) {
	src, ok := o.registry.Get(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceID)
	}
	job := o.begin(src)
	snap := o.snapshot(job)

	o.background.Add(1)
	go func() {
		defer o.background.Done()
		o.run(o.baseCtx, job, src)
	}()
	return &snap, nil
}

// ScrapeAllSources scrapes every active source concurrently and returns
// once all of them have settled. One source failing never stops the others.
func (o *Orchestrator) ScrapeAllSources(ctx context.Context) (notify.PassSummary, error) {
	if !o.passRunning.CompareAndSwap(false, true) {
		return notify.PassSummary{}, ErrPassInProgress
	}
	defer o.passRunning.Store(false)

	return o.runPass(ctx), nil
}

// TriggerPass starts a full pass in the background.
func (o *Orchestrator) TriggerPass() error {
	if !o.passRunning.CompareAndSwap(false, true) {
		return ErrPassInProgress
	}

	o.background.Add(1)
	go func() {
		defer o.background.Done()
		defer o.passRunning.Store(false)
		o.runPass(o.baseCtx)
	}()
	return nil
}

func (o *Orchestrator) PassInProgress() bool {
	return o.passRunning.Load()
}

func (o *Orchestrator) runPass(ctx context.Context) notify.PassSummary {
	active := o.registry.Active()
	summary := notify.PassSummary{StartedAt: o.now(), Sources: len(active)}
	logging.Event(models.LogLevelInfo, "pass", "starting scrape of %d active sources", len(active))

	results := make([]models.ScrapeJob, len(active))
	var wg sync.WaitGroup
	for i, src := range active {
		wg.Add(1)
		go func(i int, src models.Source) {
			defer wg.Done()
			results[i] = o.ScrapeSource(ctx, src)
		}(i, src)
	}
	wg.Wait()

	for _, job := range results {
		if job.Status == models.RunStatusCompleted {
			summary.Completed++
		} else {
			summary.Failed++
		}
	}
	summary.CompletedAt = o.now()

	o.mu.Lock()
	done := summary.CompletedAt
	o.lastPass = &done
	o.mu.Unlock()

	if o.ops != nil {
		if err := o.ops.RecordPass(summary.StartedAt, summary.CompletedAt, summary.Sources); err != nil {
			logging.Event(models.LogLevelWarn, "pass", "failed to record pass: %v", err)
		}
	}
	if err := o.publisher.PublishPassCompleted(ctx, summary); err != nil {
		logging.Event(models.LogLevelWarn, "pass", "publish pass completed: %v", err)
	}

	logging.Event(models.LogLevelInfo, "pass", "completed: %d ok, %d failed in %s",
		summary.Completed, summary.Failed, summary.CompletedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	return summary
}

func (o *Orchestrator) begin(src models.Source) *models.ScrapeJob {
	job := &models.ScrapeJob{
		ID:         uuid.NewString(),
		SourceID:   src.ID,
		Status:     models.RunStatusRunning,
		StartedAt:  o.now(),
		Errors:     []models.ScrapeError{},
		MaxRetries: o.cfg.MaxRetries,
	}

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.pruneLocked()
	o.mu.Unlock()

	o.save(job)
	return job
}

// run drives job through its attempts. Every failed attempt counts against
// the source, retries included.
func (o *Orchestrator) run(ctx context.Context, job *models.ScrapeJob, src models.Source) {
	o.log(job.ID, models.LogLevelInfo, fmt.Sprintf("Starting scrape for %s", src.Name), src.ID)

	defer func() {
		snap := o.snapshot(job)
		if err := o.publisher.PublishJobFinished(ctx, &snap); err != nil {
			o.log(job.ID, models.LogLevelWarn, fmt.Sprintf("publish job finished: %v", err), src.ID)
		}
	}()

	fetcher, ok := o.fetchers[src.ID]
	if !ok {
		o.update(job, func(j *models.ScrapeJob) {
			appendError(j, o.now(), fmt.Errorf("no fetcher for source %s", src.ID), "")
		})
		o.recordFailure(src.ID)
		o.finish(job, src, models.RunStatusFailed)
		return
	}

	for {
		err := o.attempt(ctx, job, src, fetcher)
		if err == nil {
			o.finish(job, src, models.RunStatusCompleted)
			return
		}

		o.log(job.ID, models.LogLevelError, fmt.Sprintf("Scrape attempt failed: %v", err), src.ID)
		o.recordFailure(src.ID)

		var retry bool
		var retryCount, maxRetries int
		o.update(job, func(j *models.ScrapeJob) {
			if j.RetryCount < j.MaxRetries && ctx.Err() == nil {
				j.RetryCount++
				j.Status = models.RunStatusRetrying
				retry = true
			}
			retryCount, maxRetries = j.RetryCount, j.MaxRetries
		})
		if !retry {
			o.finish(job, src, models.RunStatusFailed)
			return
		}
		o.save(job)

		o.log(job.ID, models.LogLevelWarn,
			fmt.Sprintf("Retrying in %s (%d/%d)", o.cfg.RetryDelay, retryCount, maxRetries), src.ID)
		if err := o.sleep(ctx, o.cfg.RetryDelay); err != nil {
			o.update(job, func(j *models.ScrapeJob) {
				appendError(j, o.now(), fmt.Errorf("retry cancelled: %w", err), "")
			})
			o.finish(job, src, models.RunStatusFailed)
			return
		}

		o.update(job, func(j *models.ScrapeJob) { j.Status = models.RunStatusRunning })
		o.save(job)
	}
}

// attempt performs one fetch-normalize-merge cycle. Only fetch and store
// read failures fail the attempt; a rejected candidate or a failed write is
// recorded on the job and the attempt still succeeds.
func (o *Orchestrator) attempt(ctx context.Context, job *models.ScrapeJob, src models.Source, fetcher Fetcher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panic: %v", r)
			stack := string(debug.Stack())
			o.update(job, func(j *models.ScrapeJob) { appendError(j, o.now(), err, stack) })
		}
	}()

	if err := o.pacer.BeforeAttempt(ctx, src); err != nil {
		return o.fail(job, err)
	}

	raws, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return o.fail(job, err)
	}

	batch := make([]models.JobPosting, 0, len(raws))
	var rejected []error
	for i := range raws {
		p, err := o.normalizer.Normalize(&raws[i], src)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("candidate %d: %w", i, err))
			continue
		}
		batch = append(batch, p)
	}

	result, err := o.dedup.Classify(ctx, src.ID, batch)
	if err != nil {
		return o.fail(job, err)
	}

	now := o.now()
	o.update(job, func(j *models.ScrapeJob) {
		j.JobsFound = len(raws)
		j.CandidatesRejected = len(rejected)
		j.JobsInserted = result.Inserted
		j.JobsUpdated = result.Updated
		j.DuplicatesSkipped = result.Skipped
		for _, r := range rejected {
			appendError(j, now, r, "")
		}
	})
	for _, r := range rejected {
		o.log(job.ID, models.LogLevelWarn, fmt.Sprintf("Rejected %v", r), src.ID)
	}

	if err := o.dedup.Apply(ctx, result); err != nil {
		o.update(job, func(j *models.ScrapeJob) {
			appendError(j, o.now(), fmt.Errorf("store write: %w", err), "")
		})
		o.log(job.ID, models.LogLevelWarn, fmt.Sprintf("Store write failed, %d postings not saved: %v", len(result.Changes), err), src.ID)
		return nil
	}

	for i := range result.Changes {
		c := &result.Changes[i]
		if err := o.publisher.PublishPosting(ctx, &c.Posting, c.IsNew); err != nil {
			o.log(job.ID, models.LogLevelWarn, fmt.Sprintf("publish posting %s: %v", c.Posting.ID, err), src.ID)
		}
	}

	o.log(job.ID, models.LogLevelInfo,
		fmt.Sprintf("Found %d: %d new, %d updated, %d duplicates, %d rejected",
			len(raws), result.Inserted, result.Updated, result.Skipped, len(rejected)), src.ID)
	return nil
}

// fail records err on the job and hands it back to fail the attempt.
func (o *Orchestrator) fail(job *models.ScrapeJob, err error) error {
	o.update(job, func(j *models.ScrapeJob) { appendError(j, o.now(), err, "") })
	return err
}

func (o *Orchestrator) finish(job *models.ScrapeJob, src models.Source, status models.RunStatus) {
	now := o.now()
	var retries int
	o.update(job, func(j *models.ScrapeJob) {
		j.Status = status
		j.CompletedAt = &now
		retries = j.RetryCount
	})
	o.save(job)

	if status == models.RunStatusCompleted {
		if st, ok := o.registry.RecordSuccess(src.ID, now); ok {
			o.saveStats(st)
		}
		o.log(job.ID, models.LogLevelInfo, "Scrape completed", src.ID)
		return
	}
	o.log(job.ID, models.LogLevelError,
		fmt.Sprintf("Scrape failed after %d retries", retries), src.ID)
}

func (o *Orchestrator) recordFailure(sourceID string) {
	if st, ok := o.registry.RecordFailure(sourceID, o.now()); ok {
		o.saveStats(st)
	}
}

func (o *Orchestrator) saveStats(st models.SourceStats) {
	if o.ops == nil {
		return
	}
	if err := o.ops.SaveSourceStats(st); err != nil {
		logging.Event(models.LogLevelWarn, st.SourceID, "failed to save source stats: %v", err)
	}
}

func appendError(j *models.ScrapeJob, at time.Time, err error, stack string) {
	j.Errors = append(j.Errors, models.ScrapeError{Timestamp: at, Message: err.Error(), Stack: stack})
}

func (o *Orchestrator) update(job *models.ScrapeJob, fn func(*models.ScrapeJob)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(job)
}

func (o *Orchestrator) snapshot(job *models.ScrapeJob) models.ScrapeJob {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return job.Clone()
}

func (o *Orchestrator) save(job *models.ScrapeJob) {
	if o.ops == nil {
		return
	}
	snap := o.snapshot(job)
	if err := o.ops.SaveRun(&snap); err != nil {
		logging.Event(models.LogLevelWarn, job.SourceID, "failed to save run %s: %v", job.ID, err)
	}
}

// pruneLocked drops the oldest terminal jobs once the map is over capacity.
func (o *Orchestrator) pruneLocked() {
	if len(o.jobs) <= maxRetainedJobs {
		return
	}
	var done []*models.ScrapeJob
	for _, j := range o.jobs {
		if j.IsTerminal() {
			done = append(done, j)
		}
	}
	sort.Slice(done, func(a, b int) bool { return done[a].StartedAt.Before(done[b].StartedAt) })
	for _, j := range done {
		if len(o.jobs) <= maxRetainedJobs {
			break
		}
		delete(o.jobs, j.ID)
	}
}

// Jobs returns every retained job, newest first.
func (o *Orchestrator) Jobs() []models.ScrapeJob {
	o.mu.RLock()
	out := make([]models.ScrapeJob, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, j.Clone())
	}
	o.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].StartedAt.Equal(out[b].StartedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].StartedAt.After(out[b].StartedAt)
	})
	return out
}

func (o *Orchestrator) Job(id string) (*models.ScrapeJob, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	j, ok := o.jobs[id]
	if !ok {
		return nil, false
	}
	c := j.Clone()
	return &c, true
}

// LastPassTime is when the most recent full pass settled.
func (o *Orchestrator) LastPassTime() *time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.lastPass == nil {
		return nil
	}
	t := *o.lastPass
	return &t
}

// RestoreLastPass seeds the pass clock from persisted history.
func (o *Orchestrator) RestoreLastPass(t *time.Time) {
	if t == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	v := *t
	o.lastPass = &v
}

// Shutdown cancels background scrapes and waits for them to settle.
func (o *Orchestrator) Shutdown() {
	o.cancel()
	o.background.Wait()
}

func (o *Orchestrator) log(runID string, level models.LogLevel, message, sourceID string) {
	logging.Event(level, sourceID, "%s", message)
	if o.ops != nil {
		o.ops.Log(runID, level, message, sourceID)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
