package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jobfeed/logging"
	"jobfeed/models"
	"jobfeed/services"
)

const exportSource = "export"

// Exporter writes one snapshot of the corpus.
type Exporter interface {
	Export(ctx context.Context) (*services.SnapshotResult, error)
}

// ExportWorker uploads corpus snapshots on an interval and on demand. Runs
// never overlap; a trigger during a run is coalesced into one follow-up.
type ExportWorker struct {
	exporter  Exporter
	interval  time.Duration
	triggerCh chan struct{}
	logFunc   LogFunc

	mu   sync.Mutex
	last *services.SnapshotResult
}

func NewExportWorker(exporter Exporter, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		exporter:  exporter,
		interval:  interval,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *ExportWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run immediately
func (w *ExportWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. A zero interval disables the timer and
// the worker only answers triggers.
func (w *ExportWorker) Run(ctx context.Context) {
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
		w.log(models.LogLevelInfo, fmt.Sprintf("snapshot export every %s", w.interval))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			w.RunOnce(ctx)
		case <-w.triggerCh:
			w.RunOnce(ctx)
		}
	}
}

func (w *ExportWorker) RunOnce(ctx context.Context) (*services.SnapshotResult, error) {
	start := time.Now()
	res, err := w.exporter.Export(ctx)
	if err != nil {
		w.log(models.LogLevelWarn, fmt.Sprintf("Warning: snapshot export failed: %v", err))
		return nil, err
	}

	w.mu.Lock()
	w.last = res
	w.mu.Unlock()

	w.log(models.LogLevelInfo, fmt.Sprintf("exported %d postings (%d bytes) to %s in %s",
		res.Postings, res.Bytes, res.Key, time.Since(start).Round(time.Millisecond)))
	return res, nil
}

// Last is the most recent successful snapshot, or nil.
func (w *ExportWorker) Last() *services.SnapshotResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *ExportWorker) log(level models.LogLevel, message string) {
	logging.Event(level, exportSource, "%s", message)
	w.logFunc(level, exportSource, message)
}
