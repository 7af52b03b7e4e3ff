package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfeed/config"
	"jobfeed/models"
	"jobfeed/notify"
	"jobfeed/scraper"
)

type fakeRunner struct {
	passes    atomic.Int32
	triggered atomic.Int32
	busy      atomic.Bool

	mu      sync.Mutex
	sources []string
}

func (r *fakeRunner) ScrapeAllSources(context.Context) (notify.PassSummary, error) {
	if r.busy.Load() {
		return notify.PassSummary{}, scraper.ErrPassInProgress
	}
	r.passes.Add(1)
	return notify.PassSummary{}, nil
}

func (r *fakeRunner) TriggerPass() error {
	r.triggered.Add(1)
	return nil
}

func (r *fakeRunner) TriggerSource(id string) (*models.ScrapeJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, id)
	return &models.ScrapeJob{SourceID: id}, nil
}

type fakeQueue struct {
	mu        sync.Mutex
	pending   []models.Command
	processed []int64
}

func (q *fakeQueue) GetPendingCommands() ([]models.Command, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out, nil
}

func (q *fakeQueue) MarkCommandProcessed(id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processed = append(q.processed, id)
	return nil
}

func (q *fakeQueue) processedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.processed)
}

type fakeExporter struct{ n atomic.Int32 }

func (e *fakeExporter) Trigger() { e.n.Add(1) }

func schedCfg(enabled bool, delay time.Duration) config.SchedulerConfig {
	return config.SchedulerConfig{Enabled: enabled, Cron: "@every 1h", StartupDelay: delay}
}

func TestScheduler_StartupPassWhenEnabled(t *testing.T) {
	runner := &fakeRunner{}
	s := New(schedCfg(true, 10*time.Millisecond), runner, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.True(t, s.IsEnabled())
	require.Eventually(t, func() bool { return runner.passes.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_DisabledByDefaultDoesNothing(t *testing.T) {
	runner := &fakeRunner{}
	s := New(schedCfg(false, time.Millisecond), runner, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, s.IsEnabled())
	assert.Zero(t, runner.passes.Load())
}

func TestScheduler_DisableCancelsPendingStartup(t *testing.T) {
	runner := &fakeRunner{}
	s := New(schedCfg(true, 50*time.Millisecond), runner, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.Disable()
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, runner.passes.Load())
	assert.Empty(t, s.cron.Entries())

	require.NoError(t, s.Enable())
	require.NoError(t, s.Enable())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_InvalidCron(t *testing.T) {
	s := New(config.SchedulerConfig{Cron: "every tuesday"}, &fakeRunner{}, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_SkipsWhilePassRunning(t *testing.T) {
	runner := &fakeRunner{}
	runner.busy.Store(true)
	s := New(schedCfg(false, 0), runner, nil)

	s.runPass()
	assert.Zero(t, runner.passes.Load())
}

func command(id int64, cmd models.CommandType, params *models.CommandParams) models.Command {
	c := models.Command{ID: id, Command: cmd, CreatedAt: time.Now()}
	if params != nil {
		c.Params, _ = json.Marshal(params)
	}
	return c
}

func TestScheduler_PollsCommands(t *testing.T) {
	runner := &fakeRunner{}
	queue := &fakeQueue{pending: []models.Command{
		command(1, models.CmdScrapeNow, nil),
		command(2, models.CmdScrapeSource, &models.CommandParams{Source: "alpha"}),
		command(3, models.CmdSchedulerEnable, nil),
		command(4, models.CmdExportSnapshot, nil),
		command(5, "reboot", nil),
	}}
	exporter := &fakeExporter{}

	s := New(schedCfg(false, time.Hour), runner, queue)
	s.pollInterval = 5 * time.Millisecond
	s.SetExporter(exporter)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return queue.processedCount() == 5 }, time.Second, 5*time.Millisecond)

	assert.EqualValues(t, 1, runner.triggered.Load())
	runner.mu.Lock()
	assert.Equal(t, []string{"alpha"}, runner.sources)
	runner.mu.Unlock()
	assert.True(t, s.IsEnabled())
	assert.EqualValues(t, 1, exporter.n.Load())
}

func TestHandleCommand_Disable(t *testing.T) {
	s := New(schedCfg(true, time.Hour), &fakeRunner{}, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	cmd := command(1, models.CmdSchedulerDisable, nil)
	require.NoError(t, s.HandleCommand(&cmd))
	assert.False(t, s.IsEnabled())
}

func TestHandleCommand_ExportWithoutWorker(t *testing.T) {
	s := New(schedCfg(false, 0), &fakeRunner{}, nil)
	cmd := command(1, models.CmdExportSnapshot, nil)
	assert.Error(t, s.HandleCommand(&cmd))
}
