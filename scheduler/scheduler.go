package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobfeed/config"
	"jobfeed/models"
	"jobfeed/notify"
	"jobfeed/scraper"
	"jobfeed/storage"
)

const commandPollInterval = 2 * time.Second

// Runner is the part of the orchestrator the scheduler drives.
type Runner interface {
	ScrapeAllSources(ctx context.Context) (notify.PassSummary, error)
	TriggerPass() error
	TriggerSource(sourceID string) (*models.ScrapeJob, error)
}

// CommandQueue is the operator command table.
type CommandQueue interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
}

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Scheduler fires a full pass on the cron schedule plus once shortly after
// it is enabled. Disabling cancels both; a pass already running finishes.
type Scheduler struct {
	cfg      config.SchedulerConfig
	runner   Runner
	commands CommandQueue
	exporter Triggerable

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	startup *time.Timer
	enabled bool

	ctx          context.Context
	stopCh       chan struct{}
	wg           sync.WaitGroup
	pollInterval time.Duration
}

func New(cfg config.SchedulerConfig, runner Runner, commands CommandQueue) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		runner:       runner,
		commands:     commands,
		cron:         cron.New(),
		ctx:          context.Background(),
		stopCh:       make(chan struct{}),
		pollInterval: commandPollInterval,
	}
}

// SetExporter registers the snapshot worker for export commands.
func (s *Scheduler) SetExporter(t Triggerable) {
	s.exporter = t
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := cron.ParseStandard(s.cfg.Cron); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.cfg.Cron, err)
	}
	s.ctx = ctx
	s.cron.Start()

	if s.commands != nil {
		s.wg.Add(1)
		go s.pollCommands(ctx)
	}

	if s.cfg.Enabled {
		return s.Enable()
	}
	log.Println("Scheduler disabled, daemon will only respond to commands")
	return nil
}

// Enable arms the cron entry and the startup timer. Enabling twice is a
// no-op.
func (s *Scheduler) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled {
		return nil
	}

	entry, err := s.cron.AddFunc(s.cfg.Cron, s.runPass)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.cfg.Cron, err)
	}
	s.entry = entry
	s.startup = time.AfterFunc(s.cfg.StartupDelay, s.runPass)
	s.enabled = true

	log.Printf("Scheduler enabled: cron %q, first pass in %s", s.cfg.Cron, s.cfg.StartupDelay)
	return nil
}

func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}
	s.cron.Remove(s.entry)
	if s.startup != nil {
		s.startup.Stop()
		s.startup = nil
	}
	s.enabled = false
	log.Println("Scheduler disabled")
}

func (s *Scheduler) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Scheduler) Stop() {
	s.Disable()
	<-s.cron.Stop().Done()
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) runPass() {
	if _, err := s.runner.ScrapeAllSources(s.ctx); err != nil {
		if errors.Is(err, scraper.ErrPassInProgress) {
			log.Println("Scheduled pass skipped: previous pass still running")
			return
		}
		log.Printf("Scheduled run error: %v", err)
	}
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	_, err := s.runner.ScrapeAllSources(ctx)
	return err
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.commands.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.HandleCommand(&cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.commands.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// HandleCommand applies one operator command. Scrape commands start in the
// background so the poll loop keeps draining.
func (s *Scheduler) HandleCommand(cmd *models.Command) error {
	params, err := storage.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	switch cmd.Command {
	case models.CmdScrapeNow:
		return s.runner.TriggerPass()
	case models.CmdScrapeSource:
		if params.Source == "" {
			return s.runner.TriggerPass()
		}
		_, err := s.runner.TriggerSource(params.Source)
		return err
	case models.CmdSchedulerEnable:
		return s.Enable()
	case models.CmdSchedulerDisable:
		s.Disable()
		return nil
	case models.CmdExportSnapshot:
		if s.exporter == nil {
			return errors.New("snapshot export is not configured")
		}
		s.exporter.Trigger()
		log.Println("Export worker triggered via command")
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}
}
