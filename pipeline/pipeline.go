// Package pipeline builds the whole ingestion system once and owns its
// lifecycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"jobfeed/api"
	"jobfeed/config"
	"jobfeed/httputil"
	"jobfeed/models"
	"jobfeed/notify"
	"jobfeed/ratelimit"
	"jobfeed/scheduler"
	"jobfeed/scraper"
	"jobfeed/services"
	"jobfeed/sources"
	"jobfeed/storage"
	"jobfeed/workers"
)

// PipelineContext holds every long-lived component. Construct it with New,
// run it with Start and stop it with Shutdown.
type PipelineContext struct {
	Config       *config.Config
	Store        *storage.CachedStore
	Ops          *storage.SQLiteStore
	Registry     *sources.Registry
	Limiter      *ratelimit.Limiter
	Orchestrator *scraper.Orchestrator
	Scheduler    *scheduler.Scheduler
	Query        *services.QueryEngine
	Stats        *services.StatsAggregator
	Publisher    notify.Publisher
	// Exporter is nil when no S3 bucket is configured.
	Exporter *workers.ExportWorker

	server  *http.Server
	closers []func() error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(ctx context.Context, cfg *config.Config) (p *PipelineContext, err error) {
	p = &PipelineContext{Config: cfg}
	defer func() {
		if err != nil {
			p.closeAll()
		}
	}()

	backing, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Store.Driver,
		DBPath:      cfg.Store.DBPath,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	p.closers = append(p.closers, backing.Close)
	log.Printf("Job store: %s", driverName(cfg.Store.Driver))

	// Operational data always lives in SQLite; share the handle when the
	// postings are there too.
	if sqlite, ok := backing.(*storage.SQLiteStore); ok {
		p.Ops = sqlite
	} else {
		ops, err := storage.NewSQLiteStore(cfg.Store.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open ops store: %w", err)
		}
		p.closers = append(p.closers, ops.Close)
		p.Ops = ops
	}
	log.Printf("SQLite database: %s", cfg.Store.DBPath)

	p.Store = storage.NewCachedStore(backing)

	p.Registry = sources.NewRegistry(cfg.Sources)
	if stats, err := p.Ops.LoadSourceStats(); err != nil {
		log.Printf("Warning: could not restore source stats: %v", err)
	} else {
		p.Registry.Restore(stats)
	}

	p.Publisher, err = buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, p.Publisher.Close)

	p.Limiter = ratelimit.New()
	clients := httputil.NewClients(&cfg.Proxy)
	fetchers, err := scraper.NewFetchers(cfg.Sources, clients, p.Limiter)
	if err != nil {
		return nil, err
	}

	p.Orchestrator = scraper.NewOrchestrator(
		cfg.Scraper, p.Registry, p.Limiter, fetchers,
		services.NewDeduplicator(p.Store), p.Publisher, p.Ops,
	)
	if last, err := p.Ops.LastPassTime(); err != nil {
		log.Printf("Warning: could not restore last pass time: %v", err)
	} else {
		p.Orchestrator.RestoreLastPass(last)
	}

	p.Query = services.NewQueryEngine(p.Store)
	p.Stats = services.NewStatsAggregator(p.Store, p.Registry, p.Orchestrator)

	if cfg.S3.Bucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 uploader: %w", err)
		}
		p.Exporter = workers.NewExportWorker(services.NewSnapshotExporter(p.Store, uploader), cfg.ExportInterval)
		p.Exporter.SetLogger(func(level models.LogLevel, source, message string) {
			p.Ops.Log("", level, message, source)
		})
		log.Printf("Snapshot export to s3://%s", cfg.S3.Bucket)
	}

	p.Scheduler = scheduler.New(cfg.Scheduler, p.Orchestrator, p.Ops)
	if p.Exporter != nil {
		p.Scheduler.SetExporter(p.Exporter)
	}

	log.Printf("Loaded %d sources (%d active)", len(p.Registry.All()), len(p.Registry.Active()))
	return p, nil
}

func buildPublisher(ctx context.Context, cfg *config.Config) (notify.Publisher, error) {
	var pubs notify.Multi

	if cfg.RabbitMQ.URL != "" {
		rmq, err := notify.NewRabbitMQ(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		pubs = append(pubs, rmq)
	}

	if cfg.Redis.URL != "" {
		rdb, err := notify.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			pubs.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		pubs = append(pubs, notify.NewRedis(rdb))
		log.Println("Redis event publisher connected")
	}

	if len(pubs) == 0 {
		return notify.NoOp{}, nil
	}
	return pubs, nil
}

// Handler returns the HTTP surface over this pipeline.
func (p *PipelineContext) Handler() http.Handler {
	deps := api.Deps{
		Jobs:      p.Query,
		Stats:     p.Stats,
		Sources:   p.Registry,
		Scrapes:   p.Orchestrator,
		Scheduler: p.Scheduler,
	}
	if p.Exporter != nil {
		deps.Exporter = p.Exporter
	}

	mux := http.NewServeMux()
	api.NewHandler(deps).RegisterRoutes(mux)
	return mux
}

// Start launches the scheduler, the export worker and the HTTP server.
func (p *PipelineContext) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	if err := p.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if p.Exporter != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.Exporter.Run(ctx)
		}()
	}

	if p.Config.HTTPAddr != "" {
		p.server = &http.Server{
			Addr:         p.Config.HTTPAddr,
			Handler:      p.Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			log.Printf("HTTP API listening on %s", p.Config.HTTPAddr)
			if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	return nil
}

// Shutdown stops the timers, cancels in-flight scrapes and releases every
// connection. It is safe to call without Start.
func (p *PipelineContext) Shutdown(ctx context.Context) error {
	var errs []error

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if p.cancel != nil {
		// Cancel first so a running scheduled pass stops retrying before
		// the scheduler waits on it.
		p.cancel()
		p.Scheduler.Stop()
	}
	p.Orchestrator.Shutdown()
	p.wg.Wait()

	errs = append(errs, p.closeAll())
	return errors.Join(errs...)
}

func (p *PipelineContext) closeAll() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

func driverName(d string) string {
	if d == "" {
		return "sqlite"
	}
	return d
}
