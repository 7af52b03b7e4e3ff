package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"jobfeed/config"
	"jobfeed/logging"
	"jobfeed/models"
	"jobfeed/pipeline"
)

var (
	scrapeNow  = flag.Bool("scrape", false, "Run one scrape pass and exit")
	sourceID   = flag.String("source", "", "With -scrape, scrape only this source")
	printStats = flag.Bool("stats", false, "Print corpus stats and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting jobfeed...")
	for _, id := range cfg.SourceIDs() {
		sc := cfg.Sources[id]
		log.Printf("  - %s (%s, %s, active=%t)", sc.Name, id, sc.Handler, sc.IsActive())
	}

	ctx := context.Background()
	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	switch {
	case *printStats:
		err = runStats(ctx, p)
	case *scrapeNow:
		err = runScrape(ctx, p, *sourceID)
	default:
		err = runDaemon(ctx, p)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := p.Shutdown(shutdownCtx); serr != nil {
		log.Printf("Shutdown error: %v", serr)
	}

	if err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func runScrape(ctx context.Context, p *pipeline.PipelineContext, source string) error {
	if source != "" {
		log.Printf("Scraping %s...", source)
		job, err := p.Orchestrator.ManualScrapeSource(ctx, source)
		if err != nil {
			return err
		}
		printJob(job)
		if job.Status != models.RunStatusCompleted {
			return fmt.Errorf("scrape of %s failed", source)
		}
		return nil
	}

	log.Println("Running scrape pass...")
	summary, err := p.Orchestrator.ScrapeAllSources(ctx)
	if err != nil {
		return err
	}
	for _, job := range p.Orchestrator.Jobs() {
		printJob(&job)
	}
	log.Printf("Scrape complete: %d sources, %d ok, %d failed", summary.Sources, summary.Completed, summary.Failed)
	return nil
}

func runStats(ctx context.Context, p *pipeline.PipelineContext) error {
	st, err := p.Stats.GetStats(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Println(bold("Job corpus"))
	fmt.Printf("  %-16s %s\n", "total", cyan(st.TotalJobs))
	fmt.Printf("  %-16s %s\n", "today", cyan(st.JobsToday))
	fmt.Printf("  %-16s %s\n", "this week", cyan(st.JobsThisWeek))
	fmt.Printf("  %-16s %s\n", "active sources", cyan(st.ActiveSources))
	if st.LastScrapeTime != nil {
		fmt.Printf("  %-16s %s\n", "last pass", st.LastScrapeTime.Local().Format(time.RFC1123))
	} else {
		fmt.Printf("  %-16s %s\n", "last pass", yellow("never"))
	}

	printRanked(bold("Top sources"), st.TopSources)
	printRanked(bold("Top companies"), st.TopCompanies)

	fmt.Println(bold("Categories"))
	cats := make([]string, 0, len(st.CategoryBreakdown))
	for c := range st.CategoryBreakdown {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Printf("  %-16s %d\n", c, st.CategoryBreakdown[models.Category(c)])
	}

	fmt.Println(bold("Sources"))
	for _, src := range p.Registry.All() {
		rate := fmt.Sprintf("%.0f%%", src.SuccessRate*100)
		if src.ErrorCount > 0 {
			rate = color.RedString(rate)
		} else {
			rate = color.GreenString(rate)
		}
		fmt.Printf("  %-16s success %s, %d errors in a row\n", src.ID, rate, src.ErrorCount)
	}
	return nil
}

func printRanked(title string, ranked []models.RankedCount) {
	fmt.Println(title)
	if len(ranked) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, r := range ranked {
		fmt.Printf("  %-30s %d\n", r.Name, r.Count)
	}
}

func printJob(job *models.ScrapeJob) {
	status := color.New(color.FgRed).SprintFunc()
	if job.Status == models.RunStatusCompleted {
		status = color.New(color.FgGreen).SprintFunc()
	}
	fmt.Printf("%s %-16s found=%d new=%d updated=%d dup=%d rejected=%d retries=%d\n",
		status(strings.ToUpper(string(job.Status))), job.SourceID,
		job.JobsFound, job.JobsInserted, job.JobsUpdated, job.DuplicatesSkipped,
		job.CandidatesRejected, job.RetryCount)
	for _, e := range job.Errors {
		fmt.Printf("    %s\n", e.Message)
	}
}

func runDaemon(ctx context.Context, p *pipeline.PipelineContext) error {
	if err := p.Start(ctx); err != nil {
		return err
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	return nil
}
