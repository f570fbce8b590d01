// Package scheduler wires up the cron jobs that drive the service: the
// periodic crawl and the daily catalog maintenance (expired-offer
// cleanup, stale-product cleanup, retention purge).
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"preisvergleich/offers-service/internal/cleanup"
)

// Crawler runs one ingest cycle over all offer sources.
type Crawler interface {
	Run(ctx context.Context) error
}

// Maintainer is the cleanup surface the maintenance job drives.
// cleanup.Engine implements it.
type Maintainer interface {
	CleanupExpiredOffers(ctx context.Context, referenceDate time.Time, dryRun bool) (*cleanup.ExpiredReport, error)
	CleanupOldProducts(ctx context.Context, daysOld int, referenceDate time.Time, dryRun bool) (*cleanup.StaleReport, error)
}

// Purger removes soft-deleted records older than the retention window.
// catalog.Store implements it.
type Purger interface {
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler wraps robfig/cron and manages the crawl and maintenance
// loops. The cleanup engine requires at most one run of each cleanup
// kind in flight; the per-job mutexes enforce that here, so overlapping
// ticks are skipped rather than queued.
type Scheduler struct {
	cron          *cron.Cron
	crawler       Crawler
	engine        Maintainer
	purger        Purger
	crawlSpec     string // cron spec, e.g. "0 6 * * 1"
	cleanupSpec   string // cron spec, e.g. "0 3 * * *"
	staleDays     int
	retentionDays int

	crawlMu sync.Mutex
	maintMu sync.Mutex
}

// New creates a Scheduler with the given cron specs and day thresholds.
func New(crawler Crawler, engine Maintainer, purger Purger, crawlSpec, cleanupSpec string, staleDays, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithLogger(cron.DefaultLogger)),
		crawler:       crawler,
		engine:        engine,
		purger:        purger,
		crawlSpec:     crawlSpec,
		cleanupSpec:   cleanupSpec,
		staleDays:     staleDays,
		retentionDays: retentionDays,
	}
}

// Start registers both jobs and starts the scheduler. Also runs one
// maintenance pass immediately so an instance that was down over a
// schedule boundary catches up without waiting for the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.crawlSpec, func() { s.RunCrawl(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc crawl: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cleanupSpec, func() { s.RunMaintenance(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc cleanup: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — crawl: %q, cleanup: %q", s.crawlSpec, s.cleanupSpec)

	// Non-blocking catch-up pass
	go s.RunMaintenance(ctx)

	return nil
}

// Stop shuts the scheduler down and waits for in-flight jobs to drain.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

// RunCrawl executes one crawl cycle. Safe to call concurrently: if a
// crawl is already in flight the call is skipped and logged.
func (s *Scheduler) RunCrawl(ctx context.Context) {
	if !s.crawlMu.TryLock() {
		log.Println("[scheduler] Crawl still running — skipping this tick")
		return
	}
	defer s.crawlMu.Unlock()

	log.Println("[scheduler] Crawl job started")
	if err := s.crawler.Run(ctx); err != nil {
		log.Printf("[scheduler] Crawl job error: %v", err)
		return
	}
	log.Println("[scheduler] Crawl job complete")
}

// RunMaintenance executes one maintenance pass: expired-offer cleanup,
// stale-product cleanup, then the retention purge. Safe to call
// concurrently: if a pass is already in flight the call is skipped and
// logged. A failing step is logged and the remaining steps still run.
func (s *Scheduler) RunMaintenance(ctx context.Context) {
	if !s.maintMu.TryLock() {
		log.Println("[scheduler] Maintenance still running — skipping this tick")
		return
	}
	defer s.maintMu.Unlock()

	log.Println("[scheduler] Maintenance job started")
	now := time.Now().UTC()

	expired, err := s.engine.CleanupExpiredOffers(ctx, now, false)
	if err != nil {
		log.Printf("[scheduler] CleanupExpiredOffers error: %v", err)
	} else {
		log.Printf("[scheduler] Expired offers: found=%d deleted=%d", expired.TotalExpiredFound, expired.DeletedCount)
	}

	stale, err := s.engine.CleanupOldProducts(ctx, s.staleDays, now, false)
	if err != nil {
		log.Printf("[scheduler] CleanupOldProducts error: %v", err)
	} else {
		log.Printf("[scheduler] Stale products: found=%d deleted=%d", stale.TotalOldFound, stale.DeletedCount)
	}

	purged, err := s.purger.PurgeDeletedBefore(ctx, now.AddDate(0, 0, -s.retentionDays))
	if err != nil {
		log.Printf("[scheduler] PurgeDeletedBefore error: %v", err)
	} else if purged > 0 {
		log.Printf("[scheduler] Purged %d soft-deleted record(s) past retention", purged)
	}

	log.Println("[scheduler] Maintenance job complete")
}
