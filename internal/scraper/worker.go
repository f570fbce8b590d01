package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"preisvergleich/offers-service/internal/availability"
	"preisvergleich/offers-service/internal/model"
)

// OfferSource yields one retailer's current offers. How a source gets
// them (JSON feed, API, fixture file) is its own business; the worker
// only sees the normalised result.
type OfferSource interface {
	Name() string
	BaseURL() string
	Fetch(ctx context.Context) ([]model.ScrapedOffer, error)
}

// Catalog is the persistence surface the worker writes crawl results
// through. catalog.Store implements it.
type Catalog interface {
	EnsureStore(ctx context.Context, name, baseURL string) (int64, error)
	StartCrawlSession(ctx context.Context, notes string) (int64, error)
	UpsertOffer(ctx context.Context, storeID, sessionID int64, offer model.ScrapedOffer, parsed availability.Result) error
	FinishCrawlSession(ctx context.Context, id int64, status string, total, successes, failures int, notes string) error
}

// Worker runs the full crawl cycle. For each source it opens a crawl
// session, parses every offer's availability text, and upserts the
// result into the catalog. A failing source is logged and skipped — it
// never aborts the other sources.
type Worker struct {
	sink    Catalog
	rdb     *redis.Client
	sources []OfferSource
}

// NewWorker constructs a Worker. rdb may be nil, in which case no crawl
// events are published.
func NewWorker(sink Catalog, rdb *redis.Client, sources []OfferSource) *Worker {
	return &Worker{sink: sink, rdb: rdb, sources: sources}
}

// Run executes one crawl cycle over all configured sources.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[worker] Crawl cycle started — %d source(s)", len(w.sources))

	var totalIngested, totalFailed int
	for _, src := range w.sources {
		ingested, failed, err := w.crawlSource(ctx, src)
		totalIngested += ingested
		totalFailed += failed
		if err != nil {
			log.Printf("[worker] Error crawling %s: %v — continuing", src.Name(), err)
		}
	}

	log.Printf("[worker] Crawl cycle done — ingested=%d failed=%d", totalIngested, totalFailed)
	w.publishCrawlCompleted(ctx, totalIngested, totalFailed)
	return nil
}

func (w *Worker) crawlSource(ctx context.Context, src OfferSource) (ingested, failed int, err error) {
	storeID, err := w.sink.EnsureStore(ctx, src.Name(), src.BaseURL())
	if err != nil {
		return 0, 0, fmt.Errorf("ensure store: %w", err)
	}

	sessionID, err := w.sink.StartCrawlSession(ctx, "source: "+src.Name())
	if err != nil {
		return 0, 0, fmt.Errorf("start crawl session: %w", err)
	}

	offers, err := src.Fetch(ctx)
	if err != nil {
		w.finishSession(ctx, src, sessionID, model.CrawlStatusFailed, 0, 0, 0, err.Error())
		return 0, 0, fmt.Errorf("fetch: %w", err)
	}

	now := time.Now().UTC()
	var withExpiry, unavailable int
	for _, offer := range offers {
		parsed := availability.Parse(offer.AvailabilityText, now)

		if err := w.sink.UpsertOffer(ctx, storeID, sessionID, offer, parsed); err != nil {
			log.Printf("[worker] Upsert error for %q (%s): %v", offer.Name, src.Name(), err)
			failed++
			continue
		}
		ingested++
		if parsed.ValidUntil != nil {
			withExpiry++
		}
		if !parsed.Available {
			unavailable++
		}
	}

	status := model.CrawlStatusCompleted
	if len(offers) > 0 && ingested == 0 {
		status = model.CrawlStatusFailed
	}
	w.finishSession(ctx, src, sessionID, status, len(offers), ingested, failed, "")

	log.Printf("[worker] %s done — ingested=%d with_expiry=%d unavailable=%d failed=%d",
		src.Name(), ingested, withExpiry, unavailable, failed)
	return ingested, failed, nil
}

// finishSession closes the session's bookkeeping row. Failures here are
// logged, not propagated — the offers themselves are already written.
func (w *Worker) finishSession(ctx context.Context, src OfferSource, sessionID int64, status string, total, successes, failures int, notes string) {
	if err := w.sink.FinishCrawlSession(ctx, sessionID, status, total, successes, failures, notes); err != nil {
		log.Printf("[worker] FinishCrawlSession error for %s: %v", src.Name(), err)
	}
}

// publishCrawlCompleted announces a finished crawl cycle (non-fatal).
func (w *Worker) publishCrawlCompleted(ctx context.Context, ingested, failed int) {
	if w.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]string{
		"type":     "EVENT_CRAWL_COMPLETED",
		"ingested": strconv.Itoa(ingested),
		"failed":   strconv.Itoa(failed),
	})
	if err := w.rdb.Publish(ctx, "EVENT_CRAWL_COMPLETED", event).Err(); err != nil {
		slog.Warn("publish EVENT_CRAWL_COMPLETED failed", "err", err)
	}
}
