// offers-service
//
// Supermarket offers core: crawls retailer offer feeds into the product
// catalog, parses German availability texts into machine-readable
// expiry dates, and runs the scheduled maintenance that soft-deletes
// expired and stale offers.
//
// Publishes EVENT_CRAWL_COMPLETED / EVENT_CLEANUP_COMPLETED to Redis
// for downstream consumers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"preisvergleich/offers-service/internal/catalog"
	"preisvergleich/offers-service/internal/cleanup"
	"preisvergleich/offers-service/internal/config"
	"preisvergleich/offers-service/internal/db"
	"preisvergleich/offers-service/internal/scheduler"
	"preisvergleich/offers-service/internal/scraper"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil {
		log.Println("[offers-service] No .env file — using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[offers-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[offers-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[offers-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[offers-service] PostgreSQL connected ✓")

	store := catalog.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("[offers-service] Schema: %v", err)
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[offers-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[offers-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[offers-service] Redis connected ✓")

	// ── Crawl + maintenance wiring ───────────────────────────────────────────
	sources := []scraper.OfferSource{
		scraper.NewFeedSource("ALDI", "https://www.aldi-sued.de", cfg.AldiFeedURL, cfg.FeedRequestsPerMinute),
		scraper.NewFeedSource("LIDL", "https://www.lidl.de", cfg.LidlFeedURL, cfg.FeedRequestsPerMinute),
	}
	worker := scraper.NewWorker(store, rdb, sources)
	engine := cleanup.NewEngine(store, rdb)

	sched := scheduler.New(worker, engine, store,
		cfg.CrawlSchedule, cfg.CleanupSchedule, cfg.StaleDays, cfg.RetentionDays)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[offers-service] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[offers-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[offers-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[offers-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[offers-service] Shutdown error: %v", err)
	}
	log.Println("[offers-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "offers-service",
		"version": version,
	})
}
