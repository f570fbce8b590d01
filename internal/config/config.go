// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the offers service.
type Config struct {
	Port                  string
	DatabaseURL           string
	RedisURL              string
	CrawlSchedule         string // cron spec for the ingest job
	CleanupSchedule       string // cron spec for the maintenance job
	StaleDays             int    // age threshold for products without an offer end date
	RetentionDays         int    // how long soft-deleted records are kept
	FeedRequestsPerMinute int
	AldiFeedURL           string // empty = source is skipped
	LidlFeedURL           string // empty = source is skipped
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	staleDays := 30
	if s := os.Getenv("STALE_DAYS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("STALE_DAYS must be a non-negative integer, got %q", s)
		}
		staleDays = v
	}

	retentionDays := 30
	if s := os.Getenv("RETENTION_DAYS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("RETENTION_DAYS must be a positive integer, got %q", s)
		}
		retentionDays = v
	}

	perMinute := 30
	if s := os.Getenv("FEED_REQUESTS_PER_MINUTE"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("FEED_REQUESTS_PER_MINUTE must be a positive integer, got %q", s)
		}
		perMinute = v
	}

	crawlSchedule := os.Getenv("CRAWL_SCHEDULE")
	if crawlSchedule == "" {
		crawlSchedule = "0 6 * * 1" // Monday 06:00
	}

	cleanupSchedule := os.Getenv("CLEANUP_SCHEDULE")
	if cleanupSchedule == "" {
		cleanupSchedule = "0 3 * * *" // daily 03:00
	}

	port := os.Getenv("OFFERS_PORT")
	if port == "" {
		port = "8082"
	}

	return &Config{
		Port:                  port,
		DatabaseURL:           dbURL,
		RedisURL:              redisURL,
		CrawlSchedule:         crawlSchedule,
		CleanupSchedule:       cleanupSchedule,
		StaleDays:             staleDays,
		RetentionDays:         retentionDays,
		FeedRequestsPerMinute: perMinute,
		AldiFeedURL:           os.Getenv("ALDI_FEED_URL"),
		LidlFeedURL:           os.Getenv("LIDL_FEED_URL"),
	}, nil
}
