// Package model defines shared data structures for the offers service.
package model

import "time"

// Product mirrors a products table row — one supermarket offer observed
// during a crawl.
type Product struct {
	ID         int64
	Name       string
	Brand      string
	Category   string
	StoreID    int64
	StoreName  string // resolved via join for reporting; not a column
	Price      float64
	Unit       string // e.g. "500g", "1l"

	// Availability is derived from AvailabilityText by the availability
	// parser on every crawl write — never set by hand.
	Availability     bool
	AvailabilityText *string    // raw scraped string, kept for audit
	ValidUntil       *time.Time // last day the offer is valid; nil = no known expiry

	ImageURL       string
	ProductURL     string
	CrawlSessionID *int64

	CreatedAt time.Time // set once at first insertion
	UpdatedAt time.Time
	DeletedAt *time.Time // non-nil = soft-deleted (kept for audit, hidden from search)
}

// Store mirrors the stores table — a retailer whose offers we track.
type Store struct {
	ID      int64
	Name    string
	LogoURL string
	BaseURL string
	Enabled bool
}

// ScrapedOffer is a normalised offer as produced by an OfferSource,
// before it is parsed and written into the products table.
type ScrapedOffer struct {
	Name             string  `json:"name"`
	Brand            string  `json:"brand,omitempty"`
	Category         string  `json:"category,omitempty"`
	Price            float64 `json:"price"`
	Unit             string  `json:"unit,omitempty"`
	AvailabilityText string  `json:"availability_text,omitempty"`
	ImageURL         string  `json:"image_url,omitempty"`
	ProductURL       string  `json:"product_url,omitempty"`
}

// Crawl session status values mirror the crawl_sessions.status column.
const (
	CrawlStatusRunning   = "running"
	CrawlStatusCompleted = "completed"
	CrawlStatusFailed    = "failed"
)

// CrawlSession records one ingest run for audit and debugging.
type CrawlSession struct {
	ID            int64
	Status        string
	StartedAt     time.Time
	CompletedAt   *time.Time
	TotalProducts int
	SuccessCount  int
	ErrorCount    int
	Notes         string
}
