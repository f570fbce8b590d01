package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"preisvergleich/offers-service/internal/model"
)

const (
	feedPageSize = 50
	feedMaxPages = 40
	httpTimeout  = 15 * time.Second

	defaultRequestsPerMinute = 30
)

// FeedSource reads a retailer's JSON offer feed. If the feed URL is
// empty, Fetch returns (nil, nil) gracefully — the worker will simply
// skip this retailer for the round and log it.
type FeedSource struct {
	name    string
	baseURL string
	feedURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewFeedSource constructs a feed source with a shared HTTP client,
// throttled to requestsPerMinute against the retailer's endpoint.
func NewFeedSource(name, baseURL, feedURL string, requestsPerMinute int) *FeedSource {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	return &FeedSource{
		name:    name,
		baseURL: baseURL,
		feedURL: feedURL,
		client:  &http.Client{Timeout: httpTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (f *FeedSource) Name() string    { return f.name }
func (f *FeedSource) BaseURL() string { return f.baseURL }

// feedResponse mirrors one page of the offer feed. Offers carry the
// ScrapedOffer wire tags directly.
type feedResponse struct {
	Offers []model.ScrapedOffer `json:"offers"`
	Count  int                  `json:"count"`
}

// Fetch retrieves all current offers, iterating through pages until an
// empty page or feedMaxPages is reached. Returns nil without error when
// the feed URL is unconfigured.
func (f *FeedSource) Fetch(ctx context.Context) ([]model.ScrapedOffer, error) {
	if f.feedURL == "" {
		log.Printf("[feed] %s: feed URL not set — skipping", f.name)
		return nil, nil
	}

	var offers []model.ScrapedOffer

	for page := 1; page <= feedMaxPages; page++ {
		batch, err := f.fetchPage(ctx, page)
		if err != nil {
			return offers, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break // No more results
		}
		offers = append(offers, batch...)
		if len(batch) < feedPageSize {
			break // Last page
		}
	}

	return offers, nil
}

func (f *FeedSource) fetchPage(ctx context.Context, page int) ([]model.ScrapedOffer, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(feedPageSize))

	reqURL := f.feedURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body))
	}

	var feedResp feedResponse
	if err := json.Unmarshal(body, &feedResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	return feedResp.Offers, nil
}
