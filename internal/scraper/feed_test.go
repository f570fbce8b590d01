package scraper_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"preisvergleich/offers-service/internal/model"
	"preisvergleich/offers-service/internal/scraper"
)

func TestFeedSource_PagesUntilShortPage(t *testing.T) {
	var pagesServed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)

		n := 50
		if page == "2" {
			n = 3
		}
		offers := make([]model.ScrapedOffer, n)
		for i := range offers {
			offers[i] = model.ScrapedOffer{Name: fmt.Sprintf("Artikel %s-%d", page, i), Price: 0.99}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"offers": offers, "count": n})
	}))
	defer srv.Close()

	src := scraper.NewFeedSource("ALDI", "https://www.aldi-sued.de", srv.URL, 6000)
	offers, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(offers) != 53 {
		t.Errorf("offers = %d, want 53", len(offers))
	}
	if want := []string{"1", "2"}; !cmp.Equal(want, pagesServed) {
		t.Errorf("pages fetched = %v, want %v", pagesServed, want)
	}
}

func TestFeedSource_UnsetURLSkips(t *testing.T) {
	src := scraper.NewFeedSource("LIDL", "https://www.lidl.de", "", 30)

	offers, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if offers != nil {
		t.Errorf("offers = %+v, want nil for an unconfigured feed", offers)
	}
}

func TestFeedSource_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := scraper.NewFeedSource("ALDI", "https://www.aldi-sued.de", srv.URL, 6000)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Error("Fetch succeeded, want error on HTTP 502")
	}
}
