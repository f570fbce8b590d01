package cleanup

import (
	"fmt"
	"time"

	"preisvergleich/offers-service/internal/model"
)

const dateLayout = "2006-01-02"

// Actions reported in ActionTaken.
const (
	actionDryRun  = "dry_run"
	actionDeleted = "deleted"
)

// expiringSoonDays is the look-ahead window for "expiring soon" offers.
const expiringSoonDays = 7

// ProductDetail is one cleanup candidate as listed in reports, in the
// JSON shape the admin surface serves to operators.
type ProductDetail struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Store            string    `json:"store"`
	Price            float64   `json:"price"`
	OfferValidUntil  string    `json:"offer_valid_until"`
	AvailabilityText *string   `json:"availability_text"`
	CreatedAt        time.Time `json:"created_at"`
}

// ExpiredReport summarises one CleanupExpiredOffers run.
type ExpiredReport struct {
	AnalysisDate      string          `json:"analysis_date"`
	TotalExpiredFound int             `json:"total_expired_found"`
	ExpiredByStore    map[string]int  `json:"expired_by_store"`
	ExpiredProducts   []ProductDetail `json:"expired_products"`
	ActionTaken       string          `json:"action_taken"`
	DeletedCount      int             `json:"deleted_count"`
}

// StaleReport summarises one CleanupOldProducts run.
type StaleReport struct {
	CutoffDate       string         `json:"cutoff_date"`
	DaysOldThreshold int            `json:"days_old_threshold"`
	TotalOldFound    int            `json:"total_old_found"`
	OldByStore       map[string]int `json:"old_by_store"`
	ActionTaken      string         `json:"action_taken"`
	DeletedCount     int            `json:"deleted_count"`
}

// Stats is the read-only cleanup statistics summary.
type Stats struct {
	AnalysisDate           string          `json:"analysis_date"`
	TotalActiveProducts    int             `json:"total_active_products"`
	ProductsWithEndDate    int             `json:"products_with_end_date"`
	ProductsWithoutEndDate int             `json:"products_without_end_date"`
	ExpiredOffers          int             `json:"expired_offers"`
	ExpiringSoonOffers     int             `json:"expiring_soon_offers"`
	DeletedProducts        int64           `json:"deleted_products"`
	Recommendations        Recommendations `json:"cleanup_recommendations"`
}

// Recommendations condenses the statistics into operator guidance.
type Recommendations struct {
	ImmediateCleanupCandidates int    `json:"immediate_cleanup_candidates"`
	RequiresAttention          int    `json:"requires_attention"`
	Coverage                   string `json:"coverage"`
}

// groupByStore counts candidates per store name. Records without a
// resolved store name land under "Unknown".
func groupByStore(products []model.Product) map[string]int {
	byStore := make(map[string]int)
	for _, p := range products {
		name := p.StoreName
		if name == "" {
			name = "Unknown"
		}
		byStore[name]++
	}
	return byStore
}

// productDetails builds the candidate detail list for operator review.
func productDetails(products []model.Product) []ProductDetail {
	details := make([]ProductDetail, 0, len(products))
	for _, p := range products {
		d := ProductDetail{
			ID:               p.ID,
			Name:             p.Name,
			Store:            p.StoreName,
			Price:            p.Price,
			AvailabilityText: p.AvailabilityText,
			CreatedAt:        p.CreatedAt,
		}
		if d.Store == "" {
			d.Store = "Unknown"
		}
		if p.ValidUntil != nil {
			d.OfferValidUntil = p.ValidUntil.Format(dateLayout)
		}
		details = append(details, d)
	}
	return details
}

// coverage formats the share of active products carrying an end date.
func coverage(withEndDate, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(withEndDate)/float64(total)*100)
}
