package cleanup

import (
	"time"

	"preisvergleich/offers-service/internal/model"
)

// State classifies a product record relative to a reference date.
//
// Flow with respect to this engine:
//
//	ACTIVE ──[offer end date passes]──► EXPIRED ──[CleanupExpiredOffers]──► DELETED
//	ACTIVE (no end date, stale) ────────[CleanupOldProducts]─────────────► DELETED
//
// DELETED is terminal here — only the crawler write path may bring an
// offer back by re-observing it.
type State string

const (
	// StateActive: not deleted, with no end date or one that has not
	// passed yet.
	StateActive State = "ACTIVE"
	// StateExpired: not deleted, but the offer end date lies before the
	// reference date. Candidate for CleanupExpiredOffers.
	StateExpired State = "EXPIRED"
	// StateDeleted: soft-deleted, kept for audit only.
	StateDeleted State = "DELETED"
)

// StateOf classifies one record against referenceDate.
func StateOf(p model.Product, referenceDate time.Time) State {
	if p.DeletedAt != nil {
		return StateDeleted
	}
	if p.ValidUntil != nil && p.ValidUntil.Before(truncateToDay(referenceDate)) {
		return StateExpired
	}
	return StateActive
}

// truncateToDay keeps the UTC-midnight date of t for day-granularity
// comparisons.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
