// Package cleanup implements the offer lifecycle engine: finding expired
// and stale product records, soft-deleting them in atomic batches, and
// reporting cleanup statistics.
//
// The engine is transport-agnostic and stateless per call. Every
// operation takes an injected reference date instead of reading the
// clock, so runs are deterministic and testable. It performs a
// read-then-delete against the product store; callers must keep at most
// one cleanup of each kind in flight at a time (the scheduler package
// does this) — the engine itself takes no lock.
package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"preisvergleich/offers-service/internal/model"
)

// ProductStore is the persistence collaborator the engine operates
// against. catalog.Store implements it for PostgreSQL.
type ProductStore interface {
	// FindActive returns all records that are not soft-deleted.
	FindActive(ctx context.Context) ([]model.Product, error)

	// FindActiveWithExpiryBefore returns active records whose ValidUntil
	// is set and strictly before day.
	FindActiveWithExpiryBefore(ctx context.Context, day time.Time) ([]model.Product, error)

	// FindActiveOlderThan returns active records created before cutoff
	// that carry no ValidUntil. Records with an end date are exclusively
	// governed by the expired-offers path and are never returned here.
	FindActiveOlderThan(ctx context.Context, cutoff time.Time) ([]model.Product, error)

	// SoftDelete marks the given records deleted at the given timestamp,
	// forcing availability to false, and returns how many rows changed.
	// Ids that are already deleted are skipped, not errors.
	SoftDelete(ctx context.Context, ids []int64, at time.Time) (int64, error)

	// CountDeleted returns the number of soft-deleted records.
	CountDeleted(ctx context.Context) (int64, error)
}

// Engine applies the cleanup policy against a product store.
type Engine struct {
	store ProductStore
	rdb   *redis.Client
}

// NewEngine returns a configured Engine. rdb may be nil, in which case
// cleanup events are not published.
func NewEngine(store ProductStore, rdb *redis.Client) *Engine {
	return &Engine{store: store, rdb: rdb}
}

// ─── Operations ──────────────────────────────────────────────────────────────

// CleanupExpiredOffers soft-deletes every active record whose offer end
// date lies before referenceDate. With dryRun=true the candidates are
// only reported, nothing is written.
func (e *Engine) CleanupExpiredOffers(ctx context.Context, referenceDate time.Time, dryRun bool) (*ExpiredReport, error) {
	if referenceDate.IsZero() {
		return nil, &ValidationError{Msg: "referenceDate must be set"}
	}
	ref := truncateToDay(referenceDate)

	expired, err := e.store.FindActiveWithExpiryBefore(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("find expired offers: %w", err)
	}

	action := actionDryRun
	if !dryRun {
		action = actionDeleted
	}
	report := &ExpiredReport{
		AnalysisDate:      ref.Format(dateLayout),
		TotalExpiredFound: len(expired),
		ExpiredByStore:    groupByStore(expired),
		ExpiredProducts:   productDetails(expired),
		ActionTaken:       action,
	}

	if dryRun || len(expired) == 0 {
		return report, nil
	}

	if err := e.softDeleteAll(ctx, expired); err != nil {
		return nil, err
	}
	report.DeletedCount = len(expired)

	e.publishCleanupEvent(ctx, "expired_offers", len(expired))
	return report, nil
}

// CleanupOldProducts soft-deletes active records without any offer end
// date that were created more than daysOld days before referenceDate.
// Records carrying an end date are never touched here — they belong to
// CleanupExpiredOffers, so the two paths cannot race on the same record.
func (e *Engine) CleanupOldProducts(ctx context.Context, daysOld int, referenceDate time.Time, dryRun bool) (*StaleReport, error) {
	if daysOld < 0 {
		return nil, &ValidationError{Msg: fmt.Sprintf("daysOld must not be negative, got %d", daysOld)}
	}
	if referenceDate.IsZero() {
		return nil, &ValidationError{Msg: "referenceDate must be set"}
	}

	cutoff := truncateToDay(referenceDate).AddDate(0, 0, -daysOld)

	stale, err := e.store.FindActiveOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find stale products: %w", err)
	}

	action := actionDryRun
	if !dryRun {
		action = actionDeleted
	}
	report := &StaleReport{
		CutoffDate:       cutoff.Format(dateLayout),
		DaysOldThreshold: daysOld,
		TotalOldFound:    len(stale),
		OldByStore:       groupByStore(stale),
		ActionTaken:      action,
	}

	if dryRun || len(stale) == 0 {
		return report, nil
	}

	if err := e.softDeleteAll(ctx, stale); err != nil {
		return nil, err
	}
	report.DeletedCount = len(stale)

	e.publishCleanupEvent(ctx, "old_products", len(stale))
	return report, nil
}

// GetCleanupStatistics reports counts over the active catalog plus the
// deleted-records audit total. Purely read-only.
func (e *Engine) GetCleanupStatistics(ctx context.Context, referenceDate time.Time) (*Stats, error) {
	if referenceDate.IsZero() {
		return nil, &ValidationError{Msg: "referenceDate must be set"}
	}
	ref := truncateToDay(referenceDate)

	active, err := e.store.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("find active products: %w", err)
	}
	deleted, err := e.store.CountDeleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("count deleted products: %w", err)
	}

	soonEnd := ref.AddDate(0, 0, expiringSoonDays)

	var withEndDate, expired, expiringSoon int
	for _, p := range active {
		if StateOf(p, ref) == StateExpired {
			expired++
		}
		if p.ValidUntil == nil {
			continue
		}
		withEndDate++
		if !p.ValidUntil.Before(ref) && p.ValidUntil.Before(soonEnd) {
			expiringSoon++
		}
	}

	return &Stats{
		AnalysisDate:           ref.Format(dateLayout),
		TotalActiveProducts:    len(active),
		ProductsWithEndDate:    withEndDate,
		ProductsWithoutEndDate: len(active) - withEndDate,
		ExpiredOffers:          expired,
		ExpiringSoonOffers:     expiringSoon,
		DeletedProducts:        deleted,
		Recommendations: Recommendations{
			ImmediateCleanupCandidates: expired,
			RequiresAttention:          expiringSoon,
			Coverage:                   coverage(withEndDate, len(active)),
		},
	}, nil
}

// ─── Internals ───────────────────────────────────────────────────────────────

// softDeleteAll deletes the whole candidate batch and verifies the store
// changed exactly as many rows as were queried. A mismatch means a
// concurrent writer raced the candidate list; the operation fails rather
// than reporting a count it did not actually delete. Retrying is safe —
// soft delete is idempotent — but must restart from the query.
func (e *Engine) softDeleteAll(ctx context.Context, candidates []model.Product) error {
	ids := make([]int64, 0, len(candidates))
	for _, p := range candidates {
		ids = append(ids, p.ID)
	}

	deleted, err := e.store.SoftDelete(ctx, ids, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete batch: %w", err)
	}
	if deleted != int64(len(ids)) {
		return fmt.Errorf("soft delete batch incomplete: marked %d of %d candidates", deleted, len(ids))
	}
	return nil
}

// publishCleanupEvent announces a completed real cleanup run (non-fatal).
func (e *Engine) publishCleanupEvent(ctx context.Context, kind string, deleted int) {
	if e.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]string{
		"type":    "EVENT_CLEANUP_COMPLETED",
		"kind":    kind,
		"deleted": strconv.Itoa(deleted),
	})
	if err := e.rdb.Publish(ctx, "EVENT_CLEANUP_COMPLETED", event).Err(); err != nil {
		slog.Warn("publish EVENT_CLEANUP_COMPLETED failed", "kind", kind, "err", err)
	}
}

// ValidationError reports invalid cleanup parameters (negative daysOld,
// missing reference date). No query or mutation has happened when it is
// returned.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
