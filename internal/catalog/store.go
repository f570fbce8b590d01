// Package catalog persists the product catalog in PostgreSQL. It owns
// the crawler write path (stores, crawl sessions, offer upserts) and
// implements the query surface the cleanup engine runs against.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"preisvergleich/offers-service/internal/availability"
	"preisvergleich/offers-service/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps a pgx pool with every catalog query. It satisfies
// cleanup.ProductStore.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema applies the embedded schema. Safe to run on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply catalog schema: %w", err)
	}
	return nil
}

// ─── Cleanup Queries ────────────────────────────────────────────────

const productColumns = `
	p.id, p.name, p.brand, p.category, p.store_id, COALESCE(st.name, ''),
	p.price, p.unit, p.availability, p.availability_text, p.offer_valid_until,
	p.image_url, p.product_url, p.crawl_session_id,
	p.created_at, p.updated_at, p.deleted_at`

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Brand, &p.Category, &p.StoreID, &p.StoreName,
			&p.Price, &p.Unit, &p.Availability, &p.AvailabilityText, &p.ValidUntil,
			&p.ImageURL, &p.ProductURL, &p.CrawlSessionID,
			&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// FindActive returns every product without a soft-delete marker.
func (s *Store) FindActive(ctx context.Context) ([]model.Product, error) {
	products, err := s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN stores st ON st.id = p.store_id
		WHERE p.deleted_at IS NULL
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("find active products: %w", err)
	}
	return products, nil
}

// FindActiveWithExpiryBefore returns active products whose offer end
// date lies strictly before cutoff. Products without an end date never
// match.
func (s *Store) FindActiveWithExpiryBefore(ctx context.Context, cutoff time.Time) ([]model.Product, error) {
	products, err := s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN stores st ON st.id = p.store_id
		WHERE p.deleted_at IS NULL
		  AND p.offer_valid_until IS NOT NULL
		  AND p.offer_valid_until < $1
		ORDER BY p.id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find expired products: %w", err)
	}
	return products, nil
}

// FindActiveOlderThan returns active products with no offer end date
// created strictly before cutoff. Dated products are judged by their
// end date instead, so they are excluded here.
func (s *Store) FindActiveOlderThan(ctx context.Context, cutoff time.Time) ([]model.Product, error) {
	products, err := s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN stores st ON st.id = p.store_id
		WHERE p.deleted_at IS NULL
		  AND p.offer_valid_until IS NULL
		  AND p.created_at < $1
		ORDER BY p.id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find stale products: %w", err)
	}
	return products, nil
}

// SoftDelete marks the given products deleted at the given instant and
// reports how many rows changed. Already-deleted rows are skipped, so
// repeating a batch is harmless.
func (s *Store) SoftDelete(ctx context.Context, ids []int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET deleted_at = $2, availability = FALSE, updated_at = NOW()
		WHERE id = ANY($1) AND deleted_at IS NULL`, ids, at)
	if err != nil {
		return 0, fmt.Errorf("soft delete products: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountDeleted returns the number of soft-deleted products still on
// record.
func (s *Store) CountDeleted(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE deleted_at IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count deleted products: %w", err)
	}
	return n, nil
}

// ─── Crawler Write Path ─────────────────────────────────────────────

// EnsureStore returns the id of the named retailer, inserting the row
// on first sight.
func (s *Store) EnsureStore(ctx context.Context, name, baseURL string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO stores (name, base_url)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET base_url = EXCLUDED.base_url
		RETURNING id`, name, baseURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure store %q: %w", name, err)
	}
	return id, nil
}

// StartCrawlSession opens a session in the running state.
func (s *Store) StartCrawlSession(ctx context.Context, notes string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO crawl_sessions (status, notes)
		VALUES ($1, $2)
		RETURNING id`, model.CrawlStatusRunning, notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start crawl session: %w", err)
	}
	return id, nil
}

// FinishCrawlSession closes a session with its final status and counters.
func (s *Store) FinishCrawlSession(ctx context.Context, id int64, status string, total, successes, failures int, notes string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE crawl_sessions
		SET status = $2, completed_at = NOW(), total_products = $3,
		    success_count = $4, error_count = $5, notes = $6
		WHERE id = $1`, id, status, total, successes, failures, notes)
	if err != nil {
		return fmt.Errorf("finish crawl session %d: %w", id, err)
	}
	return nil
}

// UpsertOffer records one crawl observation. First sight inserts; a
// re-observed offer refreshes its price and availability fields and
// clears any soft-delete marker. created_at is never touched after
// insert.
func (s *Store) UpsertOffer(ctx context.Context, storeID, sessionID int64, offer model.ScrapedOffer, parsed availability.Result) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products
		    (name, brand, category, store_id, price, unit,
		     availability, availability_text, offer_valid_until,
		     image_url, product_url, crawl_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (store_id, name) DO UPDATE
		SET brand             = EXCLUDED.brand,
		    category          = EXCLUDED.category,
		    price             = EXCLUDED.price,
		    unit              = EXCLUDED.unit,
		    availability      = EXCLUDED.availability,
		    availability_text = EXCLUDED.availability_text,
		    offer_valid_until = EXCLUDED.offer_valid_until,
		    image_url         = EXCLUDED.image_url,
		    product_url       = EXCLUDED.product_url,
		    crawl_session_id  = EXCLUDED.crawl_session_id,
		    deleted_at        = NULL,
		    updated_at        = NOW()`,
		offer.Name, offer.Brand, offer.Category, storeID, offer.Price, offer.Unit,
		parsed.Available, parsed.NormalizedText, parsed.ValidUntil,
		offer.ImageURL, offer.ProductURL, sessionID)
	if err != nil {
		return fmt.Errorf("upsert offer %q: %w", offer.Name, err)
	}
	return nil
}

// PurgeDeletedBefore physically removes products whose soft delete is
// older than cutoff. Retention only; the cleanup engine never hard
// deletes.
func (s *Store) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM products
		WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted products: %w", err)
	}
	return tag.RowsAffected(), nil
}
