package feed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kosarica/coupon-planner/internal/money"
	"github.com/kosarica/coupon-planner/internal/optimizer"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrCartNotFound is returned when the cart does not exist.
	ErrCartNotFound = errors.New("cart not found")

	// ErrSourceUnavailable is returned while the circuit breaker is open.
	ErrSourceUnavailable = errors.New("catalog source unavailable")
)

// Store reads carts and coupons from Postgres and records plan runs.
type Store struct {
	pool    *pgxpool.Pool
	breaker *CircuitBreaker
	logger  zerolog.Logger
}

// NewStore returns a store backed by pool.
func NewStore(pool *pgxpool.Pool, breaker CircuitBreakerConfig) *Store {
	logger := log.With().Str("component", "postgres_feed").Logger()
	return &Store{
		pool:    pool,
		breaker: NewCircuitBreaker("postgres_feed", breaker, logger),
		logger:  logger,
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Breaker exposes the circuit breaker guarding cart loads.
func (s *Store) Breaker() *CircuitBreaker { return s.breaker }

// LoadCart reads a cart's items and the active coupons available to it.
func (s *Store) LoadCart(ctx context.Context, cartID string) (Snapshot, error) {
	if !s.breaker.Allow() {
		return Snapshot{}, ErrSourceUnavailable
	}

	snap, err := s.loadCart(ctx, cartID)
	switch {
	case err == nil:
		s.breaker.RecordSuccess()
	case errors.Is(err, ErrCartNotFound):
		// the source answered, the cart just does not exist
		s.breaker.RecordSuccess()
	default:
		s.breaker.RecordFailure(err)
	}
	recordLoad("postgres", err)
	return snap, err
}

func (s *Store) loadCart(ctx context.Context, cartID string) (Snapshot, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists); err != nil {
		return Snapshot{}, fmt.Errorf("failed to look up cart %s: %w", cartID, err)
	}
	if !exists {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT item_id, name, shop_id, unit_price, quantity, categories
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY item_id`, cartID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query cart items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ItemDTO, error) {
		var (
			it    ItemDTO
			price int64
		)
		if err := row.Scan(&it.ID, &it.Name, &it.ShopID, &price, &it.Quantity, &it.Categories); err != nil {
			return ItemDTO{}, err
		}
		it.Price = money.Money(price).String()
		return it, nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to scan cart items: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT rule
		FROM coupons
		WHERE active AND (cart_id = $1 OR cart_id IS NULL)
		ORDER BY id`, cartID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CouponDTO, error) {
		var raw []byte
		if err := row.Scan(&raw); err != nil {
			return CouponDTO{}, err
		}
		var c CouponDTO
		if err := json.Unmarshal(raw, &c); err != nil {
			return CouponDTO{}, fmt.Errorf("invalid coupon rule JSON: %w", err)
		}
		return c, nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to scan coupons: %w", err)
	}

	s.logger.Debug().
		Str("cart_id", cartID).
		Int("items", len(items)).
		Int("coupons", len(coupons)).
		Msg("Loaded cart")
	return Snapshot{Items: items, Coupons: coupons}, nil
}

// SaveCart replaces a cart's items and cart-specific coupons in one transaction.
func (s *Store) SaveCart(ctx context.Context, cartID, name string, snap Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO carts (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, cartID, name); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM coupons WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart coupons: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range snap.Items {
		price, err := money.Parse(it.Price)
		if err != nil {
			return fmt.Errorf("item %s: %w", it.ID, err)
		}
		categories := it.Categories
		if categories == nil {
			categories = []string{}
		}
		batch.Queue(`
			INSERT INTO cart_items (cart_id, item_id, name, shop_id, unit_price, quantity, categories)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			cartID, it.ID, it.Name, it.ShopID, int64(price), it.Quantity, categories)
	}
	for _, c := range snap.Coupons {
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("coupon %s: %w", c.ID, err)
		}
		batch.Queue(`INSERT INTO coupons (id, cart_id, rule) VALUES ($1, $2, $3)`, c.ID, cartID, string(raw))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert cart content: %w", err)
	}
	return tx.Commit(ctx)
}

// SaveRun records a planning result. cartID may be empty for ad-hoc catalogs.
func (s *Store) SaveRun(ctx context.Context, cartID string, res *optimizer.Result) error {
	id, err := uuid.Parse(res.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", res.RunID, err)
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	var best *int64
	if b := res.Best(); b != nil {
		cost := int64(b.Cost)
		best = &cost
	}
	var cart *string
	if cartID != "" {
		cart = &cartID
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO plan_runs (id, cart_id, fingerprint, baseline, best_cost, iterations, nodes,
			stop_reason, strategy, seed, duration_ms, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, cart, res.Fingerprint, int64(res.Baseline), best, res.Iterations, res.Nodes,
		string(res.StopReason), string(res.Strategy), res.Seed, res.Duration.Milliseconds(), string(raw))
	if err != nil {
		return fmt.Errorf("failed to insert plan run: %w", err)
	}
	return nil
}

// RunSummary is a stored plan run.
type RunSummary struct {
	ID         string       `json:"id"`
	CartID     string       `json:"cartId"`
	BestCost   *money.Money `json:"bestCost"`
	Iterations int64        `json:"iterations"`
	StopReason string       `json:"stopReason"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// RecentRuns lists the latest runs of a cart, newest first.
func (s *Store) RecentRuns(ctx context.Context, cartID string, limit int) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, COALESCE(cart_id, ''), best_cost, iterations, stop_reason, created_at
		FROM plan_runs
		WHERE cart_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, cartID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan runs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunSummary, error) {
		var (
			r    RunSummary
			best *int64
		)
		if err := row.Scan(&r.ID, &r.CartID, &best, &r.Iterations, &r.StopReason, &r.CreatedAt); err != nil {
			return RunSummary{}, err
		}
		if best != nil {
			m := money.Money(*best)
			r.BestCost = &m
		}
		return r, nil
	})
}
