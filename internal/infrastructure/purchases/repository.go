package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "bondtrader/internal/domain/entity/purchases"
)

// ErrNilPurchase is returned when a nil purchase is recorded.
var ErrNilPurchase = errors.New("nil purchase")

// Repository is the Postgres purchase journal.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository connects to Postgres and pings it.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

const insertPurchaseQuery = `
	INSERT INTO purchases (purchase_id, figi, ticker, quantity, available_quantity, annual_yield,
		expected_cost, actual_cost, benefit, days_to_maturity, purchased_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (purchase_id) DO NOTHING`

// RecordPurchase appends a purchase to the journal.
func (r *Repository) RecordPurchase(ctx context.Context, purchase *domain.Purchase) error {
	if purchase == nil {
		return ErrNilPurchase
	}
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, insertPurchaseQuery, purchaseArgs(purchase)...)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// RecordPurchases appends purchases in one round trip. Purchases already in
// the journal are skipped, so redelivered events are harmless.
func (r *Repository) RecordPurchases(ctx context.Context, purchases []domain.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range purchases {
		if purchases[i].ID == uuid.Nil {
			purchases[i].ID = uuid.New()
		}
		batch.Queue(insertPurchaseQuery, purchaseArgs(&purchases[i])...)
	}
	return execBatch(ctx, r.pool, batch)
}

// LastPurchases returns up to limit purchases, newest first.
func (r *Repository) LastPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	const query = `
		SELECT purchase_id, figi, ticker, quantity, available_quantity, annual_yield,
			expected_cost, actual_cost, benefit, days_to_maturity, purchased_at
		FROM purchases
		ORDER BY purchased_at DESC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var out []domain.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func execBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch) error {
	results := pool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert purchase batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close purchase batch: %w", err)
	}
	return nil
}

func purchaseArgs(p *domain.Purchase) []any {
	return []any{
		p.ID,
		p.Figi,
		p.Ticker,
		p.Quantity,
		p.AvailableQuantity,
		p.AnnualYield,
		p.ExpectedCost,
		p.ActualCost,
		p.Benefit,
		p.DaysToMaturity,
		p.PurchasedAt,
	}
}

func scanPurchase(row pgx.Row) (domain.Purchase, error) {
	p := domain.Purchase{}
	err := row.Scan(
		&p.ID,
		&p.Figi,
		&p.Ticker,
		&p.Quantity,
		&p.AvailableQuantity,
		&p.AnnualYield,
		&p.ExpectedCost,
		&p.ActualCost,
		&p.Benefit,
		&p.DaysToMaturity,
		&p.PurchasedAt,
	)
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("scan purchase: %w", err)
	}
	p.PurchasedAt = p.PurchasedAt.UTC()
	return p, nil
}
