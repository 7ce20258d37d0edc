package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"merchant-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// RateRepo implements ports.RateRepository over the append-only
// fx_rate_snapshots table. Rates are stored at full precision.
type RateRepo struct {
	pool Pool
}

// NewRateRepo creates a new RateRepo.
func NewRateRepo(pool Pool) *RateRepo {
	return &RateRepo{pool: pool}
}

const snapshotColumns = `id, base_currency, quote_currency, rate::text, source, fetched_at, effective_from, effective_to`

func scanSnapshot(row pgx.Row) (*domain.FxRateSnapshot, error) {
	s := &domain.FxRateSnapshot{}
	var rate string
	err := row.Scan(
		&s.ID, &s.BaseCurrency, &s.QuoteCurrency, &rate,
		&s.Source, &s.FetchedAt, &s.EffectiveFrom, &s.EffectiveTo,
	)
	if err != nil {
		return nil, err
	}
	if s.Rate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("parse rate: %w", err)
	}
	return s, nil
}

// GetOpen returns the pair's currently active snapshot, or nil.
func (r *RateRepo) GetOpen(ctx context.Context, base, quote string) (*domain.FxRateSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM fx_rate_snapshots
		WHERE base_currency = $1 AND quote_currency = $2 AND effective_to IS NULL`

	s, err := scanSnapshot(r.pool.QueryRow(ctx, query, base, quote))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open snapshot: %w", err)
	}
	return s, nil
}

// GetAt returns the snapshot whose validity window contains the given
// instant, or nil.
func (r *RateRepo) GetAt(ctx context.Context, base, quote string, at time.Time) (*domain.FxRateSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM fx_rate_snapshots
		WHERE base_currency = $1 AND quote_currency = $2
		  AND effective_from <= $3
		  AND (effective_to IS NULL OR effective_to > $3)`

	s, err := scanSnapshot(r.pool.QueryRow(ctx, query, base, quote, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot at date: %w", err)
	}
	return s, nil
}

// GetOpenForUpdate locks the pair's open snapshot so close + insert
// cannot interleave with a concurrent snapshot of the same pair.
// This MUST be called within a transaction.
func (r *RateRepo) GetOpenForUpdate(ctx context.Context, tx pgx.Tx, base, quote string) (*domain.FxRateSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM fx_rate_snapshots
		WHERE base_currency = $1 AND quote_currency = $2 AND effective_to IS NULL
		FOR UPDATE`

	s, err := scanSnapshot(tx.QueryRow(ctx, query, base, quote))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open snapshot for update: %w", err)
	}
	return s, nil
}

// Close sets a snapshot's effective_to, ending its validity window.
func (r *RateRepo) Close(ctx context.Context, tx pgx.Tx, id uuid.UUID, closedAt time.Time) error {
	query := `UPDATE fx_rate_snapshots SET effective_to = $1 WHERE id = $2 AND effective_to IS NULL`

	tag, err := tx.Exec(ctx, query, closedAt, id)
	if err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open snapshot not found: %s", id)
	}
	return nil
}

// Insert appends a new snapshot within the transaction.
func (r *RateRepo) Insert(ctx context.Context, tx pgx.Tx, s *domain.FxRateSnapshot) error {
	query := `INSERT INTO fx_rate_snapshots (id, base_currency, quote_currency, rate, source, fetched_at, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		s.ID, s.BaseCurrency, s.QuoteCurrency, s.Rate.String(),
		s.Source, s.FetchedAt, s.EffectiveFrom, s.EffectiveTo,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
