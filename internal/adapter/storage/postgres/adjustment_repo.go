package postgres

import (
	"context"
	"fmt"

	"merchant-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AdjustmentRepo implements ports.AdjustmentRepository over the
// append-only balance_adjustments audit table.
type AdjustmentRepo struct {
	pool Pool
}

// NewAdjustmentRepo creates a new AdjustmentRepo.
func NewAdjustmentRepo(pool Pool) *AdjustmentRepo {
	return &AdjustmentRepo{pool: pool}
}

func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

// Create appends an adjustment row inside the caller's transaction so
// the audit record commits atomically with the bucket mutation.
func (r *AdjustmentRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.BalanceAdjustment) error {
	query := `INSERT INTO balance_adjustments (id, merchant_id, reserve_delta, available_delta, pending_delta, reason, adjusted_by, reference, negative_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.MerchantID,
		decimalArg(a.ReserveDelta), decimalArg(a.AvailableDelta), decimalArg(a.PendingDelta),
		a.Reason, a.AdjustedBy, a.Reference, a.NegativeBalance, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	return nil
}

// ListByMerchant returns the most recent adjustments for a merchant.
func (r *AdjustmentRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]domain.BalanceAdjustment, error) {
	query := `SELECT id, merchant_id, reserve_delta::text, available_delta::text, pending_delta::text, reason, adjusted_by, reference, negative_balance, created_at
		FROM balance_adjustments WHERE merchant_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, merchantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []domain.BalanceAdjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		adjustments = append(adjustments, *a)
	}
	return adjustments, rows.Err()
}

func scanAdjustment(row pgx.Row) (*domain.BalanceAdjustment, error) {
	a := &domain.BalanceAdjustment{}
	var reserve, available, pending *string
	err := row.Scan(
		&a.ID, &a.MerchantID, &reserve, &available, &pending,
		&a.Reason, &a.AdjustedBy, &a.Reference, &a.NegativeBalance, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.ReserveDelta, err = parseOptionalDecimal(reserve); err != nil {
		return nil, err
	}
	if a.AvailableDelta, err = parseOptionalDecimal(available); err != nil {
		return nil, err
	}
	if a.PendingDelta, err = parseOptionalDecimal(pending); err != nil {
		return nil, err
	}
	return a, nil
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("parse delta: %w", err)
	}
	return &d, nil
}
