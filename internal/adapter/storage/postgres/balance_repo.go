package postgres

import (
	"context"
	"errors"
	"fmt"

	"merchant-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepo implements ports.BalanceRepository.
// Bucket columns are NUMERIC; they travel as text so decimals never
// pass through float64.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

const balanceColumns = `id, merchant_id, currency, reserve::text, available::text, pending::text, created_at, updated_at`

func scanBalance(row pgx.Row) (*domain.Balance, error) {
	b := &domain.Balance{}
	var reserve, available, pending string
	err := row.Scan(
		&b.ID, &b.MerchantID, &b.Currency,
		&reserve, &available, &pending,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.Reserve, err = decimal.NewFromString(reserve); err != nil {
		return nil, fmt.Errorf("parse reserve: %w", err)
	}
	if b.Available, err = decimal.NewFromString(available); err != nil {
		return nil, fmt.Errorf("parse available: %w", err)
	}
	if b.Pending, err = decimal.NewFromString(pending); err != nil {
		return nil, fmt.Errorf("parse pending: %w", err)
	}
	return b, nil
}

// Create inserts a new balance row inside the given transaction.
// ON CONFLICT DO NOTHING keeps concurrent ensure-exists idempotent.
func (r *BalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	query := `INSERT INTO balances (id, merchant_id, currency, reserve, available, pending, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (merchant_id) DO NOTHING`

	_, err := tx.Exec(ctx, query,
		b.ID, b.MerchantID, b.Currency,
		b.Reserve.String(), b.Available.String(), b.Pending.String(),
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

// GetByMerchantID fetches a merchant's balance (non-locking read).
func (r *BalanceRepo) GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE merchant_id = $1`

	b, err := scanBalance(r.pool.QueryRow(ctx, query, merchantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance by merchant id: %w", err)
	}
	return b, nil
}

// GetByMerchantIDForUpdate fetches a merchant's balance with
// pessimistic locking. This MUST be called within a transaction.
func (r *BalanceRepo) GetByMerchantIDForUpdate(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID) (*domain.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE merchant_id = $1 FOR UPDATE`

	b, err := scanBalance(tx.QueryRow(ctx, query, merchantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// UpdateBuckets writes all three buckets within a transaction.
func (r *BalanceRepo) UpdateBuckets(ctx context.Context, tx pgx.Tx, balanceID uuid.UUID, reserve, available, pending decimal.Decimal) error {
	query := `UPDATE balances SET reserve = $1, available = $2, pending = $3, updated_at = NOW() WHERE id = $4`

	tag, err := tx.Exec(ctx, query, reserve.String(), available.String(), pending.String(), balanceID)
	if err != nil {
		return fmt.Errorf("update balance buckets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance not found: %s", balanceID)
	}
	return nil
}
