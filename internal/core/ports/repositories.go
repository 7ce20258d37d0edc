package ports

import (
	"context"
	"time"

	"merchant-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MerchantRepository defines read/update access to the externally
// owned merchant entities this system consumes.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	ListActive(ctx context.Context) ([]domain.Merchant, error)
	Update(ctx context.Context, merchant *domain.Merchant) error
}

// BalanceRepository defines persistence operations for merchant
// balances. Methods accepting pgx.Tx run inside transaction blocks
// for pessimistic locking; the balance row is the unit of locking.
type BalanceRepository interface {
	Create(ctx context.Context, tx pgx.Tx, balance *domain.Balance) error
	GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.Balance, error)
	GetByMerchantIDForUpdate(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID) (*domain.Balance, error)
	UpdateBuckets(ctx context.Context, tx pgx.Tx, balanceID uuid.UUID, reserve, available, pending decimal.Decimal) error
}

// RateRepository defines persistence for the append-only FX rate
// snapshot timeline. Close + insert for a pair must share one
// transaction so a concurrent reader never sees zero or two open
// snapshots.
type RateRepository interface {
	GetOpen(ctx context.Context, base, quote string) (*domain.FxRateSnapshot, error)
	GetAt(ctx context.Context, base, quote string, at time.Time) (*domain.FxRateSnapshot, error)
	GetOpenForUpdate(ctx context.Context, tx pgx.Tx, base, quote string) (*domain.FxRateSnapshot, error)
	Close(ctx context.Context, tx pgx.Tx, id uuid.UUID, closedAt time.Time) error
	Insert(ctx context.Context, tx pgx.Tx, snapshot *domain.FxRateSnapshot) error
}

// SettingsRepository defines persistence for keyed settings.
// Update relies on the store's native update-if-exists semantics.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*domain.Setting, error)
	List(ctx context.Context) ([]domain.Setting, error)
	InsertIfAbsent(ctx context.Context, setting *domain.Setting) error
	Update(ctx context.Context, key, value, updatedBy string) (bool, error)
}

// AdjustmentRepository persists the append-only adjustment audit trail.
type AdjustmentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, adj *domain.BalanceAdjustment) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]domain.BalanceAdjustment, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
