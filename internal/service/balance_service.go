package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	maxConflictRetries  = 3
	conflictRetryDelay  = 25 * time.Millisecond
	systemActor         = "system"
	refundClampedReason = "refund exceeded funds, available clamped to zero"
)

// BalanceLedgerImpl implements ports.BalanceLedger. Every mutation
// runs in one transaction with the balance row locked FOR UPDATE, so
// concurrent mutations on the same merchant serialize instead of
// losing updates. Serialization conflicts retry a bounded number of
// times before surfacing.
type BalanceLedgerImpl struct {
	merchantRepo ports.MerchantRepository
	balanceRepo  ports.BalanceRepository
	adjRepo      ports.AdjustmentRepository
	fx           ports.FxConverter
	settings     ports.SettingsRegistry
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewBalanceLedger creates a new BalanceLedgerImpl.
func NewBalanceLedger(
	merchantRepo ports.MerchantRepository,
	balanceRepo ports.BalanceRepository,
	adjRepo ports.AdjustmentRepository,
	fx ports.FxConverter,
	settings ports.SettingsRegistry,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *BalanceLedgerImpl {
	return &BalanceLedgerImpl{
		merchantRepo: merchantRepo,
		balanceRepo:  balanceRepo,
		adjRepo:      adjRepo,
		fx:           fx,
		settings:     settings,
		transactor:   transactor,
		log:          log,
	}
}

// checkCurrencyAllowed rejects currencies outside the configured
// allow-list. An unreadable or empty list degrades open so a settings
// outage never blocks money movement.
func (s *BalanceLedgerImpl) checkCurrencyAllowed(ctx context.Context, currency string) error {
	allowed, err := s.settings.AllowedCurrencies(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("allowed-currencies lookup failed, accepting currency")
		return nil
	}
	if len(allowed) == 0 {
		return nil
	}

	code := domain.NormalizeCurrency(currency)
	for _, c := range allowed {
		if c == code {
			return nil
		}
	}
	return apperror.Validation(fmt.Sprintf("currency %s is not allowed", code))
}

// EnsureExists lazily creates a zeroed balance in the merchant's
// dashboard currency. Idempotent: concurrent callers converge on a
// single row.
func (s *BalanceLedgerImpl) EnsureExists(ctx context.Context, merchantID uuid.UUID) (*domain.Balance, error) {
	balance, err := s.balanceRepo.GetByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get balance: %w", err))
	}
	if balance != nil {
		return balance, nil
	}

	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	fresh := domain.NewBalance(merchantID, merchant.DashboardCurrency)
	if err := s.balanceRepo.Create(ctx, dbTx, fresh); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create balance: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Re-read rather than returning fresh: a concurrent creator may
	// have won the insert race.
	balance, err = s.balanceRepo.GetByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reread balance: %w", err))
	}
	if balance == nil {
		return nil, apperror.InternalError(fmt.Errorf("balance vanished after create: %s", merchantID))
	}
	return balance, nil
}

// Get returns the merchant's balance, creating it on first access.
func (s *BalanceLedgerImpl) Get(ctx context.Context, merchantID uuid.UUID) (*domain.Balance, error) {
	return s.EnsureExists(ctx, merchantID)
}

// CreditReserve converts the amount into the dashboard currency when
// needed and adds it to the reserve bucket.
func (s *BalanceLedgerImpl) CreditReserve(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal, currency, ref string) (*domain.Balance, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := s.checkCurrencyAllowed(ctx, currency); err != nil {
		return nil, err
	}

	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}

	return s.mutate(ctx, merchantID, func(dbTx pgx.Tx, b *domain.Balance) error {
		credited := amount
		if domain.NormalizeCurrency(currency) != b.Currency {
			conv, err := s.fx.Convert(ctx, amount, currency, b.Currency, merchant.FxSpreadPercent)
			if err != nil {
				return err
			}
			credited = conv.ConvertedAmount
		}

		b.Reserve = domain.RoundMoney(b.Reserve.Add(credited))
		if err := s.balanceRepo.UpdateBuckets(ctx, dbTx, b.ID, b.Reserve, b.Available, b.Pending); err != nil {
			return apperror.InternalError(fmt.Errorf("update buckets: %w", err))
		}

		s.log.Info().
			Str("merchant_id", merchantID.String()).
			Str("amount", credited.String()).
			Str("currency", b.Currency).
			Str("ref", ref).
			Msg("reserve credited")
		return nil
	})
}

// ReleaseReserve moves funds reserve -> available. Reserve + available
// is conserved.
func (s *BalanceLedgerImpl) ReleaseReserve(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal, ref string) (*domain.Balance, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	return s.mutate(ctx, merchantID, func(dbTx pgx.Tx, b *domain.Balance) error {
		if b.Reserve.LessThan(amount) {
			return apperror.ErrInsufficientReserve()
		}

		b.Reserve = domain.RoundMoney(b.Reserve.Sub(amount))
		b.Available = domain.RoundMoney(b.Available.Add(amount))
		if err := s.balanceRepo.UpdateBuckets(ctx, dbTx, b.ID, b.Reserve, b.Available, b.Pending); err != nil {
			return apperror.InternalError(fmt.Errorf("update buckets: %w", err))
		}

		s.log.Info().
			Str("merchant_id", merchantID.String()).
			Str("amount", amount.String()).
			Str("ref", ref).
			Msg("reserve released to available")
		return nil
	})
}

// DebitAvailable removes funds from the available bucket.
func (s *BalanceLedgerImpl) DebitAvailable(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal, ref string) (*domain.Balance, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	return s.mutate(ctx, merchantID, func(dbTx pgx.Tx, b *domain.Balance) error {
		if b.Available.LessThan(amount) {
			return apperror.ErrInsufficientAvailable()
		}

		b.Available = domain.RoundMoney(b.Available.Sub(amount))
		if err := s.balanceRepo.UpdateBuckets(ctx, dbTx, b.ID, b.Reserve, b.Available, b.Pending); err != nil {
			return apperror.InternalError(fmt.Errorf("update buckets: %w", err))
		}

		s.log.Info().
			Str("merchant_id", merchantID.String()).
			Str("amount", amount.String()).
			Str("ref", ref).
			Msg("available debited")
		return nil
	})
}

// Refund deducts reserve first, then available. Refunds are triggered
// externally (chargebacks, disputes) and must never be rejected here:
// a shortfall clamps available to zero and records a negative-balance
// adjustment for out-of-band reconciliation instead of failing.
func (s *BalanceLedgerImpl) Refund(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal, currency, ref string) (*domain.Balance, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}

	return s.mutate(ctx, merchantID, func(dbTx pgx.Tx, b *domain.Balance) error {
		debit := amount
		if domain.NormalizeCurrency(currency) != b.Currency {
			conv, err := s.fx.Convert(ctx, amount, currency, b.Currency, merchant.FxSpreadPercent)
			if err != nil {
				return err
			}
			debit = conv.ConvertedAmount
		}

		fromReserve := decimal.Min(b.Reserve, debit)
		remainder := debit.Sub(fromReserve)

		b.Reserve = domain.RoundMoney(b.Reserve.Sub(fromReserve))
		newAvailable := b.Available.Sub(remainder)
		clamped := newAvailable.IsNegative()
		prevAvailable := b.Available
		b.Available = domain.RoundMoney(domain.ClampNonNegative(newAvailable))

		if err := s.balanceRepo.UpdateBuckets(ctx, dbTx, b.ID, b.Reserve, b.Available, b.Pending); err != nil {
			return apperror.InternalError(fmt.Errorf("update buckets: %w", err))
		}

		if clamped {
			shortfall := newAvailable.Neg()
			reserveDelta := fromReserve.Neg()
			availableDelta := prevAvailable.Neg()
			adj := &domain.BalanceAdjustment{
				ID:              uuid.New(),
				MerchantID:      merchantID,
				ReserveDelta:    &reserveDelta,
				AvailableDelta:  &availableDelta,
				Reason:          refundClampedReason,
				AdjustedBy:      systemActor,
				Reference:       ref,
				NegativeBalance: true,
				CreatedAt:       time.Now().UTC(),
			}
			if err := s.adjRepo.Create(ctx, dbTx, adj); err != nil {
				return apperror.InternalError(fmt.Errorf("record clamp adjustment: %w", err))
			}

			s.log.Warn().
				Str("merchant_id", merchantID.String()).
				Str("refund_amount", debit.String()).
				Str("shortfall", shortfall.String()).
				Str("ref", ref).
				Msg("refund exceeded funds, available clamped to zero")
		} else {
			s.log.Info().
				Str("merchant_id", merchantID.String()).
				Str("amount", debit.String()).
				Str("ref", ref).
				Msg("refund applied")
		}
		return nil
	})
}

// AdminAdjust applies per-bucket deltas, clamping each bucket at
// zero, and records the adjustment in the audit trail atomically with
// the mutation.
func (s *BalanceLedgerImpl) AdminAdjust(ctx context.Context, merchantID uuid.UUID, deltas ports.AdjustmentDeltas, reason, adminID string) (*domain.Balance, error) {
	if deltas.IsEmpty() {
		return nil, apperror.ErrInvalidAdjustment()
	}

	return s.mutate(ctx, merchantID, func(dbTx pgx.Tx, b *domain.Balance) error {
		if deltas.Reserve != nil {
			b.Reserve = domain.RoundMoney(domain.ClampNonNegative(b.Reserve.Add(*deltas.Reserve)))
		}
		if deltas.Available != nil {
			b.Available = domain.RoundMoney(domain.ClampNonNegative(b.Available.Add(*deltas.Available)))
		}
		if deltas.Pending != nil {
			b.Pending = domain.RoundMoney(domain.ClampNonNegative(b.Pending.Add(*deltas.Pending)))
		}

		if err := s.balanceRepo.UpdateBuckets(ctx, dbTx, b.ID, b.Reserve, b.Available, b.Pending); err != nil {
			return apperror.InternalError(fmt.Errorf("update buckets: %w", err))
		}

		adj := &domain.BalanceAdjustment{
			ID:             uuid.New(),
			MerchantID:     merchantID,
			ReserveDelta:   deltas.Reserve,
			AvailableDelta: deltas.Available,
			PendingDelta:   deltas.Pending,
			Reason:         reason,
			AdjustedBy:     adminID,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.adjRepo.Create(ctx, dbTx, adj); err != nil {
			return apperror.InternalError(fmt.Errorf("record adjustment: %w", err))
		}

		s.log.Info().
			Str("merchant_id", merchantID.String()).
			Str("admin_id", adminID).
			Str("reason", reason).
			Msg("admin adjustment applied")
		return nil
	})
}

// mutate runs fn inside a transaction holding the merchant's balance
// row lock, retrying the whole transaction on serialization conflicts.
// Either everything commits or nothing does.
func (s *BalanceLedgerImpl) mutate(ctx context.Context, merchantID uuid.UUID, fn func(dbTx pgx.Tx, b *domain.Balance) error) (*domain.Balance, error) {
	if _, err := s.EnsureExists(ctx, merchantID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperror.InternalError(ctx.Err())
			case <-time.After(conflictRetryDelay * time.Duration(attempt)):
			}
		}

		balance, err := s.mutateOnce(ctx, merchantID, fn)
		if err == nil {
			return balance, nil
		}
		if !isRetryableConflict(err) {
			return nil, err
		}
		lastErr = err
		s.log.Warn().
			Err(err).
			Str("merchant_id", merchantID.String()).
			Int("attempt", attempt+1).
			Msg("balance transaction conflict, retrying")
	}
	return nil, apperror.ErrConflictRetryable(lastErr)
}

func (s *BalanceLedgerImpl) mutateOnce(ctx context.Context, merchantID uuid.UUID, fn func(dbTx pgx.Tx, b *domain.Balance) error) (*domain.Balance, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	balance, err := s.balanceRepo.GetByMerchantIDForUpdate(ctx, dbTx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if balance == nil {
		return nil, apperror.ErrNotFound("balance")
	}

	if err := fn(dbTx, balance); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return balance, nil
}

// isRetryableConflict reports whether err is a PostgreSQL
// serialization failure or deadlock, i.e. safe to retry whole.
func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
