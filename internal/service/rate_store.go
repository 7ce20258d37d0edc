package service

import (
	"context"
	"fmt"
	"time"

	"merchant-backoffice/config"
	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateStoreImpl implements ports.RateStore over the append-only
// snapshot timeline, with an optional read-through cache on the
// current-rate path.
type RateStoreImpl struct {
	rateRepo   ports.RateRepository
	transactor ports.DBTransactor
	cache      ports.RateCache // nil = caching disabled
	cacheTTL   time.Duration
	log        zerolog.Logger

	// The one pair allowed to fall back to a configured rate while no
	// snapshot exists yet. Everything else fails hard.
	bootstrapBase  string
	bootstrapQuote string
	bootstrapRate  *decimal.Decimal
}

// NewRateStore creates a new RateStoreImpl.
func NewRateStore(
	rateRepo ports.RateRepository,
	transactor ports.DBTransactor,
	cache ports.RateCache,
	cfg config.FxConfig,
	log zerolog.Logger,
) (*RateStoreImpl, error) {
	s := &RateStoreImpl{
		rateRepo:       rateRepo,
		transactor:     transactor,
		cache:          cache,
		cacheTTL:       cfg.RateCacheTTL,
		log:            log,
		bootstrapBase:  domain.NormalizeCurrency(cfg.BootstrapBase),
		bootstrapQuote: domain.NormalizeCurrency(cfg.BootstrapQuote),
	}
	if cfg.BootstrapRate != "" {
		rate, err := decimal.NewFromString(cfg.BootstrapRate)
		if err != nil {
			return nil, fmt.Errorf("parsing bootstrap rate: %w", err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("bootstrap rate must be positive, got %s", rate)
		}
		s.bootstrapRate = &rate
	}
	return s, nil
}

// GetCurrentRate returns the pair's active rate. Same-currency pairs
// short-circuit to 1 without a lookup.
func (s *RateStoreImpl) GetCurrentRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	base, quote = domain.NormalizePair(base, quote)
	if base == quote {
		return decimal.NewFromInt(1), nil
	}

	if s.cache != nil {
		rate, ok, err := s.cache.Get(ctx, base, quote)
		if err != nil {
			s.log.Warn().Err(err).Str("pair", base+"/"+quote).Msg("rate cache read failed, falling through to store")
		} else if ok {
			return rate, nil
		}
	}

	snap, err := s.rateRepo.GetOpen(ctx, base, quote)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get open snapshot: %w", err))
	}
	if snap == nil {
		if s.bootstrapRate != nil && base == s.bootstrapBase && quote == s.bootstrapQuote {
			// Bootstrap seam: keeps the designated pair convertible
			// until its first real snapshot lands.
			s.log.Debug().Str("pair", base+"/"+quote).Msg("serving configured bootstrap rate")
			return *s.bootstrapRate, nil
		}
		return decimal.Zero, apperror.ErrRateNotFound(base, quote)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, base, quote, snap.Rate, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("pair", base+"/"+quote).Msg("rate cache write failed")
		}
	}
	return snap.Rate, nil
}

// GetRateAtDate returns the rate whose validity window contained the
// given instant.
func (s *RateStoreImpl) GetRateAtDate(ctx context.Context, base, quote string, at time.Time) (decimal.Decimal, error) {
	base, quote = domain.NormalizePair(base, quote)
	if base == quote {
		return decimal.NewFromInt(1), nil
	}

	snap, err := s.rateRepo.GetAt(ctx, base, quote, at)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get snapshot at date: %w", err))
	}
	if snap == nil {
		return decimal.Zero, apperror.ErrRateNotFound(base, quote)
	}
	return snap.Rate, nil
}

// SnapshotRate closes any open snapshot for the pair and inserts the
// new open one in a single transaction, so a concurrent reader never
// observes zero or two open snapshots.
func (s *RateStoreImpl) SnapshotRate(ctx context.Context, base, quote string, rate decimal.Decimal, source domain.RateSource) (*domain.FxRateSnapshot, error) {
	base, quote = domain.NormalizePair(base, quote)
	if !rate.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	open, err := s.rateRepo.GetOpenForUpdate(ctx, dbTx, base, quote)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock open snapshot: %w", err))
	}
	if open != nil {
		if err := s.rateRepo.Close(ctx, dbTx, open.ID, now); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("close snapshot: %w", err))
		}
	}

	snap := &domain.FxRateSnapshot{
		ID:            uuid.New(),
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Rate:          rate,
		Source:        source,
		FetchedAt:     now,
		EffectiveFrom: now,
	}
	if err := s.rateRepo.Insert(ctx, dbTx, snap); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("insert snapshot: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, base, quote); err != nil {
			s.log.Warn().Err(err).Str("pair", base+"/"+quote).Msg("rate cache invalidation failed")
		}
	}

	s.log.Info().
		Str("pair", base+"/"+quote).
		Str("rate", rate.String()).
		Str("source", string(source)).
		Msg("rate snapshot recorded")

	return snap, nil
}
