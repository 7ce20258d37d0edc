package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"merchant-backoffice/config"
	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const releaseReference = "scheduled-release"

// ReserveReleaseScheduler runs the daily sweep that moves matured
// reserve funds to available for every active merchant. A distributed
// lock keeps concurrent instances from double-releasing; per-merchant
// failures are logged and skipped so one bad row never blocks the
// whole sweep.
type ReserveReleaseScheduler struct {
	merchantRepo ports.MerchantRepository
	ledger       ports.BalanceLedger
	settings     ports.SettingsRegistry
	lock         ports.SweepLock
	cfg          config.SchedulerConfig
	log          zerolog.Logger
	trigger      chan chan ports.SweepReport
	running      atomic.Bool
}

// NewReserveReleaseScheduler creates a new ReserveReleaseScheduler.
func NewReserveReleaseScheduler(
	merchantRepo ports.MerchantRepository,
	ledger ports.BalanceLedger,
	settings ports.SettingsRegistry,
	lock ports.SweepLock,
	cfg config.SchedulerConfig,
	log zerolog.Logger,
) *ReserveReleaseScheduler {
	return &ReserveReleaseScheduler{
		merchantRepo: merchantRepo,
		ledger:       ledger,
		settings:     settings,
		lock:         lock,
		cfg:          cfg,
		log:          log,
		trigger:      make(chan chan ports.SweepReport),
	}
}

// Start blocks until ctx is cancelled, firing the sweep at the
// configured time-of-day (UTC) and on manual triggers. Call it in its
// own goroutine.
func (s *ReserveReleaseScheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info().Msg("reserve release scheduler disabled")
		return
	}

	s.log.Info().
		Str("release_time", s.cfg.ReleaseTime).
		Msg("reserve release scheduler started")

	s.running.Store(true)
	defer s.running.Store(false)

	for {
		wait := s.untilNextRun(time.Now().UTC())
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info().Msg("reserve release scheduler stopped")
			return
		case <-timer.C:
			s.RunOnce(ctx)
		case reply := <-s.trigger:
			timer.Stop()
			reply <- s.RunOnce(ctx)
		}
	}
}

// TriggerNow requests an immediate sweep and waits for its report.
// Used by the admin console. When the timer loop is not running
// (scheduler disabled, or not yet started) the sweep runs inline; the
// distributed lock still guards against overlapping runs either way.
func (s *ReserveReleaseScheduler) TriggerNow(ctx context.Context) (ports.SweepReport, error) {
	if !s.running.Load() {
		return s.RunOnce(ctx), nil
	}

	reply := make(chan ports.SweepReport, 1)
	select {
	case s.trigger <- reply:
	case <-ctx.Done():
		return ports.SweepReport{}, ctx.Err()
	}
	select {
	case report := <-reply:
		return report, nil
	case <-ctx.Done():
		return ports.SweepReport{}, ctx.Err()
	}
}

// RunOnce performs a single sweep under the distributed lock. If
// another instance holds the lock the run is skipped with an empty
// report.
func (s *ReserveReleaseScheduler) RunOnce(ctx context.Context) ports.SweepReport {
	report := ports.SweepReport{
		StartedAt:     time.Now().UTC(),
		TotalReleased: decimal.Zero,
	}

	acquired, err := s.lock.Acquire(ctx, s.cfg.LockTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to acquire sweep lock")
		report.FinishedAt = time.Now().UTC()
		return report
	}
	if !acquired {
		s.log.Info().Msg("sweep lock held elsewhere, skipping run")
		report.FinishedAt = time.Now().UTC()
		return report
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to release sweep lock")
		}
	}()

	releaseCap, err := s.releaseCap(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load release cap, aborting sweep")
		report.FinishedAt = time.Now().UTC()
		return report
	}

	merchants, err := s.merchantRepo.ListActive(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list active merchants, aborting sweep")
		report.FinishedAt = time.Now().UTC()
		return report
	}

	for i := range merchants {
		released, err := s.sweepMerchant(ctx, &merchants[i], releaseCap)
		if err != nil {
			report.MerchantsFailed++
			s.log.Error().
				Err(err).
				Str("merchant_id", merchants[i].ID.String()).
				Msg("reserve release failed for merchant")
			continue
		}
		report.MerchantsProcessed++
		report.TotalReleased = report.TotalReleased.Add(released)
	}

	report.FinishedAt = time.Now().UTC()
	s.log.Info().
		Int("processed", report.MerchantsProcessed).
		Int("failed", report.MerchantsFailed).
		Str("total_released", report.TotalReleased.String()).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("reserve release sweep finished")
	return report
}

// sweepMerchant releases min(reserve, releaseCap) for one merchant.
// A zero reserve is a no-op, not an error.
func (s *ReserveReleaseScheduler) sweepMerchant(ctx context.Context, merchant *domain.Merchant, releaseCap decimal.Decimal) (decimal.Decimal, error) {
	balance, err := s.ledger.Get(ctx, merchant.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}

	amount := decimal.Min(balance.Reserve, releaseCap)
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}

	if _, err := s.ledger.ReleaseReserve(ctx, merchant.ID, amount, releaseReference); err != nil {
		return decimal.Zero, fmt.Errorf("release reserve: %w", err)
	}
	return amount, nil
}

func (s *ReserveReleaseScheduler) releaseCap(ctx context.Context) (decimal.Decimal, error) {
	setting, err := s.settings.Get(ctx, domain.SettingReleaseCap)
	if err != nil {
		return decimal.Zero, err
	}
	if setting == nil {
		return decimal.Zero, fmt.Errorf("release cap setting %s not seeded", domain.SettingReleaseCap)
	}
	value, err := decimal.NewFromString(setting.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse release cap %q: %w", setting.Value, err)
	}
	return value, nil
}

// untilNextRun computes the wait until the next configured HH:MM in
// UTC. A malformed release time falls back to 24h.
func (s *ReserveReleaseScheduler) untilNextRun(now time.Time) time.Duration {
	hour, minute, err := parseClock(s.cfg.ReleaseTime)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("release_time", s.cfg.ReleaseTime).
			Msg("invalid release time, defaulting to 24h interval")
		return 24 * time.Hour
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func parseClock(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}
