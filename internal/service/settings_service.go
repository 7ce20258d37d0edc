package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	spreadMin = decimal.Zero
	spreadMax = decimal.NewFromInt(10)
)

// SettingsRegistryImpl implements ports.SettingsRegistry. Settings
// are read-mostly, so reads go through an in-process cache guarded by
// a RWMutex; the cache is the only shared in-process state between
// request handlers.
type SettingsRegistryImpl struct {
	repo ports.SettingsRepository
	log  zerolog.Logger

	mu    sync.RWMutex
	cache map[string]domain.Setting
}

// NewSettingsRegistry creates a new SettingsRegistryImpl.
func NewSettingsRegistry(repo ports.SettingsRepository, log zerolog.Logger) *SettingsRegistryImpl {
	return &SettingsRegistryImpl{
		repo:  repo,
		log:   log,
		cache: make(map[string]domain.Setting),
	}
}

// seededKeys is the fixed set of keys the setter accepts; ad-hoc key
// creation through Set is not allowed.
func seededKeys() map[string]struct{} {
	keys := make(map[string]struct{})
	for _, s := range domain.DefaultSettings() {
		keys[s.Key] = struct{}{}
	}
	return keys
}

// InitDefaults idempotently seeds the fixed settings list, leaving
// existing values untouched. Safe to call on every process start.
func (s *SettingsRegistryImpl) InitDefaults(ctx context.Context) error {
	for _, def := range domain.DefaultSettings() {
		def := def
		if err := s.repo.InsertIfAbsent(ctx, &def); err != nil {
			return apperror.InternalError(fmt.Errorf("seed setting %s: %w", def.Key, err))
		}
	}

	// Warm the cache with whatever is persisted now.
	settings, err := s.repo.List(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load settings: %w", err))
	}

	s.mu.Lock()
	for _, st := range settings {
		s.cache[st.Key] = st
	}
	s.mu.Unlock()

	s.log.Info().Int("count", len(settings)).Msg("settings seeded")
	return nil
}

// Get returns a setting by key, or nil when absent.
func (s *SettingsRegistryImpl) Get(ctx context.Context, key string) (*domain.Setting, error) {
	s.mu.RLock()
	if st, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return &st, nil
	}
	s.mu.RUnlock()

	st, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get setting: %w", err))
	}
	if st == nil {
		return nil, nil
	}

	s.mu.Lock()
	s.cache[st.Key] = *st
	s.mu.Unlock()
	return st, nil
}

// List returns every persisted setting.
func (s *SettingsRegistryImpl) List(ctx context.Context) ([]domain.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list settings: %w", err))
	}
	return settings, nil
}

// Set updates a seeded key's value. Spread writes are bounded to
// [0, 10] here, at the admin boundary, so the converter never has to
// re-validate.
func (s *SettingsRegistryImpl) Set(ctx context.Context, key, value, updatedBy string) error {
	if _, ok := seededKeys()[key]; !ok {
		return apperror.ErrUnknownSetting(key)
	}

	if key == domain.SettingDefaultSpreadPercent {
		spread, err := decimal.NewFromString(value)
		if err != nil || spread.LessThan(spreadMin) || spread.GreaterThan(spreadMax) {
			return apperror.ErrInvalidSpread()
		}
	}

	updated, err := s.repo.Update(ctx, key, value, updatedBy)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("update setting: %w", err))
	}
	if !updated {
		return apperror.ErrUnknownSetting(key)
	}

	s.mu.Lock()
	if st, ok := s.cache[key]; ok {
		st.Value = value
		st.UpdatedBy = updatedBy
		s.cache[key] = st
	} else {
		delete(s.cache, key)
	}
	s.mu.Unlock()

	s.log.Info().Str("key", key).Str("updated_by", updatedBy).Msg("setting updated")
	return nil
}

// DefaultSpreadPercent returns the global FX spread applied when a
// merchant has no spread of its own.
func (s *SettingsRegistryImpl) DefaultSpreadPercent(ctx context.Context) (decimal.Decimal, error) {
	st, err := s.Get(ctx, domain.SettingDefaultSpreadPercent)
	if err != nil {
		return decimal.Zero, err
	}
	if st == nil {
		return decimal.Zero, nil
	}
	spread, err := decimal.NewFromString(st.Value)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("parse default spread: %w", err))
	}
	return spread, nil
}

// AllowedCurrencies returns the normalized currency allow-list. An
// absent or empty setting returns nil, meaning every currency is
// accepted.
func (s *SettingsRegistryImpl) AllowedCurrencies(ctx context.Context) ([]string, error) {
	st, err := s.Get(ctx, domain.SettingAllowedCurrencies)
	if err != nil {
		return nil, err
	}
	if st == nil || strings.TrimSpace(st.Value) == "" {
		return nil, nil
	}

	var currencies []string
	for _, raw := range strings.Split(st.Value, ",") {
		if c := domain.NormalizeCurrency(raw); c != "" {
			currencies = append(currencies, c)
		}
	}
	return currencies, nil
}
