package ports

import (
	"context"
	"time"

	"merchant-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateStore answers "what is the rate now" and "what was the rate at
// time T" against the versioned snapshot timeline.
type RateStore interface {
	GetCurrentRate(ctx context.Context, base, quote string) (decimal.Decimal, error)
	GetRateAtDate(ctx context.Context, base, quote string, at time.Time) (decimal.Decimal, error)
	SnapshotRate(ctx context.Context, base, quote string, rate decimal.Decimal, source domain.RateSource) (*domain.FxRateSnapshot, error)
}

// Conversion is the result of an FX conversion.
type Conversion struct {
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	EffectiveRate   decimal.Decimal `json:"effective_rate"`
}

// FxConverter turns (amount, from, to, spread?) into a converted
// amount with a spread-adjusted rate. Spread is applied as a discount
// on the raw rate so conversion is always in the platform's favor
// regardless of direction.
type FxConverter interface {
	EffectiveRate(ctx context.Context, base, quote string, spreadPercent *decimal.Decimal) (decimal.Decimal, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, spreadPercent *decimal.Decimal) (*Conversion, error)
}

// AdjustmentDeltas carries optional per-bucket deltas for an admin
// adjustment. At least one must be non-nil.
type AdjustmentDeltas struct {
	Reserve   *decimal.Decimal `json:"reserve,omitempty"`
	Available *decimal.Decimal `json:"available,omitempty"`
	Pending   *decimal.Decimal `json:"pending,omitempty"`
}

// IsEmpty reports whether no delta was supplied.
func (d AdjustmentDeltas) IsEmpty() bool {
	return d.Reserve == nil && d.Available == nil && d.Pending == nil
}

// BalanceLedger owns the three-bucket balance per merchant and every
// transition between buckets. Each mutation is one atomic transaction
// against the balance record.
type BalanceLedger interface {
	EnsureExists(ctx context.Context, merchantID uuid.UUID) (*domain.Balance, error)
	Get(ctx context.Context, merchantID uuid.UUID) (*domain.Balance, error)
	CreditReserve(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal, currency, ref string) (*domain.Balance, error)
	ReleaseReserve(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal, ref string) (*domain.Balance, error)
	DebitAvailable(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal, ref string) (*domain.Balance, error)
	Refund(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal, currency, ref string) (*domain.Balance, error)
	AdminAdjust(ctx context.Context, merchantID uuid.UUID, deltas AdjustmentDeltas, reason, adminID string) (*domain.Balance, error)
}

// SettingsRegistry is the process-wide typed configuration store.
// Set only succeeds for keys seeded by InitDefaults.
type SettingsRegistry interface {
	InitDefaults(ctx context.Context) error
	Get(ctx context.Context, key string) (*domain.Setting, error)
	List(ctx context.Context) ([]domain.Setting, error)
	Set(ctx context.Context, key, value, updatedBy string) error
	DefaultSpreadPercent(ctx context.Context) (decimal.Decimal, error)
	AllowedCurrencies(ctx context.Context) ([]string, error)
}

// AdminAuth authenticates back-office console operators.
type AdminAuth interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}

// OnboardMerchantRequest carries the fields needed to register a
// merchant profile with this system.
type OnboardMerchantRequest struct {
	LegalName            string `json:"legal_name"`
	Country              string `json:"country"`
	SellsInternationally bool   `json:"sells_internationally"`
	VerificationDoc      string `json:"verification_doc,omitempty"`
}

// MerchantOnboarding registers merchant profiles and derives their
// currency configuration.
type MerchantOnboarding interface {
	Onboard(ctx context.Context, req OnboardMerchantRequest) (*domain.Merchant, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	SetSpread(ctx context.Context, id uuid.UUID, spreadPercent *decimal.Decimal) (*domain.Merchant, error)
}

// EncryptionService handles AES-256-GCM encryption/decryption for
// sensitive merchant fields (verification document numbers).
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HashService handles password hashing (Argon2id) for the admin
// console.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for admin-console auth.
type TokenService interface {
	Generate(adminID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AdminID string
}

// RateCache is a short-TTL read-through cache over current rates.
type RateCache interface {
	Get(ctx context.Context, base, quote string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, base, quote string, rate decimal.Decimal, ttl time.Duration) error
	Invalidate(ctx context.Context, base, quote string) error
}

// SweepLock prevents overlapping scheduled sweeps across instances.
type SweepLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// SweepReport aggregates one scheduled release run.
type SweepReport struct {
	MerchantsProcessed int             `json:"merchants_processed"`
	MerchantsFailed    int             `json:"merchants_failed"`
	TotalReleased      decimal.Decimal `json:"total_released"`
	StartedAt          time.Time       `json:"started_at"`
	FinishedAt         time.Time       `json:"finished_at"`
}
