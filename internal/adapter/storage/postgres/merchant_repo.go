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

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

const merchantColumns = `id, legal_name, country, status, dashboard_currency, payout_currency, fx_spread_percent::text, sells_internationally, verification_doc_enc, created_at, updated_at`

func scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	var spread *string
	err := row.Scan(
		&m.ID, &m.LegalName, &m.Country, &m.Status,
		&m.DashboardCurrency, &m.PayoutCurrency, &spread,
		&m.SellsInternationally, &m.VerificationDocEnc,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if spread != nil {
		d, err := decimal.NewFromString(*spread)
		if err != nil {
			return nil, fmt.Errorf("parse fx spread: %w", err)
		}
		m.FxSpreadPercent = &d
	}
	return m, nil
}

// Create inserts a new merchant.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (id, legal_name, country, status, dashboard_currency, payout_currency, fx_spread_percent, sells_internationally, verification_doc_enc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var spread *string
	if m.FxSpreadPercent != nil {
		s := m.FxSpreadPercent.String()
		spread = &s
	}

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.LegalName, m.Country, m.Status,
		m.DashboardCurrency, m.PayoutCurrency, spread,
		m.SellsInternationally, m.VerificationDocEnc,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by its UUID.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`

	m, err := scanMerchant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by id: %w", err)
	}
	return m, nil
}

// ListActive returns all merchants in ACTIVE status, the population
// the scheduled reserve release sweeps.
func (r *MerchantRepo) ListActive(ctx context.Context) ([]domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE status = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, domain.MerchantStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active merchants: %w", err)
	}
	defer rows.Close()

	var merchants []domain.Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		merchants = append(merchants, *m)
	}
	return merchants, rows.Err()
}

// Update persists merchant profile changes.
func (r *MerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	query := `UPDATE merchants SET legal_name = $1, country = $2, status = $3, dashboard_currency = $4, payout_currency = $5, fx_spread_percent = $6, sells_internationally = $7, verification_doc_enc = $8, updated_at = NOW()
		WHERE id = $9`

	var spread *string
	if m.FxSpreadPercent != nil {
		s := m.FxSpreadPercent.String()
		spread = &s
	}

	tag, err := r.pool.Exec(ctx, query,
		m.LegalName, m.Country, m.Status,
		m.DashboardCurrency, m.PayoutCurrency, spread,
		m.SellsInternationally, m.VerificationDocEnc, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update merchant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant not found: %s", m.ID)
	}
	return nil
}
