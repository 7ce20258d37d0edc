package postgres

import (
	"context"
	"errors"
	"fmt"

	"merchant-backoffice/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// SettingsRepo implements ports.SettingsRepository.
type SettingsRepo struct {
	pool Pool
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(pool Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

const settingColumns = `key, value, type, description, updated_by, updated_at`

// Get fetches a setting by key, or nil if absent.
func (r *SettingsRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM settings WHERE key = $1`

	s := &domain.Setting{}
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&s.Key, &s.Value, &s.Type, &s.Description, &s.UpdatedBy, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return s, nil
}

// List returns every setting.
func (r *SettingsRepo) List(ctx context.Context) ([]domain.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM settings ORDER BY key`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []domain.Setting
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Type, &s.Description, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// InsertIfAbsent seeds a setting only when the key does not exist,
// making startup seeding idempotent.
func (r *SettingsRepo) InsertIfAbsent(ctx context.Context, s *domain.Setting) error {
	query := `INSERT INTO settings (key, value, type, description, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, s.Key, s.Value, s.Type, s.Description, s.UpdatedBy, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("seed setting: %w", err)
	}
	return nil
}

// Update writes a value for an existing key. Returns false when the
// key was never seeded; settings cannot be created through the setter.
func (r *SettingsRepo) Update(ctx context.Context, key, value, updatedBy string) (bool, error) {
	query := `UPDATE settings SET value = $1, updated_by = $2, updated_at = NOW() WHERE key = $3`

	tag, err := r.pool.Exec(ctx, query, value, updatedBy, key)
	if err != nil {
		return false, fmt.Errorf("update setting: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
