package postgres

import (
	"context"
	"testing"
	"time"

	"merchant-backoffice/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingColumnNames() []string {
	return []string{"key", "value", "type", "description", "updated_by", "updated_at"}
}

func TestSettingsRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettingsRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM settings WHERE key").
		WithArgs(domain.SettingDefaultSpreadPercent).
		WillReturnRows(pgxmock.NewRows(settingColumnNames()).AddRow(
			domain.SettingDefaultSpreadPercent, "2.5", domain.SettingTypeNumber,
			"Global FX spread", "system", now,
		))

	s, err := repo.Get(context.Background(), domain.SettingDefaultSpreadPercent)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "2.5", s.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepo_Get_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettingsRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM settings WHERE key").
		WithArgs("no.such.key").
		WillReturnRows(pgxmock.NewRows(settingColumnNames()))

	s, err := repo.Get(context.Background(), "no.such.key")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepo_InsertIfAbsent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettingsRepo(mock)
	s := domain.DefaultSettings()[0]

	mock.ExpectExec("INSERT INTO settings").
		WithArgs(s.Key, s.Value, s.Type, s.Description, s.UpdatedBy, s.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.InsertIfAbsent(context.Background(), &s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepo_Update_UnknownKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettingsRepo(mock)

	mock.ExpectExec("UPDATE settings SET").
		WithArgs("9.9", "admin-1", "no.such.key").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	updated, err := repo.Update(context.Background(), "no.such.key", "9.9", "admin-1")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
