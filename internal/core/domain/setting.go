package domain

import "time"

// SettingType tags how a setting's string value should be interpreted.
type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeNumber  SettingType = "number"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeList    SettingType = "list"
)

// Setting is one keyed, typed, process-wide configuration entry.
type Setting struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Type        SettingType `json:"type"`
	Description string      `json:"description"`
	UpdatedBy   string      `json:"updated_by"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Well-known setting keys. Only keys seeded by DefaultSettings can be
// written through the registry's setter.
const (
	SettingDefaultSpreadPercent = "fx.default_spread_percent"
	SettingAutoRefreshEnabled   = "fx.auto_refresh_enabled"
	SettingAllowedCurrencies    = "fx.allowed_currencies"
	SettingReleaseCap           = "scheduler.release_cap"
	SettingAPIRateLimit         = "api.rate_limit_per_minute"
)

// DefaultSettings returns the fixed list of settings seeded at
// startup when absent.
func DefaultSettings() []Setting {
	now := time.Now().UTC()
	return []Setting{
		{
			Key:         SettingDefaultSpreadPercent,
			Value:       "2.5",
			Type:        SettingTypeNumber,
			Description: "Global FX spread percent applied when a merchant has none configured",
			UpdatedBy:   "system",
			UpdatedAt:   now,
		},
		{
			// Reserved for the external rate-feed poller; nothing
			// reads it until that job ships.
			Key:         SettingAutoRefreshEnabled,
			Value:       "false",
			Type:        SettingTypeBoolean,
			Description: "Reserved: whether FX rates are refreshed from an external source on a schedule",
			UpdatedBy:   "system",
			UpdatedAt:   now,
		},
		{
			Key:         SettingAllowedCurrencies,
			Value:       "USD,BRL,EUR,GBP",
			Type:        SettingTypeList,
			Description: "Currencies accepted for monetary events",
			UpdatedBy:   "system",
			UpdatedAt:   now,
		},
		{
			Key:         SettingReleaseCap,
			Value:       "5000.00",
			Type:        SettingTypeNumber,
			Description: "Maximum reserve amount released per merchant per scheduled run",
			UpdatedBy:   "system",
			UpdatedAt:   now,
		},
		{
			Key:         SettingAPIRateLimit,
			Value:       "120",
			Type:        SettingTypeNumber,
			Description: "Per-client API request budget per minute",
			UpdatedBy:   "system",
			UpdatedAt:   now,
		},
	}
}
