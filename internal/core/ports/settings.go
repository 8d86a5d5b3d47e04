package ports

import "context"

// SettingsStore reads mutable runtime configuration. Values are editable
// while the process runs, so consumers re-read on every use instead of
// caching at startup. A missing key yields ("", nil).
type SettingsStore interface {
	GetString(ctx context.Context, key string) (string, error)
}

// Well-known settings keys.
const (
	SettingGeocodingAPIKey = "geocoding_api_key"
	SettingAIAPIKey        = "ai_api_key"
)
