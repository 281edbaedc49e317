// Package config manages application configuration from environment variables,
// config files, and default values.
package config

import (
	"time"
)

// Config defines the application configuration. Values can be set via
// environment variables prefixed with BRIDGELINE_ (e.g., BRIDGELINE_GEMINI_API_KEY)
// or through config.yaml.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Vapi      VapiConfig      `mapstructure:"vapi"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"required,min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,min=1s"`
}

// DatabaseConfig controls SQLite storage.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// GeminiConfig controls the Gemini AI integration. An empty APIKey is
// valid and puts the client in fallback-only mode.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst"               validate:"min=1"`
}

// VapiConfig controls outbound voice call dispatch. An empty APIKey is
// valid and puts the dispatcher in mock mode.
type VapiConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"        validate:"required,url"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	AssistantID   string        `mapstructure:"assistant_id"`
	Timeout       time.Duration `mapstructure:"timeout"         validate:"required,min=1s,max=2m"`
}

// WeatherConfig controls the severe-weather lookup used by risk scoring.
type WeatherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"  validate:"required,url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"required,min=1m"`
}

// TaskConfig holds settings for a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// EngineConfig tunes request-lifecycle behavior. Timezone is an IANA
// location name used for the overnight scoring window; "Local" follows
// the server clock and an empty value means UTC.
type EngineConfig struct {
	SuggestLimit       int    `mapstructure:"suggest_limit"         validate:"min=1,max=20"`
	FollowUpDelayHours int    `mapstructure:"follow_up_delay_hours" validate:"min=1,max=168"`
	Timezone           string `mapstructure:"timezone"`
}
