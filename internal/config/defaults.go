package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultServerPort            = 8000
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultDBPath = "bridgeline.db"

	DefaultGeminiModel             = "gemini-2.0-flash"
	DefaultGeminiTemperature       = float32(0.7)
	DefaultGeminiMaxRetries        = 3
	DefaultGeminiRetryDelaySeconds = 2
	DefaultGeminiRequestsPerSecond = 1.0
	DefaultGeminiBurst             = 3

	DefaultVapiBaseURL = "https://api.vapi.ai"
	DefaultVapiTimeout = 30 * time.Second

	DefaultWeatherBaseURL  = "https://api.open-meteo.com/v1"
	DefaultWeatherCacheTTL = 15 * time.Minute

	DefaultEngineSuggestLimit       = 3
	DefaultEngineFollowUpDelayHours = 24
	DefaultEngineTimezone           = "Local"
)

// DefaultSchedulerTasks provides cron schedules for the background tasks
// when the config file does not override them.
var DefaultSchedulerTasks = map[string]TaskConfig{
	"followup_dispatch": {Enabled: true, Schedule: "*/15 * * * *"},
	"db_maintenance":    {Enabled: true, Schedule: "0 4 * * *"},
}
