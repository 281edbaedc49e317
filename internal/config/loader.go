package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/bridgeline/bridgeline/internal/apperr"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file
// 3. BRIDGELINE_* environment variables
func Load() (*Config, error) {
	// Set defaults first
	setDefaults()

	// Create initial config with defaults
	cfg := &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Server: ServerConfig{
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultServerReadTimeout,
			WriteTimeout:    DefaultServerWriteTimeout,
			ShutdownTimeout: DefaultServerShutdownTimeout,
		},
		Database: DatabaseConfig{
			Path: DefaultDBPath,
		},
		Gemini: GeminiConfig{
			ModelName:         DefaultGeminiModel,
			Temperature:       DefaultGeminiTemperature,
			MaxRetries:        DefaultGeminiMaxRetries,
			RetryDelaySeconds: DefaultGeminiRetryDelaySeconds,
			RequestsPerSecond: DefaultGeminiRequestsPerSecond,
			Burst:             DefaultGeminiBurst,
		},
		Vapi: VapiConfig{
			BaseURL: DefaultVapiBaseURL,
			Timeout: DefaultVapiTimeout,
		},
		Weather: WeatherConfig{
			BaseURL:  DefaultWeatherBaseURL,
			CacheTTL: DefaultWeatherCacheTTL,
		},
		Scheduler: SchedulerConfig{
			Tasks: DefaultSchedulerTasks,
		},
		Engine: EngineConfig{
			SuggestLimit:       DefaultEngineSuggestLimit,
			FollowUpDelayHours: DefaultEngineFollowUpDelayHours,
			Timezone:           DefaultEngineTimezone,
		},
	}

	// Try to load config file (optional)
	if err := loadConfig(); err != nil {
		return nil, apperr.NewConfig("failed to load config file", err)
	}

	// Unmarshal config file over defaults
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, apperr.NewConfig("failed to parse config", err)
	}

	// Validate the complete config
	if err := validator.New().Struct(cfg); err != nil {
		return nil, apperr.NewConfig("invalid configuration", err)
	}

	return cfg, nil
}

// loadConfig initializes and loads the configuration using viper
func loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	// Setup environment variables
	viper.SetEnvPrefix("BRIDGELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow missing config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %v", err)
		}
		// Config file not found is okay, we'll use defaults
	}

	return nil
}

// setDefaults sets default values for optional configuration parameters
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.format", DefaultLogFormat)

	// Server defaults
	viper.SetDefault("server.port", DefaultServerPort)
	viper.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viper.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viper.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	// Database defaults
	viper.SetDefault("database.path", DefaultDBPath)

	// Gemini defaults
	viper.SetDefault("gemini.model_name", DefaultGeminiModel)
	viper.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	viper.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	viper.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelaySeconds)
	viper.SetDefault("gemini.requests_per_second", DefaultGeminiRequestsPerSecond)
	viper.SetDefault("gemini.burst", DefaultGeminiBurst)

	// Vapi defaults
	viper.SetDefault("vapi.base_url", DefaultVapiBaseURL)
	viper.SetDefault("vapi.timeout", DefaultVapiTimeout)

	// Weather defaults
	viper.SetDefault("weather.enabled", true)
	viper.SetDefault("weather.base_url", DefaultWeatherBaseURL)
	viper.SetDefault("weather.cache_ttl", DefaultWeatherCacheTTL)

	// Scheduler defaults
	for name, task := range DefaultSchedulerTasks {
		viper.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		viper.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	// Engine defaults
	viper.SetDefault("engine.suggest_limit", DefaultEngineSuggestLimit)
	viper.SetDefault("engine.follow_up_delay_hours", DefaultEngineFollowUpDelayHours)
	viper.SetDefault("engine.timezone", DefaultEngineTimezone)
}
