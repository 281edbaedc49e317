// Package weather reports severe-weather conditions used by risk
// scoring. It queries the Open-Meteo current-conditions endpoint and
// caches results per rounded coordinate so bursts of nearby requests
// share one upstream call. Lookups degrade to "no severe weather" on
// any failure.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bridgeline/bridgeline/internal/config"
)

// Severe condition tags recognized by risk scoring.
const (
	TagStorm       = "storm"
	TagExtremeCold = "extreme cold"
	TagExtremeHeat = "extreme heat"
)

const (
	extremeColdMaxF = 32.0
	extremeHeatMinF = 100.0
)

// Service looks up the current severe-weather tag for a coordinate.
type Service interface {
	// Condition returns one of the Tag constants or "" when conditions
	// are benign. It never returns an error; failures mean "".
	Condition(ctx context.Context, lat, lng float64) string
}

type client struct {
	httpClient *http.Client
	log        *slog.Logger
	cache      *cache.Cache
	baseURL    string
	enabled    bool
}

// NewService creates a weather lookup service. When disabled, Condition
// always reports benign conditions.
func NewService(cfg config.WeatherConfig, log *slog.Logger) Service {
	return &client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With("component", "weather_service"),
		cache:      cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		baseURL:    cfg.BaseURL,
		enabled:    cfg.Enabled,
	}
}

func (c *client) Condition(ctx context.Context, lat, lng float64) string {
	if !c.enabled {
		return ""
	}

	key := cacheKey(lat, lng)
	if cached, found := c.cache.Get(key); found {
		return cached.(string)
	}

	tag, err := c.fetch(ctx, lat, lng)
	if err != nil {
		c.log.WarnContext(ctx, "Weather lookup failed, assuming benign conditions", "error", err)
		return ""
	}

	c.cache.SetDefault(key, tag)
	return tag
}

func (c *client) fetch(ctx context.Context, lat, lng float64) (string, error) {
	url := fmt.Sprintf(
		"%s/forecast?latitude=%.4f&longitude=%.4f&current=temperature_2m,weather_code&temperature_unit=fahrenheit",
		c.baseURL, lat, lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read weather response: %w", err)
	}

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode weather response: %w", err)
	}

	return Classify(payload.Current.WeatherCode, payload.Current.Temperature), nil
}

// Classify maps a WMO weather code and temperature (Fahrenheit) onto a
// severe-condition tag, or "" when conditions are benign. Storms take
// precedence over temperature extremes.
func Classify(weatherCode int, temperatureF float64) string {
	switch {
	case isStormCode(weatherCode):
		return TagStorm
	case temperatureF <= extremeColdMaxF:
		return TagExtremeCold
	case temperatureF >= extremeHeatMinF:
		return TagExtremeHeat
	default:
		return ""
	}
}

// isStormCode reports whether a WMO code describes a thunderstorm or
// violent precipitation.
func isStormCode(code int) bool {
	switch code {
	case 65, 75, 82, 95, 96, 99:
		return true
	default:
		return false
	}
}

// cacheKey buckets coordinates to two decimal places, roughly a
// kilometer, so nearby requests hit the same entry.
func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.2f,%.2f", round2(lat), round2(lng))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
