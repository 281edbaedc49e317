package weather_test

import (
	"testing"

	"github.com/bridgeline/bridgeline/internal/weather"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		weatherCode int
		tempF       float64
		want        string
	}{
		{name: "clear and mild", weatherCode: 0, tempF: 65, want: ""},
		{name: "light rain and mild", weatherCode: 61, tempF: 55, want: ""},
		{name: "thunderstorm", weatherCode: 95, tempF: 70, want: weather.TagStorm},
		{name: "thunderstorm with hail", weatherCode: 99, tempF: 70, want: weather.TagStorm},
		{name: "heavy rain", weatherCode: 65, tempF: 50, want: weather.TagStorm},
		{name: "heavy snow", weatherCode: 75, tempF: 28, want: weather.TagStorm},
		{name: "freezing clear", weatherCode: 0, tempF: 32, want: weather.TagExtremeCold},
		{name: "below freezing", weatherCode: 1, tempF: 20, want: weather.TagExtremeCold},
		{name: "heat wave", weatherCode: 0, tempF: 104, want: weather.TagExtremeHeat},
		{name: "heat threshold", weatherCode: 0, tempF: 100, want: weather.TagExtremeHeat},
		{name: "just below heat threshold", weatherCode: 0, tempF: 99.9, want: ""},
		{name: "storm wins over cold", weatherCode: 95, tempF: 10, want: weather.TagStorm},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := weather.Classify(tc.weatherCode, tc.tempF); got != tc.want {
				t.Errorf("Classify(%d, %.1f) = %q, want %q", tc.weatherCode, tc.tempF, got, tc.want)
			}
		})
	}
}
