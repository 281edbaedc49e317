// Package geo ranks the resource catalog by great-circle proximity to a
// requester's location.
package geo

import (
	"math"
	"sort"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/database"
)

// earthRadiusMiles is the spherical-Earth approximation radius in statute miles.
const earthRadiusMiles = 3959.0

// Distance computes the haversine great-circle distance in miles between
// two coordinate pairs, rounded to two decimal places for display.
// It returns INVALID_INPUT for non-finite coordinates.
func Distance(lat1, lng1, lat2, lng2 float64) (float64, error) {
	for _, v := range []float64{lat1, lng1, lat2, lng2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, apperr.NewInvalidInput("coordinates must be finite")
		}
	}

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return round2(earthRadiusMiles * c), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RankedResource pairs a catalog entry with its distance from the origin.
type RankedResource struct {
	database.Resource
	Distance float64 `json:"distance"`
}

// Rank filters the catalog by exact type match (when typeFilter is
// non-empty), orders candidates ascending by distance from origin, and
// truncates to limit. Ties are broken by catalog order. An empty catalog
// or a filter with no matches yields an empty list, not an error.
func Rank(origin database.Location, catalog []database.Resource, typeFilter string, limit int) ([]RankedResource, error) {
	ranked := make([]RankedResource, 0, len(catalog))
	for _, res := range catalog {
		if typeFilter != "" && res.Type != typeFilter {
			continue
		}
		dist, err := Distance(origin.Lat, origin.Lng, res.Location.Lat, res.Location.Lng)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, RankedResource{Resource: res, Distance: dist})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
