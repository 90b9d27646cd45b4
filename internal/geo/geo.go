// Package geo holds the planar coordinate helpers used by the simulation.
//
// Distances are Euclidean in degree units. That is adequate inside a single
// metropolitan area and distorts badly across widely separated regions.
package geo

import (
	"math"
	"math/rand"

	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

// Distance returns sqrt(Δlat² + Δlng²) between two points.
func Distance(a, b models.Location) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// StepToward moves from toward to by step along the straight line.
// When the remaining distance is below step it snaps to the target and
// reports arrival, so the final step never overshoots.
func StepToward(from, to models.Location, step float64) (models.Location, bool) {
	d := Distance(from, to)
	if d < step {
		return to, true
	}
	return models.Location{
		Lat: from.Lat + (to.Lat-from.Lat)/d*step,
		Lng: from.Lng + (to.Lng-from.Lng)/d*step,
	}, false
}

// PointAround offsets center by radius in the direction of angle (radians).
func PointAround(center models.Location, angle, radius float64) models.Location {
	return models.Location{
		Lat: center.Lat + math.Cos(angle)*radius,
		Lng: center.Lng + math.Sin(angle)*radius,
	}
}

// Bounds is an axis-aligned lat/lng box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// RandomPoint draws a uniform point inside the box.
func (b Bounds) RandomPoint(rng *rand.Rand) models.Location {
	return models.Location{
		Lat: b.MinLat + rng.Float64()*(b.MaxLat-b.MinLat),
		Lng: b.MinLng + rng.Float64()*(b.MaxLng-b.MinLng),
	}
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p models.Location) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
