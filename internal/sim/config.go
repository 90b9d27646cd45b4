package sim

import (
	"math"
	"time"
)

// Fixed engine constants that are not user settings.
const (
	// DwellDuration is the wall-clock time spent loading at an incident.
	// It is not scaled by the speed multiplier.
	DwellDuration = 3 * time.Second
	// SpawnProbability is the per-idle-ambulance chance of a new incident once
	// the idle threshold has passed.
	SpawnProbability = 0.3
	// MaxSpeed caps the speed multiplier.
	MaxSpeed = 10.0
)

// Bounds of the settings form.
const (
	maxPerHospital   = 5
	maxIndependent   = 10
	maxIncidentsCap  = 50
	maxMinIdleTime   = 60
	maxMaxIdleTime   = 120
	minIdleTimeFloor = 1
)

// Config holds the user-editable simulation settings. JSON keys match the
// settings document saved by the console.
type Config struct {
	AmbulancesPerHospital int     `json:"ambulancesPerHospital" bson:"ambulancesPerHospital"`
	IndependentAmbulances int     `json:"independentAmbulances" bson:"independentAmbulances"`
	MaxIncidents          int     `json:"maxIncidents" bson:"maxIncidents"`
	MinIdleTime           int     `json:"minIdleTime" bson:"minIdleTime"` // seconds
	MaxIdleTime           int     `json:"maxIdleTime" bson:"maxIdleTime"` // seconds
	MoveSpeed             float64 `json:"moveSpeed" bson:"moveSpeed"`
	PatrolRadius          float64 `json:"patrolRadius" bson:"patrolRadius"`
	PatrolMoveDistance    float64 `json:"patrolMoveDistance" bson:"patrolMoveDistance"`
}

// DefaultConfig returns the factory settings.
func DefaultConfig() Config {
	return Config{
		AmbulancesPerHospital: 2,
		IndependentAmbulances: 0,
		MaxIncidents:          12,
		MinIdleTime:           5,
		MaxIdleTime:           15,
		MoveSpeed:             0.0005,
		PatrolRadius:          0.015,
		PatrolMoveDistance:    0.0003,
	}
}

// PartialConfig carries only the settings a caller wants to change.
type PartialConfig struct {
	AmbulancesPerHospital *int     `json:"ambulancesPerHospital,omitempty" bson:"ambulancesPerHospital,omitempty"`
	IndependentAmbulances *int     `json:"independentAmbulances,omitempty" bson:"independentAmbulances,omitempty"`
	MaxIncidents          *int     `json:"maxIncidents,omitempty" bson:"maxIncidents,omitempty"`
	MinIdleTime           *int     `json:"minIdleTime,omitempty" bson:"minIdleTime,omitempty"`
	MaxIdleTime           *int     `json:"maxIdleTime,omitempty" bson:"maxIdleTime,omitempty"`
	MoveSpeed             *float64 `json:"moveSpeed,omitempty" bson:"moveSpeed,omitempty"`
	PatrolRadius          *float64 `json:"patrolRadius,omitempty" bson:"patrolRadius,omitempty"`
	PatrolMoveDistance    *float64 `json:"patrolMoveDistance,omitempty" bson:"patrolMoveDistance,omitempty"`
}

// Apply overlays the set fields of p onto c.
func (c Config) Apply(p PartialConfig) Config {
	if p.AmbulancesPerHospital != nil {
		c.AmbulancesPerHospital = *p.AmbulancesPerHospital
	}
	if p.IndependentAmbulances != nil {
		c.IndependentAmbulances = *p.IndependentAmbulances
	}
	if p.MaxIncidents != nil {
		c.MaxIncidents = *p.MaxIncidents
	}
	if p.MinIdleTime != nil {
		c.MinIdleTime = *p.MinIdleTime
	}
	if p.MaxIdleTime != nil {
		c.MaxIdleTime = *p.MaxIdleTime
	}
	if p.MoveSpeed != nil {
		c.MoveSpeed = *p.MoveSpeed
	}
	if p.PatrolRadius != nil {
		c.PatrolRadius = *p.PatrolRadius
	}
	if p.PatrolMoveDistance != nil {
		c.PatrolMoveDistance = *p.PatrolMoveDistance
	}
	return c
}

// Partial returns c with every field set.
func (c Config) Partial() PartialConfig {
	return PartialConfig{
		AmbulancesPerHospital: &c.AmbulancesPerHospital,
		IndependentAmbulances: &c.IndependentAmbulances,
		MaxIncidents:          &c.MaxIncidents,
		MinIdleTime:           &c.MinIdleTime,
		MaxIdleTime:           &c.MaxIdleTime,
		MoveSpeed:             &c.MoveSpeed,
		PatrolRadius:          &c.PatrolRadius,
		PatrolMoveDistance:    &c.PatrolMoveDistance,
	}
}

// Normalize clamps every setting into its accepted range. Motion constants
// that are not positive finite numbers fall back to their defaults.
func (c Config) Normalize() Config {
	def := DefaultConfig()

	c.AmbulancesPerHospital = clampInt(c.AmbulancesPerHospital, 0, maxPerHospital)
	c.IndependentAmbulances = clampInt(c.IndependentAmbulances, 0, maxIndependent)
	c.MaxIncidents = clampInt(c.MaxIncidents, 1, maxIncidentsCap)
	c.MinIdleTime = clampInt(c.MinIdleTime, minIdleTimeFloor, maxMinIdleTime)
	c.MaxIdleTime = clampInt(c.MaxIdleTime, minIdleTimeFloor, maxMaxIdleTime)
	if c.MaxIdleTime < c.MinIdleTime {
		c.MaxIdleTime = c.MinIdleTime
	}

	c.MoveSpeed = positiveOr(c.MoveSpeed, def.MoveSpeed)
	c.PatrolRadius = positiveOr(c.PatrolRadius, def.PatrolRadius)
	c.PatrolMoveDistance = positiveOr(c.PatrolMoveDistance, def.PatrolMoveDistance)
	return c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func positiveOr(v, fallback float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
