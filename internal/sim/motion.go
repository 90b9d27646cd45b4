package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/ukydev/ems-dispatch-sim/internal/geo"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

// MotionParams are the per-tick movement constants. Step sizes scale with
// Speed; Dwell does not.
type MotionParams struct {
	Speed              float64
	MoveSpeed          float64
	PatrolRadius       float64
	PatrolMoveDistance float64
	Dwell              time.Duration
}

// MoveStep is the transit distance covered per tick.
func (p MotionParams) MoveStep() float64 { return p.MoveSpeed * p.Speed }

// PatrolStep is the patrol distance covered per tick.
func (p MotionParams) PatrolStep() float64 { return p.PatrolMoveDistance * p.Speed }

// Step is the outcome of advancing one ambulance by one tick.
type Step struct {
	Ambulance models.Ambulance
	// Delivered is set on the tick the ambulance reaches its hospital.
	Delivered   bool
	DiscoveryID string
	HospitalID  string
	// Reverted is set when a vanished incident or hospital forced the
	// ambulance back to idle.
	Reverted bool
}

// Advance moves a by one tick through its phase state machine. discovery and
// hospital are the entities a currently targets, or nil when they no longer
// exist. Advance never fails; missing targets revert the ambulance to idle.
func Advance(a models.Ambulance, discovery *models.DiscoveryPoint, hospital *models.Hospital, p MotionParams, now time.Time, rng *rand.Rand) Step {
	a = a.Clone()

	switch a.Phase {
	case models.PhaseIdle:
		patrol(&a, p, rng)
		return Step{Ambulance: a}

	case models.PhaseToDiscovery:
		if discovery == nil {
			a.ResetToIdle(now)
			return Step{Ambulance: a, Reverted: true}
		}
		loc, arrived := geo.StepToward(a.Location, discovery.Location, p.MoveStep())
		a.Location = loc
		if arrived {
			a.Phase = models.PhaseAtDiscovery
		}
		return Step{Ambulance: a}

	case models.PhaseAtDiscovery:
		if a.ArrivedAt == nil {
			t := now
			a.ArrivedAt = &t
			return Step{Ambulance: a}
		}
		if now.Sub(*a.ArrivedAt) >= p.Dwell {
			a.ArrivedAt = nil
			a.Phase = models.PhaseToHospital
		}
		return Step{Ambulance: a}

	case models.PhaseToHospital:
		if hospital == nil {
			a.ResetToIdle(now)
			return Step{Ambulance: a, Reverted: true}
		}
		loc, arrived := geo.StepToward(a.Location, hospital.Location, p.MoveStep())
		a.Location = loc
		if !arrived {
			return Step{Ambulance: a}
		}
		discoveryID, hospitalID := a.TargetDiscoveryID, a.TargetHospitalID
		a.ResetToIdle(now)
		return Step{Ambulance: a, Delivered: true, DiscoveryID: discoveryID, HospitalID: hospitalID}
	}
	return Step{Ambulance: a}
}

// patrol wanders around the home hospital. Choosing a new target consumes
// the tick without moving.
func patrol(a *models.Ambulance, p MotionParams, rng *rand.Rand) {
	step := p.PatrolStep()
	if a.PatrolTarget == nil || geo.Distance(a.Location, *a.PatrolTarget) < 2*step {
		t := patrolTarget(a.Home, p.PatrolRadius, rng)
		a.PatrolTarget = &t
		return
	}
	a.Location, _ = geo.StepToward(a.Location, *a.PatrolTarget, step)
}

func patrolTarget(home models.Location, radius float64, rng *rand.Rand) models.Location {
	angle := rng.Float64() * 2 * math.Pi
	return geo.PointAround(home, angle, rng.Float64()*radius)
}
