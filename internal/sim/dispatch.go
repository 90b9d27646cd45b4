package sim

import (
	"math"

	"github.com/ukydev/ems-dispatch-sim/internal/geo"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

// Assignment is the dispatcher's choice for one incident.
type Assignment struct {
	AmbulanceID string `json:"ambulance_id"`
	HospitalID  string `json:"hospital_id"`
}

// MatchAmbulanceToIncident picks the idle ambulance nearest the incident and,
// independently, the hospital nearest the incident. Ties go to the first
// candidate in slice order. It reports false when no ambulance is idle or no
// hospital exists; callers retry on a later tick.
func MatchAmbulanceToIncident(incident models.DiscoveryPoint, ambulances []models.Ambulance, hospitals []models.Hospital) (Assignment, bool) {
	ambIdx := -1
	best := math.Inf(1)
	for i := range ambulances {
		if !ambulances[i].IsIdle() {
			continue
		}
		if d := geo.Distance(ambulances[i].Location, incident.Location); d < best {
			best, ambIdx = d, i
		}
	}
	if ambIdx < 0 {
		return Assignment{}, false
	}

	hospIdx := nearestHospital(incident.Location, hospitals)
	if hospIdx < 0 {
		return Assignment{}, false
	}
	return Assignment{AmbulanceID: ambulances[ambIdx].ID, HospitalID: hospitals[hospIdx].ID}, true
}

func nearestHospital(p models.Location, hospitals []models.Hospital) int {
	idx := -1
	best := math.Inf(1)
	for i := range hospitals {
		if d := geo.Distance(hospitals[i].Location, p); d < best {
			best, idx = d, i
		}
	}
	return idx
}
