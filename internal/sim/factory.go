package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ukydev/ems-dispatch-sim/internal/data"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

// ErrNoHospitals is returned when ambulances need an anchor and no hospital exists.
var ErrNoHospitals = errors.New("no hospitals to anchor ambulances")

// SpawnIncident builds a random incident with id "d<id>" inside one of the
// weighted regions.
func SpawnIncident(id int, regions []data.Region, rng *rand.Rand, now time.Time) models.DiscoveryPoint {
	if len(regions) == 0 {
		regions = data.Regions()
	}
	region := pickRegion(regions, rng)

	area := ""
	if len(region.Areas) > 0 {
		area = region.Areas[rng.Intn(len(region.Areas))]
	}
	suffix := data.LocationSuffixes[rng.Intn(len(data.LocationSuffixes))]

	return models.DiscoveryPoint{
		ID:           fmt.Sprintf("d%d", id),
		Name:         area + suffix,
		Location:     region.Bounds.RandomPoint(rng),
		IncidentType: data.IncidentTypes[rng.Intn(len(data.IncidentTypes))],
		CreatedAt:    now,
		PeopleCount:  rng.Intn(15),
	}
}

func pickRegion(regions []data.Region, rng *rand.Rand) data.Region {
	total := 0.0
	for _, r := range regions {
		if r.Weight > 0 {
			total += r.Weight
		}
	}
	if total <= 0 {
		return regions[rng.Intn(len(regions))]
	}
	x := rng.Float64() * total
	for _, r := range regions {
		if r.Weight <= 0 {
			continue
		}
		if x < r.Weight {
			return r
		}
		x -= r.Weight
	}
	return regions[len(regions)-1]
}

// SpawnAmbulanceFleet places perHospital idle ambulances at every hospital,
// then independent ones at uniformly chosen hospitals. Ids run a1, a2, ...
func SpawnAmbulanceFleet(hospitals []models.Hospital, perHospital, independent int, rng *rand.Rand, now time.Time) ([]models.Ambulance, error) {
	if independent > 0 && len(hospitals) == 0 {
		return nil, ErrNoHospitals
	}
	if perHospital < 0 {
		perHospital = 0
	}
	if independent < 0 {
		independent = 0
	}

	fleet := make([]models.Ambulance, 0, len(hospitals)*perHospital+independent)
	next := 1
	for _, h := range hospitals {
		for i := 0; i < perHospital; i++ {
			fleet = append(fleet, newAmbulance(next, h, now))
			next++
		}
	}
	for i := 0; i < independent; i++ {
		h := hospitals[rng.Intn(len(hospitals))]
		fleet = append(fleet, newAmbulance(next, h, now))
		next++
	}
	return fleet, nil
}

func newAmbulance(n int, home models.Hospital, now time.Time) models.Ambulance {
	return models.Ambulance{
		ID:             fmt.Sprintf("a%d", n),
		Location:       home.Location,
		Status:         models.StatusIdle,
		Phase:          models.PhaseIdle,
		HomeHospitalID: home.ID,
		Home:           home.Location,
		IdleSince:      now,
	}
}

// CreateRoute links an incident, ambulance and hospital under a uniformly
// random priority. The priority is cosmetic and ignores incident severity.
func CreateRoute(discoveryID, ambulanceID, hospitalID string, routeID int, rng *rand.Rand) models.Route {
	p := models.Priorities[rng.Intn(len(models.Priorities))]
	return models.Route{
		ID:               fmt.Sprintf("r%d", routeID),
		DiscoveryPointID: discoveryID,
		AmbulanceID:      ambulanceID,
		HospitalID:       hospitalID,
		Priority:         p,
		Color:            p.Color(),
	}
}
