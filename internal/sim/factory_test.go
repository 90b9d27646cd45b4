package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ems-dispatch-sim/internal/data"
	"github.com/ukydev/ems-dispatch-sim/internal/geo"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

var testStart = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func testHospitals() []models.Hospital {
	return []models.Hospital{
		{ID: "h1", Name: "North", Location: models.Location{Lat: 35.70, Lng: 139.70}},
		{ID: "h2", Name: "South", Location: models.Location{Lat: 35.60, Lng: 139.70}},
	}
}

func TestSpawnIncident(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	regions := data.Regions()

	for i := 1; i <= 200; i++ {
		d := SpawnIncident(i, regions, rng, testStart)

		inside := false
		for _, r := range regions {
			inside = inside || r.Bounds.Contains(d.Location)
		}
		assert.True(t, inside, "incident %s outside every region", d.ID)
		assert.GreaterOrEqual(t, d.PeopleCount, 0)
		assert.Less(t, d.PeopleCount, 15)
		assert.NotEmpty(t, d.Name)
		assert.Contains(t, data.IncidentTypes, d.IncidentType)
		assert.Equal(t, testStart, d.CreatedAt)
	}

	d := SpawnIncident(7, regions, rng, testStart)
	assert.Equal(t, "d7", d.ID)
}

func TestSpawnIncident_SingleRegion(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	only := data.Region{
		Name:   "box",
		Weight: 1,
		Bounds: geo.Bounds{MinLat: 10, MaxLat: 11, MinLng: 20, MaxLng: 21},
		Areas:  []string{"Central"},
	}
	ignored := data.Region{Name: "zero", Weight: 0, Bounds: geo.Bounds{MinLat: -5, MaxLat: -4, MinLng: -5, MaxLng: -4}}

	for i := 0; i < 50; i++ {
		d := SpawnIncident(i, []data.Region{ignored, only}, rng, testStart)
		assert.True(t, only.Bounds.Contains(d.Location))
		assert.Contains(t, d.Name, "Central")
	}
}

func TestSpawnAmbulanceFleet(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	hospitals := testHospitals()

	fleet, err := SpawnAmbulanceFleet(hospitals, 2, 1, rng, testStart)
	require.NoError(t, err)
	require.Len(t, fleet, 5)

	wantHomes := []string{"h1", "h1", "h2", "h2"}
	for i, a := range fleet {
		assert.Equal(t, []string{"a1", "a2", "a3", "a4", "a5"}[i], a.ID)
		assert.Equal(t, models.StatusIdle, a.Status)
		assert.Equal(t, models.PhaseIdle, a.Phase)
		assert.Equal(t, a.Home, a.Location)
		assert.Equal(t, testStart, a.IdleSince)
		assert.Empty(t, a.TargetDiscoveryID)
		if i < len(wantHomes) {
			assert.Equal(t, wantHomes[i], a.HomeHospitalID)
		}
	}
	assert.Contains(t, []string{"h1", "h2"}, fleet[4].HomeHospitalID)
}

func TestSpawnAmbulanceFleet_NoHospitals(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	_, err := SpawnAmbulanceFleet(nil, 2, 1, rng, testStart)
	assert.ErrorIs(t, err, ErrNoHospitals)

	fleet, err := SpawnAmbulanceFleet(nil, 2, 0, rng, testStart)
	assert.NoError(t, err)
	assert.Empty(t, fleet)
}

func TestCreateRoute(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	seen := make(map[models.Priority]bool)
	for i := 1; i <= 100; i++ {
		r := CreateRoute("d1", "a2", "h3", i, rng)
		assert.Equal(t, "d1", r.DiscoveryPointID)
		assert.Equal(t, "a2", r.AmbulanceID)
		assert.Equal(t, "h3", r.HospitalID)
		assert.Equal(t, r.Priority.Color(), r.Color)
		seen[r.Priority] = true
	}
	assert.Len(t, seen, len(models.Priorities))

	assert.Equal(t, "r9", CreateRoute("d1", "a1", "h1", 9, rng).ID)
}
