package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHospitals_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, h := range Hospitals() {
		assert.False(t, seen[h.ID], "duplicate id %s", h.ID)
		seen[h.ID] = true
	}
	assert.Len(t, seen, 10)
}

func TestRegions_WeightsAndHospitalsInside(t *testing.T) {
	total := 0.0
	for _, r := range Regions() {
		total += r.Weight
		assert.NotEmpty(t, r.Areas)
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	regions := Regions()
	for _, h := range Hospitals() {
		inside := regions[0].Bounds.Contains(h.Location) || regions[1].Bounds.Contains(h.Location)
		assert.True(t, inside, "hospital %s outside every region", h.ID)
	}
}

func TestLoadHospitals(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"id":"x1","name":"X","location":{"lat":1,"lng":2}}]`), 0644))
	hs, err := LoadHospitals(good)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "x1", hs[0].ID)
	assert.Equal(t, 2.0, hs[0].Location.Lng)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0644))
	_, err = LoadHospitals(empty)
	assert.ErrorIs(t, err, ErrEmptyHospitalFile)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0644))
	_, err = LoadHospitals(bad)
	assert.Error(t, err)

	_, err = LoadHospitals(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestHospitalsFrom(t *testing.T) {
	hs, err := HospitalsFrom("")
	require.NoError(t, err)
	assert.Equal(t, Hospitals(), hs)

	_, err = HospitalsFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
