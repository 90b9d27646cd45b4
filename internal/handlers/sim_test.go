package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ems-dispatch-sim/internal/events"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"github.com/ukydev/ems-dispatch-sim/internal/settings"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

type simFixture struct {
	runner  *sim.Runner
	store   *settings.Store
	buffer  *events.DeliveryBuffer
	handler *SimHandler
}

func testHospitals() []models.Hospital {
	return []models.Hospital{
		{ID: "h1", Name: "North", Location: models.Location{Lat: 35.70, Lng: 139.70}},
		{ID: "h2", Name: "South", Location: models.Location{Lat: 35.60, Lng: 139.70}},
	}
}

func newSimFixture(t *testing.T) *simFixture {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.MinIdleTime = 60
	cfg.MaxIdleTime = 120
	s, err := sim.New(sim.Options{
		Hospitals: testHospitals(),
		Config:    cfg,
		Rand:      rand.New(rand.NewSource(11)),
		Logger:    quietLogger(),
	})
	require.NoError(t, err)

	f := &simFixture{
		runner: sim.NewRunner(s, sim.RunnerOptions{BaseInterval: time.Hour, Logger: quietLogger()}),
		store:  settings.NewStore(settings.NewMemoryBackend(), quietLogger()),
		buffer: events.NewDeliveryBuffer(0),
	}
	f.runner.AddObserver(f.buffer)
	f.handler = NewSimHandler(f.runner, f.store, f.buffer, quietLogger())
	t.Cleanup(f.runner.Stop)
	return f
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestSimHandler_StartStop(t *testing.T) {
	f := newSimFixture(t)

	w := httptest.NewRecorder()
	f.handler.Start(w, httptest.NewRequest(http.MethodPost, "/api/sim/start", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap sim.Snapshot
	decode(t, w, &snap)
	assert.True(t, snap.Running)
	assert.Len(t, snap.Ambulances, 4)

	w = httptest.NewRecorder()
	f.handler.Start(w, httptest.NewRequest(http.MethodPost, "/api/sim/start", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	f.handler.Stop(w, httptest.NewRequest(http.MethodPost, "/api/sim/stop", nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &snap)
	assert.False(t, snap.Running)
	assert.Len(t, snap.Ambulances, 4)
}

func TestSimHandler_StartWithConfigPersists(t *testing.T) {
	f := newSimFixture(t)

	body := bytes.NewBufferString(`{"ambulancesPerHospital": 3}`)
	w := httptest.NewRecorder()
	f.handler.Start(w, httptest.NewRequest(http.MethodPost, "/api/sim/start", body))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Len(t, f.runner.Snapshot().Ambulances, 6)
	assert.Equal(t, 3, f.store.Load(context.Background()).AmbulancesPerHospital)

	w = httptest.NewRecorder()
	f.runner.Stop()
	f.handler.Start(w, httptest.NewRequest(http.MethodPost, "/api/sim/start", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimHandler_Reset(t *testing.T) {
	f := newSimFixture(t)
	require.NoError(t, f.runner.Start(nil))
	_, err := f.runner.SetSpeed(4)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	f.handler.Reset(w, httptest.NewRequest(http.MethodPost, "/api/sim/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var snap sim.Snapshot
	decode(t, w, &snap)
	assert.False(t, snap.Running)
	assert.Equal(t, 1.0, snap.Speed)
	assert.Zero(t, snap.Tick)
}

func TestSimHandler_SetSpeed(t *testing.T) {
	f := newSimFixture(t)

	tests := []struct {
		name string
		body string
		code int
		want float64
	}{
		{"double", `{"speed": 2}`, http.StatusOK, 2},
		{"capped", `{"speed": 50}`, http.StatusOK, sim.MaxSpeed},
		{"zero", `{"speed": 0}`, http.StatusBadRequest, 0},
		{"negative", `{"speed": -1}`, http.StatusBadRequest, 0},
		{"bad json", `speed`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.handler.SetSpeed(w, httptest.NewRequest(http.MethodPost, "/api/sim/speed", bytes.NewBufferString(tt.body)))
			require.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				var got speedRequest
				decode(t, w, &got)
				assert.Equal(t, tt.want, got.Speed)
			}
		})
	}
}

func TestSimHandler_UpdateAndClearSettings(t *testing.T) {
	f := newSimFixture(t)
	ctx := context.Background()

	w := httptest.NewRecorder()
	f.handler.UpdateConfig(w, httptest.NewRequest(http.MethodPut, "/api/sim/config", bytes.NewBufferString(`{"maxIncidents": 4, "moveSpeed": 0.001}`)))
	require.Equal(t, http.StatusOK, w.Code)

	var cfg sim.Config
	decode(t, w, &cfg)
	assert.Equal(t, 4, cfg.MaxIncidents)
	assert.Equal(t, 0.001, cfg.MoveSpeed)
	assert.Equal(t, cfg, f.store.Load(ctx))

	w = httptest.NewRecorder()
	f.handler.GetSettings(w, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	decode(t, w, &cfg)
	assert.Equal(t, 4, cfg.MaxIncidents)

	w = httptest.NewRecorder()
	f.handler.ClearSettings(w, httptest.NewRequest(http.MethodDelete, "/api/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &cfg)
	assert.Equal(t, sim.DefaultConfig(), cfg)
	assert.Equal(t, sim.DefaultConfig(), f.store.Load(ctx))
}

func TestSimHandler_AddIncident(t *testing.T) {
	f := newSimFixture(t)
	require.NoError(t, f.runner.Start(nil))

	body := `{"name": "Bus collision", "location": {"lat": 35.65, "lng": 139.70}, "people_count": 11}`
	w := httptest.NewRecorder()
	f.handler.AddIncident(w, httptest.NewRequest(http.MethodPost, "/api/sim/incidents", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	var d models.DiscoveryPoint
	decode(t, w, &d)
	assert.Equal(t, "Bus collision", d.Name)
	assert.Equal(t, 11, d.PeopleCount)

	w = httptest.NewRecorder()
	f.handler.AddIncident(w, httptest.NewRequest(http.MethodPost, "/api/sim/incidents", bytes.NewBufferString(`{"people_count": -2}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	one := 1
	f.runner.UpdateConfig(sim.PartialConfig{MaxIncidents: &one})
	w = httptest.NewRecorder()
	f.handler.AddIncident(w, httptest.NewRequest(http.MethodPost, "/api/sim/incidents", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSimHandler_State(t *testing.T) {
	f := newSimFixture(t)
	require.NoError(t, f.runner.Start(nil))
	_, err := f.runner.AddIncident(sim.IncidentRequest{Name: "Crowd", Location: models.Location{Lat: 35.69, Lng: 139.70}, PeopleCount: 12})
	require.NoError(t, err)
	f.runner.Step()

	w := httptest.NewRecorder()
	f.handler.State(w, httptest.NewRequest(http.MethodGet, "/api/sim/state?status=en_route&people=10%2B", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var view sim.View
	decode(t, w, &view)
	require.Len(t, view.Ambulances, 1)
	assert.Equal(t, models.StatusEnRoute, view.Ambulances[0].Status)
	require.Len(t, view.Discoveries, 1)
	assert.Equal(t, models.SeverityCritical, view.Severities[view.Discoveries[0].ID])
	assert.Len(t, view.Routes, 1)

	w = httptest.NewRecorder()
	f.handler.State(w, httptest.NewRequest(http.MethodGet, "/api/sim/state?status=parked", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	f.handler.State(w, httptest.NewRequest(http.MethodGet, "/api/sim/state?people=lots", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimHandler_Deliveries(t *testing.T) {
	f := newSimFixture(t)
	snap := f.runner.Snapshot()
	for i := 0; i < 3; i++ {
		f.buffer.OnTick(sim.TickResult{Arrivals: []models.Delivery{{SimulationID: snap.SimulationID, AmbulanceID: "a1"}}}, snap)
	}

	w := httptest.NewRecorder()
	f.handler.Deliveries(w, httptest.NewRequest(http.MethodGet, "/api/deliveries?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.Delivery
	decode(t, w, &got)
	assert.Len(t, got, 2)

	w = httptest.NewRecorder()
	f.handler.Deliveries(w, httptest.NewRequest(http.MethodGet, "/api/deliveries?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimHandler_Health(t *testing.T) {
	f := newSimFixture(t)

	w := httptest.NewRecorder()
	f.handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["running"])
	assert.Equal(t, f.runner.Snapshot().SimulationID, body["simulation_id"])
}
