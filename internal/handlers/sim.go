package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

// SimController is the command surface of a running simulation.
type SimController interface {
	Start(p *sim.PartialConfig) error
	Stop()
	Reset() error
	SetSpeed(m float64) (float64, error)
	UpdateConfig(p sim.PartialConfig) sim.Config
	Config() sim.Config
	AddIncident(req sim.IncidentRequest) (models.DiscoveryPoint, error)
	Snapshot() sim.Snapshot
}

// SettingsStore persists the settings.
type SettingsStore interface {
	Save(ctx context.Context, cfg sim.Config) error
	Clear(ctx context.Context) error
}

// DeliveryLog lists completed deliveries.
type DeliveryLog interface {
	Recent(ctx context.Context, simulationID string, limit int64) ([]models.Delivery, error)
}

// SimHandler serves the simulation state and commands
type SimHandler struct {
	sim        SimController
	settings   SettingsStore
	deliveries DeliveryLog
	logger     log.FieldLogger
}

func NewSimHandler(ctrl SimController, settings SettingsStore, deliveries DeliveryLog, logger log.FieldLogger) *SimHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &SimHandler{sim: ctrl, settings: settings, deliveries: deliveries, logger: logger.WithField("component", "sim-api")}
}

// State returns the snapshot narrowed by the status, people and q query parameters.
func (h *SimHandler) State(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status models.AmbulanceStatus
	switch s := q.Get("status"); s {
	case "", "all":
	case string(models.StatusIdle), string(models.StatusEnRoute):
		status = models.AmbulanceStatus(s)
	default:
		http.Error(w, "Invalid status filter", http.StatusBadRequest)
		return
	}
	people, err := sim.ParsePeopleBucket(q.Get("people"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter := sim.Filter{Status: status, People: people, Query: q.Get("q")}
	writeJSON(w, http.StatusOK, filter.Apply(h.sim.Snapshot()))
}

// Start begins ticking, optionally with changed settings.
func (h *SimHandler) Start(w http.ResponseWriter, r *http.Request) {
	partial, ok := readOptionalPartial(w, r)
	if !ok {
		return
	}
	if err := h.sim.Start(partial); err != nil {
		if errors.Is(err, sim.ErrAlreadyRunning) {
			http.Error(w, "Simulation already running", http.StatusConflict)
			return
		}
		h.logger.WithError(err).Error("Failed to start simulation")
		http.Error(w, "Failed to start simulation", http.StatusInternalServerError)
		return
	}
	if partial != nil {
		h.persist(r.Context(), h.sim.Config())
	}
	writeJSON(w, http.StatusOK, h.sim.Snapshot())
}

func (h *SimHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.sim.Stop()
	writeJSON(w, http.StatusOK, h.sim.Snapshot())
}

func (h *SimHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.sim.Reset(); err != nil {
		h.logger.WithError(err).Error("Failed to reset simulation")
		http.Error(w, "Failed to reset simulation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.sim.Snapshot())
}

type speedRequest struct {
	Speed float64 `json:"speed"`
}

func (h *SimHandler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if !readJSON(w, r, &req) {
		return
	}
	speed, err := h.sim.SetSpeed(req.Speed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, speedRequest{Speed: speed})
}

// UpdateConfig merges a partial config, persists the result and returns it.
func (h *SimHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var partial sim.PartialConfig
	if !readJSON(w, r, &partial) {
		return
	}
	cfg := h.sim.UpdateConfig(partial)
	h.persist(r.Context(), cfg)
	writeJSON(w, http.StatusOK, cfg)
}

func (h *SimHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sim.Config())
}

// ClearSettings forgets the saved settings and restores the defaults.
func (h *SimHandler) ClearSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Clear(r.Context()); err != nil {
		h.logger.WithError(err).Warn("Failed to clear saved settings")
	}
	cfg := h.sim.UpdateConfig(sim.DefaultConfig().Partial())
	writeJSON(w, http.StatusOK, cfg)
}

func (h *SimHandler) AddIncident(w http.ResponseWriter, r *http.Request) {
	var req sim.IncidentRequest
	if !readJSON(w, r, &req) {
		return
	}
	d, err := h.sim.AddIncident(req)
	switch {
	case errors.Is(err, sim.ErrIncidentCap):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Deliveries lists the newest deliveries of the current simulation.
func (h *SimHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultDeliveryLimit)
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if n > maxDeliveryLimit {
			n = maxDeliveryLimit
		}
		limit = n
	}

	deliveries, err := h.deliveries.Recent(r.Context(), h.sim.Snapshot().SimulationID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list deliveries")
		http.Error(w, "Failed to list deliveries", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, deliveries)
}

// Health reports liveness and whether the clock is running.
func (h *SimHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.sim.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"simulation_id": snap.SimulationID,
		"running":       snap.Running,
		"tick":          snap.Tick,
	})
}

// persist saves cfg; failures are logged since the in-memory settings
// already apply.
func (h *SimHandler) persist(ctx context.Context, cfg sim.Config) {
	if err := h.settings.Save(ctx, cfg); err != nil {
		h.logger.WithError(err).Warn("Failed to save settings")
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// readOptionalPartial accepts an empty body as "no changes".
func readOptionalPartial(w http.ResponseWriter, r *http.Request) (*sim.PartialConfig, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	if len(body) == 0 {
		return nil, true
	}
	var p sim.PartialConfig
	if err := json.Unmarshal(body, &p); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return nil, false
	}
	return &p, true
}
