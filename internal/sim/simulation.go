// Package sim is the ambulance dispatch engine: entity factories, the greedy
// dispatcher, the per-ambulance motion state machine and the tick clock.
package sim

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/data"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

var (
	ErrInvalidSpeed    = errors.New("speed must be a positive number")
	ErrIncidentCap     = errors.New("incident cap reached")
	ErrInvalidIncident = errors.New("invalid incident")
)

// Options configure a new Simulation. Zero values pick defaults.
type Options struct {
	Hospitals []models.Hospital
	Regions   []data.Region
	Config    Config
	Rand      *rand.Rand
	Now       func() time.Time
	Logger    log.FieldLogger
}

// Simulation is one independent simulation context. It owns the ambulance,
// incident and route collections. It is not safe for concurrent use; Runner
// serializes access.
type Simulation struct {
	id        string
	hospitals []models.Hospital
	regions   []data.Region
	cfg       Config
	speed     float64
	rng       *rand.Rand
	now       func() time.Time
	logger    log.FieldLogger

	ambulances  []models.Ambulance
	discoveries []models.DiscoveryPoint
	routes      []models.Route

	nextDiscoveryID int
	nextRouteID     int
	tick            uint64
}

// TickResult lists what changed during one tick.
type TickResult struct {
	Tick       uint64                  `json:"tick"`
	Arrivals   []models.Delivery       `json:"arrivals,omitempty"`
	Dispatched []models.Route          `json:"dispatched,omitempty"`
	Spawned    []models.DiscoveryPoint `json:"spawned,omitempty"`
	Reverted   []string                `json:"reverted,omitempty"`
}

// Snapshot is a deep copy of the simulation state for readers.
type Snapshot struct {
	SimulationID string                  `json:"simulation_id"`
	Tick         uint64                  `json:"tick"`
	Running      bool                    `json:"running"`
	Speed        float64                 `json:"speed"`
	Config       Config                  `json:"config"`
	Hospitals    []models.Hospital       `json:"hospitals"`
	Ambulances   []models.Ambulance      `json:"ambulances"`
	Discoveries  []models.DiscoveryPoint `json:"discoveries"`
	Routes       []models.Route          `json:"routes"`
	TakenAt      time.Time               `json:"taken_at"`
}

// IncidentRequest describes a manually reported incident.
type IncidentRequest struct {
	Name         string          `json:"name"`
	Location     models.Location `json:"location"`
	IncidentType string          `json:"incident_type"`
	PeopleCount  int             `json:"people_count"`
}

// New creates a simulation with an empty fleet. Call Reinitialize (or start
// it through a Runner) to place ambulances.
func New(opts Options) (*Simulation, error) {
	if len(opts.Hospitals) == 0 {
		return nil, ErrNoHospitals
	}
	s := &Simulation{
		id:              uuid.NewString(),
		hospitals:       append([]models.Hospital(nil), opts.Hospitals...),
		regions:         opts.Regions,
		cfg:             opts.Config,
		speed:           1,
		rng:             opts.Rand,
		now:             opts.Now,
		logger:          opts.Logger,
		nextDiscoveryID: 1,
		nextRouteID:     1,
	}
	if len(s.regions) == 0 {
		s.regions = data.Regions()
	}
	if s.cfg == (Config{}) {
		s.cfg = DefaultConfig()
	}
	s.cfg = s.cfg.Normalize()
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = log.StandardLogger()
	}
	s.logger = s.logger.WithField("simulation_id", s.id)
	return s, nil
}

// ID returns the simulation's unique id.
func (s *Simulation) ID() string { return s.id }

// Config returns the active settings.
func (s *Simulation) Config() Config { return s.cfg }

// Speed returns the active speed multiplier.
func (s *Simulation) Speed() float64 { return s.speed }

// SetSpeed changes the speed multiplier, capping it at MaxSpeed, and returns
// the value in effect.
func (s *Simulation) SetSpeed(m float64) (float64, error) {
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, -1) {
		return s.speed, ErrInvalidSpeed
	}
	if m > MaxSpeed {
		m = MaxSpeed
	}
	s.speed = m
	return m, nil
}

// UpdateConfig merges p into the settings. Fleet size changes apply on the
// next Reinitialize. Lowering MaxIncidents drops the newest unserved
// incidents until the cap holds; incidents already being served stay.
func (s *Simulation) UpdateConfig(p PartialConfig) Config {
	s.cfg = s.cfg.Apply(p).Normalize()
	s.enforceIncidentCap()
	return s.cfg
}

// Reinitialize places a fresh idle fleet at the home hospitals and clears
// every incident and route.
func (s *Simulation) Reinitialize() error {
	fleet, err := SpawnAmbulanceFleet(s.hospitals, s.cfg.AmbulancesPerHospital, s.cfg.IndependentAmbulances, s.rng, s.now())
	if err != nil {
		return err
	}
	s.ambulances = fleet
	s.discoveries = nil
	s.routes = nil
	s.nextDiscoveryID = 1
	s.nextRouteID = 1
	s.tick = 0
	s.logger.WithField("ambulances", len(fleet)).Info("Fleet initialized")
	return nil
}

// Tick advances the simulation by one step:
//  1. every ambulance moves; deliveries remove their incident and route
//  2. unclaimed incidents are dispatched to idle ambulances
//  3. idle ambulances may spawn new incidents, which are dispatched at once
//
// Movement results are computed into a new fleet and swapped in together with
// the deletions before any dispatch happens.
func (s *Simulation) Tick() TickResult {
	now := s.now()
	s.tick++
	res := TickResult{Tick: s.tick}

	params := s.motionParams()
	next := make([]models.Ambulance, len(s.ambulances))
	delivered := make(map[string]bool)
	for i, a := range s.ambulances {
		step := Advance(a, s.findDiscovery(a.TargetDiscoveryID), s.findHospital(a.TargetHospitalID), params, now, s.rng)
		next[i] = step.Ambulance
		if step.Reverted {
			res.Reverted = append(res.Reverted, a.ID)
			s.logger.WithField("ambulance_id", a.ID).Debug("Target vanished, ambulance back to idle")
		}
		if step.Delivered {
			res.Arrivals = append(res.Arrivals, s.delivery(a.ID, step, now))
			delivered[step.DiscoveryID] = true
		}
	}
	s.ambulances = next
	if len(delivered) > 0 {
		s.removeIncidents(delivered)
	}

	for _, d := range s.unclaimedIncidents() {
		if r, ok := s.dispatch(d); ok {
			res.Dispatched = append(res.Dispatched, r)
		}
	}

	s.spawnFromIdle(now, &res)
	return res
}

func (s *Simulation) motionParams() MotionParams {
	return MotionParams{
		Speed:              s.speed,
		MoveSpeed:          s.cfg.MoveSpeed,
		PatrolRadius:       s.cfg.PatrolRadius,
		PatrolMoveDistance: s.cfg.PatrolMoveDistance,
		Dwell:              DwellDuration,
	}
}

func (s *Simulation) delivery(ambulanceID string, step Step, now time.Time) models.Delivery {
	d := models.Delivery{
		SimulationID: s.id,
		DiscoveryID:  step.DiscoveryID,
		AmbulanceID:  ambulanceID,
		HospitalID:   step.HospitalID,
		Tick:         s.tick,
		DeliveredAt:  now,
	}
	if inc := s.findDiscovery(step.DiscoveryID); inc != nil {
		d.IncidentType = inc.IncidentType
		d.PeopleCount = inc.PeopleCount
	}
	for _, r := range s.routes {
		if r.DiscoveryPointID == step.DiscoveryID {
			d.RouteID = r.ID
			break
		}
	}
	s.logger.WithFields(log.Fields{
		"ambulance_id": ambulanceID,
		"discovery_id": step.DiscoveryID,
		"hospital_id":  step.HospitalID,
	}).Info("Patient delivered")
	return d
}

// removeIncidents drops the incidents and every route referencing them in
// one step so no route outlives its incident.
func (s *Simulation) removeIncidents(ids map[string]bool) {
	kept := s.discoveries[:0:0]
	for _, d := range s.discoveries {
		if !ids[d.ID] {
			kept = append(kept, d)
		}
	}
	s.discoveries = kept

	routes := s.routes[:0:0]
	for _, r := range s.routes {
		if !ids[r.DiscoveryPointID] {
			routes = append(routes, r)
		}
	}
	s.routes = routes
}

func (s *Simulation) unclaimedIncidents() []models.DiscoveryPoint {
	claimed := make(map[string]bool)
	for _, a := range s.ambulances {
		if a.Status == models.StatusEnRoute && a.TargetDiscoveryID != "" {
			claimed[a.TargetDiscoveryID] = true
		}
	}
	var out []models.DiscoveryPoint
	for _, d := range s.discoveries {
		if !claimed[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

// dispatch assigns an idle ambulance to d, replaces any stale route for d and
// flips the ambulance to en route immediately so later dispatches in the
// same tick see it as busy.
func (s *Simulation) dispatch(d models.DiscoveryPoint) (models.Route, bool) {
	asg, ok := MatchAmbulanceToIncident(d, s.ambulances, s.hospitals)
	if !ok {
		return models.Route{}, false
	}
	route := CreateRoute(d.ID, asg.AmbulanceID, asg.HospitalID, s.nextRouteID, s.rng)
	s.nextRouteID++

	routes := s.routes[:0:0]
	for _, r := range s.routes {
		if r.DiscoveryPointID != d.ID {
			routes = append(routes, r)
		}
	}
	s.routes = append(routes, route)

	for i := range s.ambulances {
		if s.ambulances[i].ID == asg.AmbulanceID {
			s.ambulances[i].Dispatch(d.ID, asg.HospitalID)
			break
		}
	}
	s.logger.WithFields(log.Fields{
		"ambulance_id": asg.AmbulanceID,
		"discovery_id": d.ID,
		"hospital_id":  asg.HospitalID,
		"priority":     route.Priority,
	}).Debug("Ambulance dispatched")
	return route, true
}

func (s *Simulation) spawnFromIdle(now time.Time, res *TickResult) {
	spread := float64(s.cfg.MaxIdleTime - s.cfg.MinIdleTime)
	for i := range s.ambulances {
		if !s.ambulances[i].IsIdle() {
			continue
		}
		if len(s.discoveries) >= s.cfg.MaxIncidents {
			return
		}
		idle := now.Sub(s.ambulances[i].IdleSince).Seconds()
		threshold := float64(s.cfg.MinIdleTime) + s.rng.Float64()*spread
		if idle < threshold || s.rng.Float64() >= SpawnProbability {
			continue
		}

		d := SpawnIncident(s.nextDiscoveryID, s.regions, s.rng, now)
		s.nextDiscoveryID++
		s.discoveries = append(s.discoveries, d)
		res.Spawned = append(res.Spawned, d)
		if r, ok := s.dispatch(d); ok {
			res.Dispatched = append(res.Dispatched, r)
		}
	}
}

func (s *Simulation) enforceIncidentCap() {
	excess := len(s.discoveries) - s.cfg.MaxIncidents
	if excess <= 0 {
		return
	}
	claimed := make(map[string]bool)
	for _, a := range s.ambulances {
		if a.TargetDiscoveryID != "" {
			claimed[a.TargetDiscoveryID] = true
		}
	}
	drop := make(map[string]bool)
	for i := len(s.discoveries) - 1; i >= 0 && excess > 0; i-- {
		if id := s.discoveries[i].ID; !claimed[id] {
			drop[id] = true
			excess--
		}
	}
	if len(drop) > 0 {
		s.removeIncidents(drop)
	}
}

// AddIncident registers a manually reported incident. A zero location picks
// a random point in a weighted region. The incident is dispatched on the
// next tick like any other unserved incident.
func (s *Simulation) AddIncident(req IncidentRequest) (models.DiscoveryPoint, error) {
	if req.PeopleCount < 0 {
		return models.DiscoveryPoint{}, ErrInvalidIncident
	}
	if math.IsNaN(req.Location.Lat) || math.IsNaN(req.Location.Lng) {
		return models.DiscoveryPoint{}, ErrInvalidIncident
	}
	if len(s.discoveries) >= s.cfg.MaxIncidents {
		return models.DiscoveryPoint{}, ErrIncidentCap
	}
	d := SpawnIncident(s.nextDiscoveryID, s.regions, s.rng, s.now())
	s.nextDiscoveryID++
	if req.Location != (models.Location{}) {
		d.Location = req.Location
	}
	d.PeopleCount = req.PeopleCount
	if name := strings.TrimSpace(req.Name); name != "" {
		d.Name = name
	}
	if req.IncidentType != "" {
		d.IncidentType = req.IncidentType
	}
	s.discoveries = append(s.discoveries, d)
	return d, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Simulation) Snapshot() Snapshot {
	ambulances := make([]models.Ambulance, len(s.ambulances))
	for i, a := range s.ambulances {
		ambulances[i] = a.Clone()
	}
	return Snapshot{
		SimulationID: s.id,
		Tick:         s.tick,
		Speed:        s.speed,
		Config:       s.cfg,
		Hospitals:    append([]models.Hospital{}, s.hospitals...),
		Ambulances:   ambulances,
		Discoveries:  append([]models.DiscoveryPoint{}, s.discoveries...),
		Routes:       append([]models.Route{}, s.routes...),
		TakenAt:      s.now(),
	}
}

func (s *Simulation) findDiscovery(id string) *models.DiscoveryPoint {
	if id == "" {
		return nil
	}
	for i := range s.discoveries {
		if s.discoveries[i].ID == id {
			d := s.discoveries[i]
			return &d
		}
	}
	return nil
}

func (s *Simulation) findHospital(id string) *models.Hospital {
	if id == "" {
		return nil
	}
	for i := range s.hospitals {
		if s.hospitals[i].ID == id {
			h := s.hospitals[i]
			return &h
		}
	}
	return nil
}
