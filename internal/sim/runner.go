package sim

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

// DefaultBaseInterval is the tick interval at speed 1.
const DefaultBaseInterval = time.Second

var ErrAlreadyRunning = errors.New("simulation already running")

// Observer receives every tick's result and the state right after it.
type Observer interface {
	OnTick(res TickResult, snap Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(res TickResult, snap Snapshot)

func (f ObserverFunc) OnTick(res TickResult, snap Snapshot) { f(res, snap) }

type RunnerOptions struct {
	BaseInterval time.Duration
	Logger       log.FieldLogger
}

// Runner drives a Simulation on a speed-scaled timer. Ticks never overlap:
// the next one is scheduled after the current tick and its observers return.
// Every start, stop, reset and speed change bumps a generation counter, and a
// timer callback from an older generation does nothing.
type Runner struct {
	mu        sync.Mutex
	sim       *Simulation
	base      time.Duration
	running   bool
	gen       uint64
	timer     *time.Timer
	observers []Observer
	logger    log.FieldLogger
}

// NewRunner wraps sim. The runner starts stopped.
func NewRunner(sim *Simulation, opts RunnerOptions) *Runner {
	if opts.BaseInterval <= 0 {
		opts.BaseInterval = DefaultBaseInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Runner{
		sim:    sim,
		base:   opts.BaseInterval,
		logger: opts.Logger.WithField("simulation_id", sim.ID()),
	}
}

// AddObserver registers o for every later tick.
func (r *Runner) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Start applies p (if any), places a fresh fleet and begins ticking.
func (r *Runner) Start(p *PartialConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}
	if p != nil {
		r.sim.UpdateConfig(*p)
	}
	if err := r.sim.Reinitialize(); err != nil {
		return err
	}
	r.running = true
	r.gen++
	r.scheduleLocked()
	r.logger.WithFields(log.Fields{
		"ambulances": len(r.sim.ambulances),
		"speed":      r.sim.Speed(),
		"interval":   r.intervalLocked().String(),
	}).Info("Simulation started")
	return nil
}

// Stop cancels the pending tick. The state stays visible. Calling Stop on a
// stopped runner is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.stopLocked()
	r.logger.WithField("tick", r.sim.tick).Info("Simulation stopped")
}

func (r *Runner) stopLocked() {
	r.running = false
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Reset stops the clock, places a fresh idle fleet, clears incidents and
// routes and sets the speed back to 1.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	if _, err := r.sim.SetSpeed(1); err != nil {
		return err
	}
	if err := r.sim.Reinitialize(); err != nil {
		return err
	}
	r.logger.Info("Simulation reset")
	return nil
}

// SetSpeed changes the multiplier. A running clock is rescheduled so the new
// interval applies from the next tick.
func (r *Runner) SetSpeed(m float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	speed, err := r.sim.SetSpeed(m)
	if err != nil {
		return speed, err
	}
	if r.running {
		r.gen++
		if r.timer != nil {
			r.timer.Stop()
		}
		r.scheduleLocked()
	}
	r.logger.WithField("speed", speed).Info("Speed changed")
	return speed, nil
}

func (r *Runner) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.Speed()
}

// UpdateConfig merges p into the settings and returns the result.
func (r *Runner) UpdateConfig(p PartialConfig) Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.UpdateConfig(p)
}

func (r *Runner) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.Config()
}

// AddIncident injects a manually reported incident.
func (r *Runner) AddIncident(req IncidentRequest) (models.DiscoveryPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.AddIncident(req)
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Snapshot returns a deep copy of the current state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Runner) snapshotLocked() Snapshot {
	snap := r.sim.Snapshot()
	snap.Running = r.running
	return snap
}

// Interval is the current wall-clock time between ticks.
func (r *Runner) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intervalLocked()
}

func (r *Runner) intervalLocked() time.Duration {
	return time.Duration(float64(r.base) / r.sim.Speed())
}

// Step runs exactly one tick synchronously and notifies observers. It works
// whether or not the clock is running.
func (r *Runner) Step() TickResult {
	r.mu.Lock()
	res := r.sim.Tick()
	snap := r.snapshotLocked()
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	notify(observers, res, snap)
	return res
}

func (r *Runner) scheduleLocked() {
	gen := r.gen
	r.timer = time.AfterFunc(r.intervalLocked(), func() { r.fire(gen) })
}

func (r *Runner) fire(gen uint64) {
	r.mu.Lock()
	if !r.running || gen != r.gen {
		r.mu.Unlock()
		return
	}
	res := r.sim.Tick()
	snap := r.snapshotLocked()
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	notify(observers, res, snap)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && gen == r.gen {
		r.scheduleLocked()
	}
}

func notify(observers []Observer, res TickResult, snap Snapshot) {
	for _, o := range observers {
		o.OnTick(res, snap)
	}
}
