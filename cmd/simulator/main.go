package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/config"
	"github.com/ukydev/ems-dispatch-sim/internal/data"
	"github.com/ukydev/ems-dispatch-sim/internal/events"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

// stats counts what happened over a run.
type stats struct {
	Ticks      uint64
	Dispatched int
	Spawned    int
	Delivered  int
	Reverted   int
}

// tickLogger logs every dispatch and delivery and keeps the run totals.
type tickLogger struct {
	logger log.FieldLogger

	mu     sync.Mutex
	totals stats
}

func (l *tickLogger) Totals() stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}

func (l *tickLogger) OnTick(res sim.TickResult, snap sim.Snapshot) {
	for _, r := range res.Dispatched {
		l.logger.WithFields(log.Fields{
			"tick":      res.Tick,
			"route":     r.ID,
			"ambulance": r.AmbulanceID,
			"incident":  r.DiscoveryPointID,
			"hospital":  r.HospitalID,
		}).Info("Ambulance dispatched")
	}
	for _, d := range res.Arrivals {
		l.logger.WithFields(log.Fields{
			"tick":      res.Tick,
			"ambulance": d.AmbulanceID,
			"incident":  d.DiscoveryID,
			"hospital":  d.HospitalID,
			"people":    d.PeopleCount,
		}).Info("Patients delivered")
	}
	for _, id := range res.Reverted {
		l.logger.WithFields(log.Fields{"tick": res.Tick, "ambulance": id}).Warn("Ambulance lost its target and returned to patrol")
	}
	l.logger.WithFields(log.Fields{
		"tick":       res.Tick,
		"incidents":  len(snap.Discoveries),
		"routes":     len(snap.Routes),
		"spawned":    len(res.Spawned),
		"dispatched": len(res.Dispatched),
		"delivered":  len(res.Arrivals),
	}).Debug("Tick")

	l.mu.Lock()
	l.totals.Ticks = res.Tick
	l.totals.Dispatched += len(res.Dispatched)
	l.totals.Spawned += len(res.Spawned)
	l.totals.Delivered += len(res.Arrivals)
	l.totals.Reverted += len(res.Reverted)
	l.mu.Unlock()
}

// virtualClock lets a bounded run advance time without sleeping.
type virtualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *virtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// run drives the engine. With cfg.Ticks set it fast-forwards that many ticks
// on a virtual clock advancing one base interval per tick; otherwise it runs
// on the wall clock until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, logger log.FieldLogger) (stats, error) {
	hospitals, err := data.HospitalsFrom(cfg.HospitalsFile)
	if err != nil {
		return stats{}, err
	}

	opts := sim.Options{Hospitals: hospitals, Logger: logger}
	if cfg.Seed != 0 {
		opts.Rand = rand.New(rand.NewSource(cfg.Seed))
	}
	var clock *virtualClock
	if cfg.Ticks > 0 {
		clock = &virtualClock{t: time.Now()}
		opts.Now = clock.Now
	}

	engine, err := sim.New(opts)
	if err != nil {
		return stats{}, err
	}
	runner := sim.NewRunner(engine, sim.RunnerOptions{BaseInterval: cfg.BaseTick, Logger: logger})

	tl := &tickLogger{logger: logger}
	runner.AddObserver(tl)

	if cfg.MQTTEnabled() {
		pub, err := events.NewMQTTPublisher(cfg.MQTTOptions(), logger)
		if err != nil {
			logger.WithError(err).Warn("MQTT unavailable, events will not be published")
		} else {
			defer pub.Close()
			runner.AddObserver(events.NewNotifier(pub, cfg.MQTTTopicPrefix, logger))
		}
	}

	logger.WithFields(log.Fields{
		"simulation_id": engine.ID(),
		"hospitals":     len(hospitals),
		"ticks":         cfg.Ticks,
		"base_tick":     cfg.BaseTick,
	}).Info("Starting headless simulation")

	if clock != nil {
		if err := runner.Reset(); err != nil {
			return stats{}, err
		}
		for i := 0; i < cfg.Ticks; i++ {
			if ctx.Err() != nil {
				break
			}
			clock.Advance(runner.Interval())
			runner.Step()
		}
		return tl.Totals(), nil
	}

	if err := runner.Start(nil); err != nil {
		return stats{}, err
	}
	<-ctx.Done()
	runner.Stop()
	return tl.Totals(), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	totals, err := run(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Simulation failed")
	}
	logger.WithFields(log.Fields{
		"ticks":      totals.Ticks,
		"spawned":    totals.Spawned,
		"dispatched": totals.Dispatched,
		"delivered":  totals.Delivered,
		"reverted":   totals.Reverted,
	}).Info("Simulation finished")
}
