package sim

import (
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, base time.Duration) *Runner {
	t.Helper()
	s, err := New(Options{
		Hospitals: testHospitals(),
		Config:    quietConfig(),
		Rand:      rand.New(rand.NewSource(7)),
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	return NewRunner(s, RunnerOptions{BaseInterval: base, Logger: quietLogger()})
}

func TestRunner_StartStop(t *testing.T) {
	r := newTestRunner(t, 5*time.Millisecond)
	var ticks atomic.Int64
	r.AddObserver(ObserverFunc(func(res TickResult, snap Snapshot) {
		ticks.Add(1)
		assert.Equal(t, res.Tick, snap.Tick)
		assert.True(t, snap.Running)
	}))

	require.NoError(t, r.Start(nil))
	assert.True(t, r.Running())
	assert.ErrorIs(t, r.Start(nil), ErrAlreadyRunning)

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	r.Stop()
	assert.False(t, r.Running())
	r.Stop()

	stopped := r.Snapshot()
	assert.False(t, stopped.Running)
	assert.NotEmpty(t, stopped.Ambulances, "state stays visible after stop")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped.Tick, r.Snapshot().Tick, "no tick may land after Stop returns")
}

func TestRunner_StartAppliesConfig(t *testing.T) {
	r := newTestRunner(t, time.Hour)
	per := 3
	require.NoError(t, r.Start(&PartialConfig{AmbulancesPerHospital: &per}))
	defer r.Stop()

	assert.Equal(t, 3, r.Config().AmbulancesPerHospital)
	assert.Len(t, r.Snapshot().Ambulances, 6)
}

func TestRunner_Reset(t *testing.T) {
	r := newTestRunner(t, 5*time.Millisecond)
	require.NoError(t, r.Start(nil))
	_, err := r.SetSpeed(3)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.Snapshot().Tick >= 2 }, time.Second, time.Millisecond)

	require.NoError(t, r.Reset())

	snap := r.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, 1.0, snap.Speed)
	assert.Zero(t, snap.Tick)
	assert.Empty(t, snap.Discoveries)
	assert.Empty(t, snap.Routes)
	for _, a := range snap.Ambulances {
		assert.True(t, a.IsIdle())
		assert.Equal(t, a.Home, a.Location)
	}

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, r.Snapshot().Tick, "a stale timer must not tick after reset")
}

func TestRunner_SetSpeedChangesInterval(t *testing.T) {
	r := newTestRunner(t, time.Second)
	assert.Equal(t, time.Second, r.Interval())

	got, err := r.SetSpeed(2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
	assert.Equal(t, 500*time.Millisecond, r.Interval())
	assert.Equal(t, 2.0, r.Speed())

	_, err = r.SetSpeed(0)
	assert.ErrorIs(t, err, ErrInvalidSpeed)
	assert.Equal(t, 2.0, r.Speed())
}

func TestRunner_SetSpeedWhileRunning(t *testing.T) {
	r := newTestRunner(t, time.Hour)
	require.NoError(t, r.Start(nil))
	defer r.Stop()

	// At speed 1 the first tick is an hour away; a huge multiplier
	// reschedules it almost immediately.
	_, err := r.SetSpeed(MaxSpeed)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Minute, r.Interval())
	assert.Zero(t, r.Snapshot().Tick)
}

func TestRunner_Step(t *testing.T) {
	r := newTestRunner(t, time.Hour)
	var got []uint64
	r.AddObserver(ObserverFunc(func(res TickResult, _ Snapshot) { got = append(got, res.Tick) }))

	r.Step()
	r.Step()

	assert.Equal(t, []uint64{1, 2}, got)
	assert.False(t, r.Running())
}

func TestRunner_AddIncident(t *testing.T) {
	r := newTestRunner(t, time.Hour)
	require.NoError(t, r.Start(nil))
	defer r.Stop()

	d, err := r.AddIncident(IncidentRequest{Name: "Manual"})
	require.NoError(t, err)
	assert.Equal(t, "Manual", d.Name)

	res := r.Step()
	require.Len(t, res.Dispatched, 1)
	assert.Equal(t, d.ID, res.Dispatched[0].DiscoveryPointID)
}
