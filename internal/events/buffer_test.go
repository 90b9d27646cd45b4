package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

func TestDeliveryBuffer(t *testing.T) {
	buf := NewDeliveryBuffer(3)
	for i := 1; i <= 4; i++ {
		buf.OnTick(sim.TickResult{Tick: uint64(i), Arrivals: []models.Delivery{{SimulationID: "sim-1", Tick: uint64(i)}}}, sim.Snapshot{})
	}
	buf.OnTick(sim.TickResult{Tick: 5}, sim.Snapshot{})

	got, err := buf.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(4), got[0].Tick)
	assert.Equal(t, uint64(2), got[2].Tick)

	got, _ = buf.Recent(context.Background(), "sim-1", 1)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(4), got[0].Tick)

	got, _ = buf.Recent(context.Background(), "other", 10)
	assert.Empty(t, got)
}
