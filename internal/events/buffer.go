package events

import (
	"context"
	"sync"

	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

// DeliveryBuffer keeps the most recent deliveries in memory. It serves the
// delivery log when no database is configured.
type DeliveryBuffer struct {
	mu    sync.Mutex
	size  int
	items []models.Delivery
}

func NewDeliveryBuffer(size int) *DeliveryBuffer {
	if size <= 0 {
		size = 500
	}
	return &DeliveryBuffer{size: size}
}

func (b *DeliveryBuffer) OnTick(res sim.TickResult, _ sim.Snapshot) {
	if len(res.Arrivals) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, res.Arrivals...)
	if over := len(b.items) - b.size; over > 0 {
		b.items = append([]models.Delivery(nil), b.items[over:]...)
	}
}

// Recent returns up to limit deliveries, newest first.
func (b *DeliveryBuffer) Recent(_ context.Context, simulationID string, limit int64) ([]models.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Delivery{}
	for i := len(b.items) - 1; i >= 0; i-- {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		if simulationID == "" || b.items[i].SimulationID == simulationID {
			out = append(out, b.items[i])
		}
	}
	return out, nil
}
