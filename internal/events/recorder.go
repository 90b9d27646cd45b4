package events

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/db"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const writeTimeout = 5 * time.Second

// DeliveryRecorder is a sim.Observer that stores every arrival.
type DeliveryRecorder struct {
	coll   db.DeliveryCollection
	logger log.FieldLogger
}

func NewDeliveryRecorder(coll db.DeliveryCollection, logger log.FieldLogger) *DeliveryRecorder {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &DeliveryRecorder{coll: coll, logger: logger.WithField("component", "deliveries")}
}

func (r *DeliveryRecorder) OnTick(res sim.TickResult, _ sim.Snapshot) {
	if len(res.Arrivals) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	for _, d := range res.Arrivals {
		if err := r.coll.InsertDelivery(ctx, d); err != nil {
			r.logger.WithError(err).WithFields(log.Fields{
				"ambulance_id": d.AmbulanceID,
				"discovery_id": d.DiscoveryID,
			}).Error("Failed to record delivery")
		}
	}
}

// Recent returns the newest deliveries, optionally limited to one simulation.
func (r *DeliveryRecorder) Recent(ctx context.Context, simulationID string, limit int64) ([]models.Delivery, error) {
	filter := bson.M{}
	if simulationID != "" {
		filter["simulation_id"] = simulationID
	}
	opts := options.Find().SetSort(bson.D{{Key: "delivered_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.coll.FindDeliveries(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find deliveries: %w", err)
	}
	defer cursor.Close(ctx)

	deliveries := []models.Delivery{}
	if err := cursor.All(ctx, &deliveries); err != nil {
		return nil, fmt.Errorf("decode deliveries: %w", err)
	}
	return deliveries, nil
}
