package db

import (
	"context"

	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SettingsCollection stores the console settings document as raw JSON under a key.
type SettingsCollection interface {
	LoadSettings(ctx context.Context, key string) ([]byte, error)
	SaveSettings(ctx context.Context, key string, raw []byte) error
	ClearSettings(ctx context.Context, key string) error
}

// DeliveryCollection defines the interface for completed delivery records.
type DeliveryCollection interface {
	InsertDelivery(ctx context.Context, delivery models.Delivery) error
	FindDeliveries(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (DeliveryCursor, error)
}

// DeliveryCursor defines the interface for delivery cursor operations.
type DeliveryCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
