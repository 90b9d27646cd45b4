package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testDatabase connects to MONGO_URI or skips the test.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("test_ems")
}

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "bad://uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestMongoCollection_NilCollection(t *testing.T) {
	coll := &MongoCollection{}
	ctx := context.Background()

	_, err := coll.LoadSettings(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, coll.SaveSettings(ctx, "k", []byte("{}")))
	assert.Error(t, coll.ClearSettings(ctx, "k"))
	assert.Error(t, coll.InsertDelivery(ctx, models.Delivery{}))
	_, err = coll.FindDeliveries(ctx, bson.M{})
	assert.Error(t, err)
}

func TestMongoCollection_Settings_Integration(t *testing.T) {
	database := testDatabase(t)
	collection := database.Collection("settings")
	ctx := context.Background()
	_ = collection.Drop(ctx)

	coll := &MongoCollection{Collection: collection}

	_, err := coll.LoadSettings(ctx, "ems_simulation_settings")
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	require.NoError(t, coll.SaveSettings(ctx, "ems_simulation_settings", []byte(`{"maxIncidents":5}`)))
	require.NoError(t, coll.SaveSettings(ctx, "ems_simulation_settings", []byte(`{"maxIncidents":7}`)))

	raw, err := coll.LoadSettings(ctx, "ems_simulation_settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"maxIncidents":7}`, string(raw))

	require.NoError(t, coll.ClearSettings(ctx, "ems_simulation_settings"))
	_, err = coll.LoadSettings(ctx, "ems_simulation_settings")
	assert.ErrorIs(t, err, ErrSettingsNotFound)
}

func TestMongoCollection_Deliveries_Integration(t *testing.T) {
	database := testDatabase(t)
	collection := database.Collection("deliveries")
	ctx := context.Background()
	_ = collection.Drop(ctx)

	coll := &MongoCollection{Collection: collection}
	for i := 1; i <= 3; i++ {
		require.NoError(t, coll.InsertDelivery(ctx, models.Delivery{
			SimulationID: "sim-1",
			AmbulanceID:  "a1",
			Tick:         uint64(i),
			DeliveredAt:  time.Now(),
		}))
	}

	opts := options.Find().SetSort(bson.D{{Key: "tick", Value: -1}}).SetLimit(2)
	cursor, err := coll.FindDeliveries(ctx, bson.M{"simulation_id": "sim-1"}, opts)
	require.NoError(t, err)
	defer cursor.Close(ctx)

	var got []models.Delivery
	require.NoError(t, cursor.All(ctx, &got))
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].Tick)
	assert.False(t, got[0].ID.IsZero())
}
