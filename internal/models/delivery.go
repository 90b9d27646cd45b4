package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery records an ambulance completing a hospital delivery.
type Delivery struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SimulationID string             `json:"simulation_id" bson:"simulation_id"`
	DiscoveryID  string             `json:"discovery_id" bson:"discovery_id"`
	AmbulanceID  string             `json:"ambulance_id" bson:"ambulance_id"`
	HospitalID   string             `json:"hospital_id" bson:"hospital_id"`
	RouteID      string             `json:"route_id,omitempty" bson:"route_id,omitempty"`
	IncidentType string             `json:"incident_type,omitempty" bson:"incident_type,omitempty"`
	PeopleCount  int                `json:"people_count" bson:"people_count"`
	Tick         uint64             `json:"tick" bson:"tick"`
	DeliveredAt  time.Time          `json:"delivered_at" bson:"delivered_at"`
}
