package models

// Priority is the display priority of a route.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities lists every priority level in display order.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

var priorityColors = map[Priority]string{
	PriorityCritical: "#EA580C",
	PriorityHigh:     "#DC2626",
	PriorityMedium:   "#0891B2",
	PriorityLow:      "#059669",
}

// Color returns the fixed display color of the priority.
func (p Priority) Color() string {
	return priorityColors[p]
}

// Route links an incident to the ambulance serving it and the destination hospital.
type Route struct {
	ID               string   `json:"id" bson:"id"`
	DiscoveryPointID string   `json:"discovery_point_id" bson:"discovery_point_id"`
	AmbulanceID      string   `json:"ambulance_id" bson:"ambulance_id"`
	HospitalID       string   `json:"hospital_id" bson:"hospital_id"`
	Priority         Priority `json:"priority" bson:"priority"`
	Color            string   `json:"color" bson:"color"`
}
