package models

import "time"

// DiscoveryPoint is a reported incident waiting for or receiving service.
type DiscoveryPoint struct {
	ID           string    `json:"id" bson:"id"`
	Name         string    `json:"name" bson:"name"`
	Location     Location  `json:"location" bson:"location"`
	IncidentType string    `json:"incident_type" bson:"incident_type"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	PeopleCount  int       `json:"people_count" bson:"people_count"`
}

// Severity buckets used by map badges and the people-count filter.
const (
	SeverityNone         = "none"
	SeverityLow          = "low"
	SeverityModerate     = "moderate"
	SeverityModerateHigh = "moderateHigh"
	SeverityHigh         = "high"
	SeverityCritical     = "critical"
)

// Severity maps the people count onto its badge bucket.
func (d DiscoveryPoint) Severity() string {
	switch n := d.PeopleCount; {
	case n >= 10:
		return SeverityCritical
	case n >= 5:
		return SeverityHigh
	case n >= 3:
		return SeverityModerateHigh
	case n == 2:
		return SeverityModerate
	case n == 1:
		return SeverityLow
	default:
		return SeverityNone
	}
}
