package models

import "time"

// AmbulanceStatus is the operational status shown to dispatchers.
type AmbulanceStatus string

const (
	StatusIdle    AmbulanceStatus = "idle"
	StatusEnRoute AmbulanceStatus = "en_route"
)

// Phase is the ambulance's position within its service cycle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseToDiscovery Phase = "to_discovery"
	PhaseAtDiscovery Phase = "at_discovery"
	PhaseToHospital  Phase = "to_hospital"
)

// Ambulance is a mutable fleet member driven by the motion engine.
type Ambulance struct {
	ID                string          `json:"id" bson:"id"`
	Location          Location        `json:"location" bson:"location"`
	Status            AmbulanceStatus `json:"status" bson:"status"`
	Phase             Phase           `json:"phase" bson:"phase"`
	HomeHospitalID    string          `json:"home_hospital_id" bson:"home_hospital_id"`
	Home              Location        `json:"home" bson:"home"`
	PatrolTarget      *Location       `json:"patrol_target,omitempty" bson:"patrol_target,omitempty"`
	TargetDiscoveryID string          `json:"target_discovery_id,omitempty" bson:"target_discovery_id,omitempty"`
	TargetHospitalID  string          `json:"target_hospital_id,omitempty" bson:"target_hospital_id,omitempty"`
	IdleSince         time.Time       `json:"idle_since" bson:"idle_since"`
	ArrivedAt         *time.Time      `json:"arrived_at,omitempty" bson:"arrived_at,omitempty"`
}

// IsIdle reports whether the ambulance can accept a dispatch.
func (a *Ambulance) IsIdle() bool {
	return a.Status == StatusIdle
}

// ResetToIdle clears every dispatch and patrol field and restarts the idle clock.
func (a *Ambulance) ResetToIdle(now time.Time) {
	a.Status = StatusIdle
	a.Phase = PhaseIdle
	a.TargetDiscoveryID = ""
	a.TargetHospitalID = ""
	a.PatrolTarget = nil
	a.ArrivedAt = nil
	a.IdleSince = now
}

// Dispatch sends the ambulance toward an incident with a destination hospital.
func (a *Ambulance) Dispatch(discoveryID, hospitalID string) {
	a.Status = StatusEnRoute
	a.Phase = PhaseToDiscovery
	a.TargetDiscoveryID = discoveryID
	a.TargetHospitalID = hospitalID
	a.PatrolTarget = nil
	a.ArrivedAt = nil
}

// Clone returns a copy that shares no pointers with the receiver.
func (a Ambulance) Clone() Ambulance {
	if a.PatrolTarget != nil {
		t := *a.PatrolTarget
		a.PatrolTarget = &t
	}
	if a.ArrivedAt != nil {
		t := *a.ArrivedAt
		a.ArrivedAt = &t
	}
	return a
}
