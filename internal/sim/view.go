package sim

import (
	"fmt"
	"strings"

	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

// PeopleBucket selects incidents by people count, matching the console's
// filter menu.
type PeopleBucket string

const (
	PeopleAll       PeopleBucket = "all"
	PeopleTenPlus   PeopleBucket = "10+"
	PeopleFiveNine  PeopleBucket = "5-9"
	PeopleThreeFour PeopleBucket = "3-4"
	PeopleTwo       PeopleBucket = "2"
	PeopleOne       PeopleBucket = "1"
	PeopleZero      PeopleBucket = "0"
)

// ParsePeopleBucket accepts the bucket names above; empty means all.
func ParsePeopleBucket(s string) (PeopleBucket, error) {
	switch b := PeopleBucket(strings.TrimSpace(s)); b {
	case "":
		return PeopleAll, nil
	case PeopleAll, PeopleTenPlus, PeopleFiveNine, PeopleThreeFour, PeopleTwo, PeopleOne, PeopleZero:
		return b, nil
	}
	return "", fmt.Errorf("unknown people filter %q", s)
}

// Match reports whether n people falls in b.
func (b PeopleBucket) Match(n int) bool {
	switch b {
	case PeopleTenPlus:
		return n >= 10
	case PeopleFiveNine:
		return n >= 5 && n <= 9
	case PeopleThreeFour:
		return n == 3 || n == 4
	case PeopleTwo:
		return n == 2
	case PeopleOne:
		return n == 1
	case PeopleZero:
		return n == 0
	}
	return true
}

// Filter narrows a snapshot for display. Zero values match everything.
type Filter struct {
	Status models.AmbulanceStatus
	People PeopleBucket
	Query  string
}

// Segment is a straight line drawn for an active route.
type Segment struct {
	RouteID string          `json:"route_id"`
	From    models.Location `json:"from"`
	To      models.Location `json:"to"`
	Color   string          `json:"color"`
}

// View is a filtered snapshot with derived display data.
type View struct {
	Snapshot
	Severities map[string]string `json:"severities"`
	Segments   []Segment         `json:"segments"`
}

// Apply filters ambulances by status and incidents by people bucket and name.
// Routes are kept only while their incident is still shown.
func (f Filter) Apply(snap Snapshot) View {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	ambulances := make([]models.Ambulance, 0, len(snap.Ambulances))
	for _, a := range snap.Ambulances {
		if f.Status == "" || a.Status == f.Status {
			ambulances = append(ambulances, a)
		}
	}

	shown := make(map[string]bool)
	discoveries := make([]models.DiscoveryPoint, 0, len(snap.Discoveries))
	severities := make(map[string]string)
	for _, d := range snap.Discoveries {
		if !f.People.Match(d.PeopleCount) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(d.Name), q) {
			continue
		}
		shown[d.ID] = true
		discoveries = append(discoveries, d)
		severities[d.ID] = d.Severity()
	}

	routes := make([]models.Route, 0, len(snap.Routes))
	for _, r := range snap.Routes {
		if shown[r.DiscoveryPointID] {
			routes = append(routes, r)
		}
	}

	snap.Ambulances = ambulances
	snap.Discoveries = discoveries
	snap.Routes = routes
	return View{
		Snapshot:   snap,
		Severities: severities,
		Segments:   RouteSegments(snap),
	}
}

// RouteSegments returns the line to draw for each route: ambulance to
// incident while loading there, ambulance to hospital while transporting.
// Routes in other phases draw nothing.
func RouteSegments(snap Snapshot) []Segment {
	ambulances := make(map[string]models.Ambulance, len(snap.Ambulances))
	for _, a := range snap.Ambulances {
		ambulances[a.ID] = a
	}
	discoveries := make(map[string]models.Location, len(snap.Discoveries))
	for _, d := range snap.Discoveries {
		discoveries[d.ID] = d.Location
	}
	hospitals := make(map[string]models.Location, len(snap.Hospitals))
	for _, h := range snap.Hospitals {
		hospitals[h.ID] = h.Location
	}

	var out []Segment
	for _, r := range snap.Routes {
		a, ok := ambulances[r.AmbulanceID]
		if !ok {
			continue
		}
		var to models.Location
		switch a.Phase {
		case models.PhaseAtDiscovery:
			to, ok = discoveries[r.DiscoveryPointID]
		case models.PhaseToHospital:
			to, ok = hospitals[r.HospitalID]
		default:
			ok = false
		}
		if ok {
			out = append(out, Segment{RouteID: r.ID, From: a.Location, To: to, Color: r.Color})
		}
	}
	return out
}
