package events

import (
	"encoding/json"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

// DefaultTopicPrefix roots every topic the notifier publishes to.
const DefaultTopicPrefix = "ems/sim"

// Summary is the compact per-tick state published to <prefix>/snapshot.
type Summary struct {
	SimulationID string  `json:"simulation_id"`
	Tick         uint64  `json:"tick"`
	Running      bool    `json:"running"`
	Speed        float64 `json:"speed"`
	Idle         int     `json:"idle"`
	EnRoute      int     `json:"en_route"`
	Incidents    int     `json:"incidents"`
	Routes       int     `json:"routes"`
}

// Summarize counts the snapshot's collections.
func Summarize(snap sim.Snapshot) Summary {
	s := Summary{
		SimulationID: snap.SimulationID,
		Tick:         snap.Tick,
		Running:      snap.Running,
		Speed:        snap.Speed,
		Incidents:    len(snap.Discoveries),
		Routes:       len(snap.Routes),
	}
	for _, a := range snap.Ambulances {
		if a.Status == models.StatusIdle {
			s.Idle++
		} else {
			s.EnRoute++
		}
	}
	return s
}

// Notifier is a sim.Observer that publishes arrivals, dispatches and a
// per-tick summary. Publish failures are logged and never stop the clock.
type Notifier struct {
	pub    Publisher
	prefix string
	logger log.FieldLogger
}

func NewNotifier(pub Publisher, prefix string, logger log.FieldLogger) *Notifier {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Notifier{pub: pub, prefix: prefix, logger: logger.WithField("component", "notifier")}
}

// Topic returns the full topic name for a suffix.
func (n *Notifier) Topic(suffix string) string {
	return n.prefix + "/" + suffix
}

func (n *Notifier) OnTick(res sim.TickResult, snap sim.Snapshot) {
	for _, d := range res.Arrivals {
		n.publish("arrivals", d)
	}
	for _, r := range res.Dispatched {
		n.publish("dispatches", r)
	}
	n.publish("snapshot", Summarize(snap))
}

func (n *Notifier) publish(suffix string, v interface{}) {
	topic := n.Topic(suffix)
	payload, err := json.Marshal(v)
	if err != nil {
		n.logger.WithError(err).WithField("topic", topic).Error("Failed to encode event")
		return
	}
	if err := n.pub.Publish(topic, payload); err != nil {
		n.logger.WithError(err).WithField("topic", topic).Warn("Failed to publish event")
	}
}
