// Package metrics exposes Prometheus collectors for the relay and the session store.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shooting_gallery"

// Metrics holds the relay's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	clients      *prometheus.GaugeVec
	frames       *prometheus.CounterVec
	sent         *prometheus.CounterVec
	pruned       prometheus.Counter
	sessionEvent *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		clients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket clients by role.",
		}, []string{"role"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "frames_total",
			Help:      "Inbound frames by classified kind.",
		}, []string{"kind"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "messages_sent_total",
			Help:      "Outbound messages queued by recipient role.",
		}, []string{"role"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "heartbeat_pruned_total",
			Help:      "Clients removed after missing a heartbeat.",
		}),
		sessionEvent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Game session events by type.",
		}, []string{"event"}),
	}
	for _, c := range []prometheus.Collector{m.clients, m.frames, m.sent, m.pruned, m.sessionEvent} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SetClients sets the connected client gauge for role.
func (m *Metrics) SetClients(role string, n int) {
	if m == nil {
		return
	}
	m.clients.WithLabelValues(role).Set(float64(n))
}

// Frame counts an inbound frame by classification.
func (m *Metrics) Frame(kind string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(kind).Inc()
}

// Sent adds n delivered outbound messages for role.
func (m *Metrics) Sent(role string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sent.WithLabelValues(role).Add(float64(n))
}

// Pruned counts a client removed by the heartbeat.
func (m *Metrics) Pruned() {
	if m == nil {
		return
	}
	m.pruned.Inc()
}

// SessionEvent counts a session lifecycle event.
func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionEvent.WithLabelValues(event).Inc()
}
