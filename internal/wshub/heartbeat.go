package wshub

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultHeartbeatInterval = 30 * time.Second

// Monitor pings every client once per interval. A client that has not answered
// the previous ping when the next tick fires is unregistered and closed.
type Monitor struct {
	registry *Registry
	interval time.Duration
	log      *zap.Logger

	// OnPrune is called after a dead client has been removed and closed.
	OnPrune func(ClientInfo)
}

// NewMonitor creates a Monitor. A non-positive interval selects
// DefaultHeartbeatInterval.
func NewMonitor(r *Registry, interval time.Duration, log *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Monitor{
		registry: r,
		interval: interval,
		log:      log.Named("heartbeat"),
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.log.Info("heartbeat started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.log.Info("heartbeat stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep prunes clients that missed the last ping and pings the rest. Closes and
// pings run concurrently and do not block the caller. It returns the number pruned.
func (m *Monitor) Sweep(ctx context.Context) int {
	dead, pending := m.registry.sweep()

	for _, c := range dead {
		info := c.info()
		go m.terminate(c)
		m.registry.metrics.Pruned()
		m.log.Info("terminating dead connection", zap.String("clientId", c.ID), zap.Stringer("role", info.Role))
		if m.OnPrune != nil {
			m.OnPrune(info)
		}
	}

	for _, c := range pending {
		go m.ping(ctx, c)
	}
	return len(dead)
}

// terminate closes a pruned transport. A close handshake with an unresponsive
// peer can take seconds, so each runs on its own goroutine.
func (m *Monitor) terminate(c *Client) {
	if err := c.conn.Close("heartbeat timeout"); err != nil {
		m.log.Debug("close error", zap.String("clientId", c.ID), zap.Error(err))
	}
}

func (m *Monitor) ping(ctx context.Context, c *Client) {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()
	if err := c.conn.Ping(ctx); err != nil {
		m.log.Debug("ping failed", zap.String("clientId", c.ID), zap.Error(err))
		return
	}
	m.registry.MarkAlive(c.ID)
}
