// Package wshub keeps the set of connected WebSocket clients, partitioned by
// role, and fans messages out to them.
package wshub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"shootinggallery/internal/metrics"
)

var (
	ErrUnknownClient     = errors.New("unknown client")
	ErrAlreadyIdentified = errors.New("client already identified")
	ErrInvalidRole       = errors.New("invalid client role")
	ErrNotWebClient      = errors.New("client is not a web client")
	ErrSendBufferFull    = errors.New("client send buffer full")
)

const DefaultSendBuffer = 64

// Role is what a client identified itself as.
type Role int

const (
	RoleUnidentified Role = iota
	RoleHardware
	RoleWeb
)

// String returns the role name used in log fields and client-facing messages.
func (r Role) String() string {
	switch r {
	case RoleHardware:
		return "hardware"
	case RoleWeb:
		return "web"
	default:
		return "unidentified"
	}
}

// Conn is the transport half of a client the registry needs: liveness probing
// and forced close.
type Conn interface {
	Ping(ctx context.Context) error
	Close(reason string) error
}

// Client is one registered connection. Outbound frames are queued on Send and
// written by the connection's write pump; Send is closed on unregister.
type Client struct {
	ID   string
	Send chan []byte

	conn        Conn
	role        Role
	sessionID   string
	playerName  string
	boundAt     time.Time
	connectedAt time.Time
	alive       bool
}

// ClientInfo is a point-in-time copy of a client's registry state.
type ClientInfo struct {
	ID          string
	Role        Role
	SessionID   string
	PlayerName  string
	BoundAt     time.Time
	ConnectedAt time.Time
	Alive       bool
}

func (c *Client) info() ClientInfo {
	return ClientInfo{
		ID:          c.ID,
		Role:        c.role,
		SessionID:   c.sessionID,
		PlayerName:  c.playerName,
		BoundAt:     c.boundAt,
		ConnectedAt: c.connectedAt,
		Alive:       c.alive,
	}
}

// Stats counts the connected clients by role. TotalClients includes
// unidentified clients.
type Stats struct {
	WebClients      int `json:"webClients"`
	HardwareClients int `json:"hardwareClients"`
	TotalClients    int `json:"totalClients"`
}

// Registry is safe for concurrent use. A single lock covers membership and
// role changes; sends happen under the read lock so a send channel is never
// written after it is closed.
type Registry struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	sendBuffer int
	now        func() time.Time
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewRegistry creates an empty Registry. m may be nil.
func NewRegistry(log *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		clients:    make(map[string]*Client),
		sendBuffer: DefaultSendBuffer,
		now:        time.Now,
		log:        log.Named("wshub"),
		metrics:    m,
	}
}

// Register adds a connection as an unidentified, alive client.
func (r *Registry) Register(conn Conn) *Client {
	c := &Client{
		ID:          uuid.NewString(),
		Send:        make(chan []byte, r.sendBuffer),
		conn:        conn,
		role:        RoleUnidentified,
		connectedAt: r.now(),
		alive:       true,
	}
	r.mu.Lock()
	r.clients[c.ID] = c
	r.updateGaugesLocked()
	r.mu.Unlock()
	r.log.Debug("client registered", zap.String("clientId", c.ID))
	return c
}

// Identify performs the one-time role transition. Web clients may carry a
// session binding.
func (r *Registry) Identify(id string, role Role, sessionID, playerName string) error {
	if role != RoleHardware && role != RoleWeb {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return ErrUnknownClient
	}
	if c.role != RoleUnidentified {
		return ErrAlreadyIdentified
	}
	c.role = role
	if role == RoleWeb {
		r.bindLocked(c, sessionID, playerName)
	}
	r.updateGaugesLocked()
	return nil
}

// BindSession replaces the session binding of a web client.
func (r *Registry) BindSession(id, sessionID, playerName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return ErrUnknownClient
	}
	if c.role != RoleWeb {
		return ErrNotWebClient
	}
	r.bindLocked(c, sessionID, playerName)
	return nil
}

func (r *Registry) bindLocked(c *Client, sessionID, playerName string) {
	c.sessionID = sessionID
	c.playerName = playerName
	if sessionID != "" {
		c.boundAt = r.now()
	} else {
		c.boundAt = time.Time{}
	}
}

// Unregister removes the client and closes its send channel. Removing an absent
// client is a no-op. The transport itself is left to the caller.
func (r *Registry) Unregister(id string) (ClientInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return ClientInfo{}, false
	}
	r.removeLocked(c)
	r.updateGaugesLocked()
	r.log.Debug("client unregistered", zap.String("clientId", id), zap.Stringer("role", c.role))
	return c.info(), true
}

func (r *Registry) removeLocked(c *Client) {
	delete(r.clients, c.ID)
	close(c.Send)
}

// Broadcast queues payload for every client in role and returns how many
// accepted it. Clients with a full buffer are skipped.
func (r *Registry) Broadcast(role Role, payload any) int {
	return r.BroadcastWhere(role, payload, nil)
}

// BroadcastWhere is Broadcast restricted to clients for which keep returns true.
// A nil keep selects every client of the role.
func (r *Registry) BroadcastWhere(role Role, payload any, keep func(ClientInfo) bool) int {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("marshal error", zap.Error(err))
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sent := 0
	for _, c := range r.clients {
		if c.role != role {
			continue
		}
		if keep != nil && !keep(c.info()) {
			continue
		}
		select {
		case c.Send <- data:
			sent++
		default:
			r.log.Warn("dropping message, send buffer full", zap.String("clientId", c.ID))
		}
	}
	r.metrics.Sent(role.String(), sent)
	return sent
}

// SendTo queues payload for a single client.
func (r *Registry) SendTo(id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return ErrUnknownClient
	}
	select {
	case c.Send <- data:
		r.metrics.Sent(c.role.String(), 1)
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Stats returns the current client counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statsLocked()
}

func (r *Registry) statsLocked() Stats {
	counts := lo.CountValuesBy(lo.Values(r.clients), func(c *Client) Role { return c.role })
	return Stats{
		WebClients:      counts[RoleWeb],
		HardwareClients: counts[RoleHardware],
		TotalClients:    len(r.clients),
	}
}

func (r *Registry) updateGaugesLocked() {
	if r.metrics == nil {
		return
	}
	s := r.statsLocked()
	r.metrics.SetClients(RoleWeb.String(), s.WebClients)
	r.metrics.SetClients(RoleHardware.String(), s.HardwareClients)
	r.metrics.SetClients(RoleUnidentified.String(), s.TotalClients-s.WebClients-s.HardwareClients)
}

// Client returns a snapshot of one client.
func (r *Registry) Client(id string) (ClientInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return ClientInfo{}, false
	}
	return c.info(), true
}

// Clients returns snapshots of every client in role.
func (r *Registry) Clients(role Role) []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matching := lo.Filter(lo.Values(r.clients), func(c *Client, _ int) bool { return c.role == role })
	return lo.Map(matching, func(c *Client, _ int) ClientInfo { return c.info() })
}

// MarkAlive records a pong from the client.
func (r *Registry) MarkAlive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.alive = true
	}
}

// sweep removes clients that missed the previous ping and marks the rest as
// awaiting a pong.
func (r *Registry) sweep() (dead, pending []*Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if !c.alive {
			r.removeLocked(c)
			dead = append(dead, c)
			continue
		}
		c.alive = false
		pending = append(pending, c)
	}
	if len(dead) > 0 {
		r.updateGaugesLocked()
	}
	return dead, pending
}
