// Package relay classifies frames arriving over WebSocket connections and routes
// them between hardware devices, web clients and the session manager.
package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"shootinggallery/internal/metrics"
	"shootinggallery/internal/models"
	"shootinggallery/internal/sessions"
	"shootinggallery/internal/wshub"
)

// literalHitIncrement is the score carried by hit events that are not applied to
// a session.
const literalHitIncrement = 1

// HitRecorder applies a hit to a game session.
type HitRecorder interface {
	RegisterHit(ctx context.Context, sessionID string, in models.HitInput) (sessions.HitResult, error)
}

// Router applies the effects of inbound WebSocket frames.
type Router struct {
	registry *wshub.Registry
	hits     HitRecorder
	serverID string
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewRouter creates a Router. serverID is announced to every new client.
func NewRouter(registry *wshub.Registry, hits HitRecorder, serverID string, log *zap.Logger, m *metrics.Metrics) *Router {
	return &Router{
		registry: registry,
		hits:     hits,
		serverID: serverID,
		now:      time.Now,
		log:      log.Named("relay"),
		metrics:  m,
	}
}

func (r *Router) timestamp() int64 {
	return r.now().UnixMilli()
}

// Welcome greets a freshly registered client and asks it to identify.
func (r *Router) Welcome(clientID string) {
	err := r.registry.SendTo(clientID, ConnectionMessage{
		Type:      TypeConnection,
		Status:    "connected",
		Message:   welcomeText,
		ServerID:  r.serverID,
		Timestamp: r.timestamp(),
	})
	if err != nil {
		r.log.Warn("welcome not delivered", zap.String("clientId", clientID), zap.Error(err))
	}
}

// Handle processes one inbound frame. Errors never propagate to the transport;
// a panic is recovered and the frame is treated as unparseable.
func (r *Router) Handle(ctx context.Context, clientID string, raw []byte) {
	info, ok := r.registry.Client(clientID)
	if !ok {
		r.log.Debug("frame from unregistered client", zap.String("clientId", clientID))
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic while handling frame",
				zap.String("clientId", clientID),
				zap.Any("panic", rec))
			r.fallback(info, strings.TrimSpace(string(raw)))
		}
	}()

	frame := Parse(raw)
	r.metrics.Frame(frame.Kind())
	r.log.Debug("frame received",
		zap.String("clientId", clientID),
		zap.Stringer("role", info.Role),
		zap.String("kind", frame.Kind()))

	switch f := frame.(type) {
	case LiteralHit:
		r.literalHit(ctx, f)
	case Identify:
		r.identify(info, f)
	case SessionInfo:
		r.sessionInfo(info, f)
	case HitReport:
		if info.Role == wshub.RoleHardware {
			r.hardwareHit(f)
		} else {
			r.log.Info("hit report from non-hardware client ignored", zap.String("clientId", clientID))
		}
	case Click:
		r.log.Debug("click received", zap.String("clientId", clientID), zap.ByteString("position", f.Position))
	case Passthrough:
		if info.Role == wshub.RoleHardware {
			sent := r.registry.Broadcast(wshub.RoleWeb, f.Raw)
			r.log.Debug("forwarded device data", zap.String("type", f.Type), zap.Int("recipients", sent))
		} else {
			r.log.Debug("informational frame", zap.String("clientId", clientID), zap.String("type", f.Type))
		}
	case Unparsed:
		r.fallback(info, f.Text)
	}
}

// literalHit applies a bare hit to the session most recently bound by a web
// client. Web clients bound to that session get the scored result; every other
// web client gets the raw target hit.
func (r *Router) literalHit(ctx context.Context, f LiteralHit) {
	target := r.targetSession()

	var result sessions.HitResult
	if target != "" {
		var err error
		result, err = r.hits.RegisterHit(ctx, target, models.HitInput{})
		if err != nil {
			r.log.Warn("failed to apply hit to session", zap.String("sessionId", target), zap.Error(err))
			target = ""
		}
	}

	if target != "" {
		sent := r.registry.BroadcastWhere(wshub.RoleWeb, HitRegisteredMessage{
			Type:           TypeHitRegistered,
			SessionID:      target,
			TargetID:       result.Hit.TargetID,
			Zone:           result.Hit.Zone,
			ScoreIncrement: result.Hit.Points,
			CurrentScore:   result.CurrentScore,
			HitCount:       result.HitCount,
			Accuracy:       result.Accuracy,
			RawMessage:     f.Token,
			Timestamp:      r.timestamp(),
		}, func(c wshub.ClientInfo) bool { return c.SessionID == target })
		r.log.Info("hit registered", zap.String("sessionId", target), zap.Int("score", result.CurrentScore), zap.Int("recipients", sent))
	}

	r.registry.BroadcastWhere(wshub.RoleWeb, TargetHitMessage{
		Type:           TypeTargetHit,
		TargetID:       0,
		Accuracy:       models.DefaultHitAccuracy,
		Zone:           models.ZoneCenter,
		ScoreIncrement: literalHitIncrement,
		Score:          literalHitIncrement,
		RawMessage:     f.Token,
		Timestamp:      r.timestamp(),
	}, func(c wshub.ClientInfo) bool { return target == "" || c.SessionID != target })

	r.broadcastStats(TypeConnectionStats)
}

// targetSession picks the session bound most recently by any web client, or ""
// when none is bound.
func (r *Router) targetSession() string {
	bound := lo.Filter(r.registry.Clients(wshub.RoleWeb), func(c wshub.ClientInfo, _ int) bool {
		return c.SessionID != ""
	})
	if len(bound) == 0 {
		return ""
	}
	latest := lo.MaxBy(bound, func(a, b wshub.ClientInfo) bool { return a.BoundAt.After(b.BoundAt) })
	if ids := lo.Uniq(lo.Map(bound, func(c wshub.ClientInfo, _ int) string { return c.SessionID })); len(ids) > 1 {
		r.log.Warn("several sessions bound, applying hit to the latest",
			zap.Strings("sessions", ids),
			zap.String("sessionId", latest.SessionID))
	}
	return latest.SessionID
}

func parseClientType(s string) (wshub.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hardware", "nodemcu":
		return wshub.RoleHardware, true
	case "web":
		return wshub.RoleWeb, true
	}
	return wshub.RoleUnidentified, false
}

func (r *Router) identify(info wshub.ClientInfo, f Identify) {
	role, ok := parseClientType(f.ClientType)
	if !ok {
		r.log.Warn("unknown client type", zap.String("clientId", info.ID), zap.String("clientType", f.ClientType))
		return
	}
	if err := r.registry.Identify(info.ID, role, f.SessionID, f.PlayerName); err != nil {
		r.log.Warn("identification rejected", zap.String("clientId", info.ID), zap.Error(err))
		return
	}

	switch role {
	case wshub.RoleHardware:
		r.log.Info("hardware device identified", zap.String("clientId", info.ID))
		r.broadcastStats(TypeHardwareConnected)
	case wshub.RoleWeb:
		r.log.Info("web client identified", zap.String("clientId", info.ID), zap.String("sessionId", f.SessionID))
		r.broadcastStats(TypeConnectionStats)
	}

	err := r.registry.SendTo(info.ID, IdentificationConfirmed{
		Type:       TypeIdentificationConfirmed,
		ClientType: f.ClientType,
	})
	if err != nil {
		r.log.Warn("acknowledgement not delivered", zap.String("clientId", info.ID), zap.Error(err))
	}
}

func (r *Router) sessionInfo(info wshub.ClientInfo, f SessionInfo) {
	err := r.registry.BindSession(info.ID, f.SessionID, f.PlayerName)
	if errors.Is(err, wshub.ErrNotWebClient) {
		r.log.Debug("session info from non-web client ignored", zap.String("clientId", info.ID))
		return
	}
	if err != nil {
		r.log.Warn("session binding failed", zap.String("clientId", info.ID), zap.Error(err))
		return
	}
	r.log.Info("session bound", zap.String("clientId", info.ID), zap.String("sessionId", f.SessionID))
}

func (r *Router) hardwareHit(f HitReport) {
	msg := TargetHitMessage{
		Type:           TypeTargetHit,
		Accuracy:       models.DefaultHitAccuracy,
		Zone:           models.ZoneCenter,
		ScoreIncrement: literalHitIncrement,
		Score:          literalHitIncrement,
		HitValue:       f.Value,
		Timestamp:      r.timestamp(),
	}
	if f.TargetID != nil {
		msg.TargetID = *f.TargetID
	}
	if f.Accuracy != nil {
		msg.Accuracy = min(max(*f.Accuracy, 0), 100)
	}
	if zone, err := models.ParseZone(f.Zone); err == nil {
		msg.Zone = zone
	} else {
		r.log.Debug("unknown zone in hit report", zap.String("zone", f.Zone))
	}

	sent := r.registry.Broadcast(wshub.RoleWeb, msg)
	r.log.Debug("hit forwarded", zap.Int("targetId", msg.TargetID), zap.Int("recipients", sent))
	r.broadcastStats(TypeConnectionStats)
}

// fallback forwards unparseable input that looks like a hit, or any input from a
// hardware device, as a possible hit event. Everything else is dropped.
func (r *Router) fallback(info wshub.ClientInfo, text string) {
	msg := FallbackMessage{
		Type:       TypeUnparsedMessage,
		RawContent: text,
		ClientType: info.Role.String(),
		Timestamp:  r.timestamp(),
	}
	if !hasHitHint(text) && info.Role != wshub.RoleHardware {
		r.log.Debug("dropping unparseable frame", zap.String("clientId", info.ID), zap.String("raw", text))
		return
	}
	msg.Type = TypePossibleHitEvent
	sent := r.registry.Broadcast(wshub.RoleWeb, msg)
	r.log.Info("forwarded unparseable frame as possible hit", zap.String("clientId", info.ID), zap.Int("recipients", sent))
}

func (r *Router) broadcastStats(msgType string) int {
	return r.registry.Broadcast(wshub.RoleWeb, StatsMessage{
		Type:      msgType,
		Stats:     r.registry.Stats(),
		Timestamp: r.timestamp(),
	})
}

// Disconnect unregisters a client whose transport closed.
func (r *Router) Disconnect(clientID string) {
	if info, ok := r.registry.Unregister(clientID); ok {
		r.Departed(info)
	}
}

// Departed tells the remaining web clients that a client left.
func (r *Router) Departed(info wshub.ClientInfo) {
	r.log.Info("connection closed", zap.String("clientId", info.ID), zap.Stringer("role", info.Role))
	switch info.Role {
	case wshub.RoleHardware:
		r.broadcastStats(TypeHardwareDisconnected)
	case wshub.RoleWeb:
		r.broadcastStats(TypeConnectionStats)
	}
}
