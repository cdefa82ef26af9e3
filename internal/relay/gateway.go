package relay

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"shootinggallery/internal/models"
	"shootinggallery/internal/wshub"
)

var (
	ErrNoHardware      = errors.New("no hardware devices connected")
	ErrCommandRequired = errors.New("command is required")
)

const (
	defaultStartMode = "normal"
	testMessageText  = "Hello from backend API!"
)

// Gateway lets the REST layer push commands to hardware devices and events to
// web clients.
type Gateway struct {
	registry *wshub.Registry
	now      func() time.Time
	log      *zap.Logger
}

// NewGateway creates a Gateway over registry.
func NewGateway(registry *wshub.Registry, log *zap.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		now:      time.Now,
		log:      log.Named("gateway"),
	}
}

// StartOptions configures a game start. Zero fields take the defaults.
type StartOptions struct {
	GameMode    string `json:"gameMode"`
	Duration    int    `json:"duration"`
	TargetCount int    `json:"targetCount"`
}

// StartGame tells hardware to begin a round. It returns ErrNoHardware when no
// device received the command.
func (g *Gateway) StartGame(opts StartOptions) (GameStartCommand, error) {
	cmd := GameStartCommand{
		Type:        TypeGameStart,
		GameMode:    opts.GameMode,
		Duration:    opts.Duration,
		TargetCount: opts.TargetCount,
		Timestamp:   g.now().UnixMilli(),
	}
	if cmd.GameMode == "" {
		cmd.GameMode = defaultStartMode
	}
	if cmd.Duration <= 0 {
		cmd.Duration = models.DefaultDuration
	}
	if cmd.TargetCount <= 0 {
		cmd.TargetCount = models.DefaultTargetCount
	}
	return cmd, g.toHardware(cmd.Type, cmd)
}

// StopGame tells hardware to end the current round.
func (g *Gateway) StopGame() (SimpleCommand, error) {
	cmd := SimpleCommand{Type: TypeGameStop, Timestamp: g.now().UnixMilli()}
	return cmd, g.toHardware(cmd.Type, cmd)
}

// ResetGame tells hardware to reset its targets.
func (g *Gateway) ResetGame() (SimpleCommand, error) {
	cmd := SimpleCommand{Type: TypeGameReset, Timestamp: g.now().UnixMilli()}
	return cmd, g.toHardware(cmd.Type, cmd)
}

// SendCommand relays an arbitrary named command. Nil data is sent as an empty object.
func (g *Gateway) SendCommand(name string, data any) (CustomCommand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CustomCommand{}, ErrCommandRequired
	}
	if data == nil {
		data = map[string]any{}
	}
	cmd := CustomCommand{
		Type:      TypeCustomCommand,
		Command:   name,
		Data:      data,
		Timestamp: g.now().UnixMilli(),
	}
	return cmd, g.toHardware(name, cmd)
}

// TestConnection sends a test message to hardware and reports whether any
// device received it.
func (g *Gateway) TestConnection() (TestMessage, bool) {
	msg := TestMessage{
		Type:      TypeTestMessage,
		Message:   testMessageText,
		Timestamp: g.now().UnixMilli(),
	}
	return msg, g.toHardware(msg.Type, msg) == nil
}

// Status is the relay state reported to REST clients.
type Status struct {
	wshub.Stats
	ServerInitialized bool `json:"serverInitialized"`
}

// Status returns the current client counts.
func (g *Gateway) Status() Status {
	return Status{Stats: g.registry.Stats(), ServerInitialized: true}
}

// NotifyWeb pushes an event to every web client and returns the recipient count.
func (g *Gateway) NotifyWeb(payload any) int {
	return g.registry.Broadcast(wshub.RoleWeb, payload)
}

func (g *Gateway) toHardware(name string, payload any) error {
	sent := g.registry.Broadcast(wshub.RoleHardware, payload)
	if sent == 0 {
		g.log.Warn("command not delivered, no hardware connected", zap.String("command", name))
		return ErrNoHardware
	}
	g.log.Info("command sent to hardware", zap.String("command", name), zap.Int("devices", sent))
	return nil
}
