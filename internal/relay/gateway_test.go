package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shootinggallery/internal/wshub"
)

func TestGatewayWithoutHardware(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	g := NewGateway(h.reg, zap.NewNop())

	_, err := g.StartGame(StartOptions{})
	assert.ErrorIs(t, err, ErrNoHardware)
	_, err = g.StopGame()
	assert.ErrorIs(t, err, ErrNoHardware)
	_, err = g.ResetGame()
	assert.ErrorIs(t, err, ErrNoHardware)
	_, err = g.SendCommand("calibrate", nil)
	assert.ErrorIs(t, err, ErrNoHardware)

	_, delivered := g.TestConnection()
	assert.False(t, delivered)
	assert.Empty(t, drain(t, web), "commands must never reach web clients")
}

func TestGatewayStartDefaults(t *testing.T) {
	h := newHarness(t)
	hw := h.connect(t, wshub.RoleHardware, "")
	g := NewGateway(h.reg, zap.NewNop())

	cmd, err := g.StartGame(StartOptions{})
	require.NoError(t, err)
	assert.Equal(t, "game_start", cmd.Type)
	assert.Equal(t, "normal", cmd.GameMode)
	assert.Equal(t, 60, cmd.Duration)
	assert.Equal(t, 10, cmd.TargetCount)

	msgs := drain(t, hw)
	require.Len(t, msgs, 1)
	assert.Equal(t, "game_start", msgs[0]["type"])
	assert.Equal(t, "normal", msgs[0]["gameMode"])

	cmd, err = g.StartGame(StartOptions{GameMode: "hard", Duration: 30, TargetCount: 5})
	require.NoError(t, err)
	assert.Equal(t, "hard", cmd.GameMode)
	assert.Equal(t, 30, cmd.Duration)
	assert.Equal(t, 5, cmd.TargetCount)
}

func TestGatewayCommands(t *testing.T) {
	h := newHarness(t)
	hw1 := h.connect(t, wshub.RoleHardware, "")
	hw2 := h.connect(t, wshub.RoleHardware, "")
	g := NewGateway(h.reg, zap.NewNop())

	_, err := g.StopGame()
	require.NoError(t, err)
	_, err = g.ResetGame()
	require.NoError(t, err)
	cmd, err := g.SendCommand("led", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, cmd.Data)

	msg, delivered := g.TestConnection()
	assert.True(t, delivered)
	assert.Equal(t, "Hello from backend API!", msg.Message)

	for _, c := range []*wshub.Client{hw1, hw2} {
		msgs := drain(t, c)
		assert.Equal(t, []string{"game_stop", "game_reset", "custom_command", "test_message"}, types(msgs))
		assert.Equal(t, "led", msgs[2]["command"])
		assert.Equal(t, map[string]any{}, msgs[2]["data"])
	}
}

func TestGatewayCommandRequired(t *testing.T) {
	h := newHarness(t)
	h.connect(t, wshub.RoleHardware, "")
	g := NewGateway(h.reg, zap.NewNop())

	_, err := g.SendCommand("  ", map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrCommandRequired)
}

func TestGatewayStatusAndNotify(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	h.connect(t, wshub.RoleHardware, "")
	h.connect(t, wshub.RoleUnidentified, "")
	g := NewGateway(h.reg, zap.NewNop())

	status := g.Status()
	assert.Equal(t, 1, status.WebClients)
	assert.Equal(t, 1, status.HardwareClients)
	assert.Equal(t, 3, status.TotalClients)
	assert.True(t, status.ServerInitialized)

	n := g.NotifyWeb(SessionCreatedEvent{Type: TypeSessionCreated, SessionID: "s1", PlayerName: "Ann"})
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"session_created"}, types(drain(t, web)))
}
