package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shootinggallery/internal/models"
	"shootinggallery/internal/sessions"
	"shootinggallery/internal/store"
	"shootinggallery/internal/wshub"
)

type nopConn struct{}

func (nopConn) Ping(context.Context) error { return nil }
func (nopConn) Close(string) error         { return nil }

type panickingRecorder struct{}

func (panickingRecorder) RegisterHit(context.Context, string, models.HitInput) (sessions.HitResult, error) {
	panic("recorder exploded")
}

type harness struct {
	reg    *wshub.Registry
	mgr    *sessions.Manager
	router *Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := wshub.NewRegistry(zap.NewNop(), nil)
	mgr := sessions.NewManager(store.NewMemory(), zap.NewNop(), sessions.Options{})
	return &harness{
		reg:    reg,
		mgr:    mgr,
		router: NewRouter(reg, mgr, "server-1", zap.NewNop(), nil),
	}
}

// connect registers a client and, unless role is unidentified, identifies it
// directly on the registry.
func (h *harness) connect(t *testing.T, role wshub.Role, sessionID string) *wshub.Client {
	t.Helper()
	c := h.reg.Register(nopConn{})
	if role != wshub.RoleUnidentified {
		require.NoError(t, h.reg.Identify(c.ID, role, sessionID, ""))
	}
	return c
}

func (h *harness) send(c *wshub.Client, raw string) {
	h.router.Handle(context.Background(), c.ID, []byte(raw))
}

func (h *harness) newSession(t *testing.T, player string) string {
	t.Helper()
	s, err := h.mgr.CreateSession(context.Background(), player, "easy", models.Settings{})
	require.NoError(t, err)
	return s.SessionID
}

func drain(t *testing.T, c *wshub.Client) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return out
			}
			var msg map[string]any
			require.NoError(t, json.Unmarshal(data, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func types(msgs []map[string]any) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m["type"].(string))
	}
	return out
}

func TestWelcome(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t, wshub.RoleUnidentified, "")

	h.router.Welcome(c.ID)

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, "connection", msgs[0]["type"])
	assert.Equal(t, "connected", msgs[0]["status"])
	assert.Equal(t, "server-1", msgs[0]["serverId"])
}

func TestLiteralHitWithoutBoundSessions(t *testing.T) {
	h := newHarness(t)
	sessionID := h.newSession(t, "Ann")

	web1 := h.connect(t, wshub.RoleWeb, "")
	web2 := h.connect(t, wshub.RoleWeb, "")
	hw := h.connect(t, wshub.RoleHardware, "")
	anon := h.connect(t, wshub.RoleUnidentified, "")

	h.send(anon, "HIT")
	h.send(hw, "jj")

	for _, c := range []*wshub.Client{web1, web2} {
		msgs := drain(t, c)
		assert.Equal(t, []string{"target_hit", "connection_stats", "target_hit", "connection_stats"}, types(msgs))
		assert.Equal(t, "HIT", msgs[0]["rawMessage"])
		assert.Equal(t, float64(0), msgs[0]["targetId"])
		assert.Equal(t, float64(1), msgs[0]["scoreIncrement"])
		assert.Equal(t, "center", msgs[0]["zone"])
		assert.Equal(t, float64(2), msgs[1]["webClients"])
		assert.Equal(t, float64(1), msgs[1]["hardwareClients"])
		assert.Equal(t, float64(4), msgs[1]["totalClients"])
	}
	assert.Empty(t, drain(t, hw))
	assert.Empty(t, drain(t, anon))

	stats, err := h.mgr.GetSessionStats(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.HitCount)
}

func TestSessionInfoBindingRoutesLiteralHit(t *testing.T) {
	h := newHarness(t)
	other := h.newSession(t, "Ann")
	mine := h.newSession(t, "Bob")

	player := h.connect(t, wshub.RoleUnidentified, "")
	h.send(player, `{"type":"identify","clientType":"web"}`)
	assert.Equal(t, []string{"connection_stats", "identification_confirmed"}, types(drain(t, player)))

	h.send(player, `{"type":"session_info","sessionId":"`+mine+`","playerName":"Bob"}`)
	assert.Empty(t, drain(t, player), "session_info is not acknowledged")

	viewer := h.connect(t, wshub.RoleWeb, "")
	hw := h.connect(t, wshub.RoleHardware, "")
	h.send(hw, "HIT")

	msgs := drain(t, player)
	require.Equal(t, []string{"hit_registered", "connection_stats"}, types(msgs))
	assert.Equal(t, mine, msgs[0]["sessionId"])
	assert.Equal(t, float64(10), msgs[0]["scoreIncrement"])
	assert.Equal(t, float64(10), msgs[0]["currentScore"])
	assert.Equal(t, float64(1), msgs[0]["hitCount"])
	assert.Equal(t, float64(100), msgs[0]["accuracy"])

	assert.Equal(t, []string{"target_hit", "connection_stats"}, types(drain(t, viewer)))

	ctx := context.Background()
	got, err := h.mgr.GetSessionStats(ctx, mine)
	require.NoError(t, err)
	assert.Equal(t, 1, got.HitCount)
	untouched, err := h.mgr.GetSessionStats(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 0, untouched.HitCount)
}

func TestLiteralHitAppliesToLatestBinding(t *testing.T) {
	h := newHarness(t)
	first := h.newSession(t, "Ann")
	second := h.newSession(t, "Bob")

	early := h.connect(t, wshub.RoleWeb, first)
	time.Sleep(2 * time.Millisecond)
	late := h.connect(t, wshub.RoleWeb, second)
	hw := h.connect(t, wshub.RoleHardware, "")

	h.send(hw, "HIT")

	assert.Equal(t, []string{"target_hit", "connection_stats"}, types(drain(t, early)))
	assert.Equal(t, []string{"hit_registered", "connection_stats"}, types(drain(t, late)))

	ctx := context.Background()
	a, err := h.mgr.GetSessionStats(ctx, first)
	require.NoError(t, err)
	b, err := h.mgr.GetSessionStats(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 0, a.HitCount)
	assert.Equal(t, 1, b.HitCount)
}

func TestLiteralHitOnEndedSessionStillDelivers(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "ghost")
	hw := h.connect(t, wshub.RoleHardware, "")

	h.send(hw, "HIT")

	assert.Equal(t, []string{"target_hit", "connection_stats"}, types(drain(t, web)))
}

func TestIdentifyHardware(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	device := h.connect(t, wshub.RoleUnidentified, "")

	h.send(device, `{"type":"identify","clientType":"nodeMCU"}`)

	info, ok := h.reg.Client(device.ID)
	require.True(t, ok)
	assert.Equal(t, wshub.RoleHardware, info.Role)

	msgs := drain(t, web)
	require.Equal(t, []string{"hardware_connected"}, types(msgs))
	assert.Equal(t, float64(1), msgs[0]["hardwareClients"])

	ack := drain(t, device)
	require.Equal(t, []string{"identification_confirmed"}, types(ack))
	assert.Equal(t, "nodeMCU", ack[0]["clientType"])
}

func TestIdentifyWithSessionBinding(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t, wshub.RoleUnidentified, "")

	h.send(c, `{"type":"identify","clientType":"web","sessionId":"s9","playerName":"Cat"}`)

	info, _ := h.reg.Client(c.ID)
	assert.Equal(t, "s9", info.SessionID)
	assert.Equal(t, "Cat", info.PlayerName)
}

func TestIdentifyUnknownClientType(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	c := h.connect(t, wshub.RoleUnidentified, "")

	h.send(c, `{"type":"identify","clientType":"toaster"}`)

	info, _ := h.reg.Client(c.ID)
	assert.Equal(t, wshub.RoleUnidentified, info.Role)
	assert.Empty(t, drain(t, c))
	assert.Empty(t, drain(t, web))
}

func TestSecondIdentifyIsIgnored(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t, wshub.RoleWeb, "")

	h.send(c, `{"type":"identify","clientType":"hardware"}`)

	info, _ := h.reg.Client(c.ID)
	assert.Equal(t, wshub.RoleWeb, info.Role)
	assert.Empty(t, drain(t, c))
}

func TestSessionInfoFromHardwareIgnored(t *testing.T) {
	h := newHarness(t)
	hw := h.connect(t, wshub.RoleHardware, "")

	h.send(hw, `{"type":"session_info","sessionId":"X"}`)

	info, _ := h.reg.Client(hw.ID)
	assert.Empty(t, info.SessionID)
}

func TestHardwareHitReport(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	hw := h.connect(t, wshub.RoleHardware, "")

	h.send(hw, `{"type":"hit","targetId":2,"accuracy":90,"zone":"bullseye"}`)

	msgs := drain(t, web)
	require.Equal(t, []string{"target_hit", "connection_stats"}, types(msgs))
	assert.Equal(t, float64(2), msgs[0]["targetId"])
	assert.Equal(t, float64(90), msgs[0]["accuracy"])
	assert.Equal(t, "bullseye", msgs[0]["zone"])
	assert.Equal(t, float64(1), msgs[0]["scoreIncrement"])
}

func TestHitReportFromWebIgnored(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	other := h.connect(t, wshub.RoleWeb, "")

	h.send(web, `{"type":"hit","value":"HIT"}`)
	h.send(web, `{"type":"click","position":{"x":3,"y":4}}`)

	assert.Empty(t, drain(t, web))
	assert.Empty(t, drain(t, other))
}

func TestPassthroughFromHardware(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	hw := h.connect(t, wshub.RoleHardware, "")

	h.send(hw, `{"type":"sensor","reading":42,"nested":{"ok":true}}`)

	select {
	case data := <-web.Send:
		assert.JSONEq(t, `{"type":"sensor","reading":42,"nested":{"ok":true}}`, string(data))
	default:
		t.Fatal("web client did not receive forwarded data")
	}
}

func TestPassthroughFromWebDropped(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	other := h.connect(t, wshub.RoleWeb, "")

	h.send(web, `{"type":"sensor","reading":42}`)

	assert.Empty(t, drain(t, other))
}

func TestAnyValidJSONFromHardwareIsForwardedVerbatim(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	hw := h.connect(t, wshub.RoleHardware, "")

	for _, raw := range []string{`{"type":7,"sensor":3}`, `{"sensor":3}`, `[1,2,3]`, `42`} {
		h.send(hw, raw)
		select {
		case data := <-web.Send:
			assert.JSONEq(t, raw, string(data))
		default:
			t.Fatalf("web client did not receive %s", raw)
		}
		assert.Empty(t, web.Send, "unexpected extra frame after %s", raw)
	}
}

func TestValidJSONFromWebIsNotForwarded(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	other := h.connect(t, wshub.RoleWeb, "")
	anon := h.connect(t, wshub.RoleUnidentified, "")

	for _, raw := range []string{`{"type":7,"note":"hit"}`, `["target",1]`, `{"hit":true}`} {
		h.send(web, raw)
		h.send(anon, raw)
	}

	assert.Empty(t, drain(t, other))
	assert.Empty(t, drain(t, web))
}

func TestFallback(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	hw := h.connect(t, wshub.RoleHardware, "")
	anon := h.connect(t, wshub.RoleUnidentified, "")

	h.send(hw, "0x1f 0x00")
	msgs := drain(t, web)
	require.Equal(t, []string{"possible_hit_event"}, types(msgs))
	assert.Equal(t, "0x1f 0x00", msgs[0]["rawContent"])
	assert.Equal(t, "hardware", msgs[0]["clientType"])

	h.send(anon, "noise")
	assert.Empty(t, drain(t, web))

	h.send(anon, "Target 4 struck")
	msgs = drain(t, web)
	require.Equal(t, []string{"possible_hit_event"}, types(msgs))
	assert.Equal(t, "unidentified", msgs[0]["clientType"])
}

func TestPanicIsContained(t *testing.T) {
	h := newHarness(t)
	h.router = NewRouter(h.reg, panickingRecorder{}, "server-1", zap.NewNop(), nil)
	web := h.connect(t, wshub.RoleWeb, "s1")
	hw := h.connect(t, wshub.RoleHardware, "")

	assert.NotPanics(t, func() { h.send(hw, "HIT") })

	msgs := drain(t, web)
	require.Equal(t, []string{"possible_hit_event"}, types(msgs))
	assert.Equal(t, "HIT", msgs[0]["rawContent"])
}

func TestUnknownClientFrameIgnored(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")

	h.router.Handle(context.Background(), "missing", []byte("HIT"))

	assert.Empty(t, drain(t, web))
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t)
	web := h.connect(t, wshub.RoleWeb, "")
	hw := h.connect(t, wshub.RoleHardware, "")
	viewer := h.connect(t, wshub.RoleWeb, "")

	h.router.Disconnect(hw.ID)
	msgs := drain(t, web)
	require.Equal(t, []string{"hardware_disconnected"}, types(msgs))
	assert.Equal(t, float64(0), msgs[0]["hardwareClients"])

	h.router.Disconnect(viewer.ID)
	msgs = drain(t, web)
	require.Equal(t, []string{"connection_stats"}, types(msgs))
	assert.Equal(t, float64(1), msgs[0]["webClients"])

	h.router.Disconnect(viewer.ID)
	assert.Empty(t, drain(t, web))
	assert.Equal(t, wshub.Stats{WebClients: 1, TotalClients: 1}, h.reg.Stats())
}
