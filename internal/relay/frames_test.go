package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteralTokens(t *testing.T) {
	assert.Equal(t, LiteralHit{Token: "HIT"}, Parse([]byte("HIT")))
	assert.Equal(t, LiteralHit{Token: "jj"}, Parse([]byte("  jj\r\n")))
	assert.Equal(t, Unparsed{Text: "hit"}, Parse([]byte("hit")))
}

func TestParseIdentify(t *testing.T) {
	f := Parse([]byte(`{"type":"identify","clientType":"web","sessionId":"s1","playerName":"Ann"}`))
	assert.Equal(t, Identify{ClientType: "web", SessionID: "s1", PlayerName: "Ann"}, f)
}

func TestParseSessionInfo(t *testing.T) {
	f := Parse([]byte(`{"type":"session_info","sessionId":"X","playerName":"Bob"}`))
	assert.Equal(t, SessionInfo{SessionID: "X", PlayerName: "Bob"}, f)
}

func TestParseHitReport(t *testing.T) {
	f := Parse([]byte(`{"type":"hit","value":"HIT"}`))
	hit, ok := f.(HitReport)
	require.True(t, ok)
	assert.Equal(t, "HIT", hit.Value)
	assert.Nil(t, hit.TargetID)

	f = Parse([]byte(`{"type":"hit","targetId":3,"accuracy":80,"zone":"inner"}`))
	hit, ok = f.(HitReport)
	require.True(t, ok)
	require.NotNil(t, hit.TargetID)
	assert.Equal(t, 3, *hit.TargetID)
	require.NotNil(t, hit.Accuracy)
	assert.Equal(t, 80, *hit.Accuracy)
	assert.Equal(t, "inner", hit.Zone)
}

func TestParseUnrecognisedHitIsPassthrough(t *testing.T) {
	f := Parse([]byte(`{"type":"hit","value":"maybe"}`))
	pass, ok := f.(Passthrough)
	require.True(t, ok)
	assert.Equal(t, "hit", pass.Type)

	f = Parse([]byte(`{"type":"hit","targetId":"three"}`))
	_, ok = f.(Passthrough)
	assert.True(t, ok)
}

func TestParseClick(t *testing.T) {
	f := Parse([]byte(`{"type":"click","position":{"x":1,"y":2}}`))
	click, ok := f.(Click)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1,"y":2}`, string(click.Position))
}

func TestParsePassthrough(t *testing.T) {
	raw := `{"type":"sensor","reading":42}`
	f := Parse([]byte(raw))
	pass, ok := f.(Passthrough)
	require.True(t, ok)
	assert.Equal(t, "sensor", pass.Type)
	assert.JSONEq(t, raw, string(pass.Raw))
}

func TestParseUnparsed(t *testing.T) {
	for _, raw := range []string{"target 3 struck", `{"type":`, "hit", "{sensor: 3}", ""} {
		f := Parse([]byte(raw))
		_, ok := f.(Unparsed)
		assert.True(t, ok, "input %q classified as %s", raw, f.Kind())
	}
}

func TestParseValidJSONIsNeverUnparsed(t *testing.T) {
	tests := []struct {
		raw      string
		wantType string
	}{
		{raw: `{"type":7,"sensor":3}`},
		{raw: `{"type":{"nested":true}}`},
		{raw: `{"type":null,"sensor":3}`},
		{raw: `{"sensor":3}`},
		{raw: `[1,2,3]`},
		{raw: `42`},
		{raw: `"HIT"`},
		{raw: `null`},
		{raw: ` {"type":"sensor"} `, wantType: "sensor"},
	}
	for _, tt := range tests {
		f := Parse([]byte(tt.raw))
		pass, ok := f.(Passthrough)
		require.True(t, ok, "input %q classified as %s", tt.raw, f.Kind())
		assert.Equal(t, tt.wantType, pass.Type, tt.raw)
		assert.JSONEq(t, tt.raw, string(pass.Raw))
	}
}

func TestHasHitHint(t *testing.T) {
	assert.True(t, hasHitHint("HIT!!"))
	assert.True(t, hasHitHint("Target=4"))
	assert.False(t, hasHitHint("noise 0x1f"))
}
