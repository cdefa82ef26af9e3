package relay

import (
	"encoding/json"
	"strings"
)

// Frame is one classified inbound message. The set of implementations is closed.
type Frame interface {
	Kind() string
	isFrame()
}

// LiteralHit is a bare hit token sent by minimal firmware.
type LiteralHit struct {
	Token string
}

// Identify declares a client's role and, for web clients, an optional session.
type Identify struct {
	ClientType string
	SessionID  string
	PlayerName string
}

// SessionInfo rebinds a web client to a session.
type SessionInfo struct {
	SessionID  string
	PlayerName string
}

// HitReport is a structured hit. Nil fields were absent from the frame.
type HitReport struct {
	Value    string
	TargetID *int
	Accuracy *int
	Zone     string
}

// Click is a player's own UI click. It carries no scoring effect.
type Click struct {
	Position json.RawMessage
}

// Passthrough is any other valid JSON value, kept verbatim. Type is empty when
// the value is not an object with a string type.
type Passthrough struct {
	Type string
	Raw  json.RawMessage
}

// Unparsed is input that is neither a literal token nor valid JSON.
type Unparsed struct {
	Text string
}

func (LiteralHit) Kind() string  { return "literal_hit" }
func (Identify) Kind() string    { return "identify" }
func (SessionInfo) Kind() string { return "session_info" }
func (HitReport) Kind() string   { return "hit" }
func (Click) Kind() string       { return "click" }
func (Passthrough) Kind() string { return "passthrough" }
func (Unparsed) Kind() string    { return "unparsed" }

func (LiteralHit) isFrame()  {}
func (Identify) isFrame()    {}
func (SessionInfo) isFrame() {}
func (HitReport) isFrame()   {}
func (Click) isFrame()       {}
func (Passthrough) isFrame() {}
func (Unparsed) isFrame()    {}

var literalHitTokens = map[string]bool{
	"HIT": true,
	"jj":  true,
}

// Parse classifies a raw frame. Literal tokens are matched before any JSON
// decoding. Only invalid JSON is Unparsed; any other valid JSON value, including
// an object without a string type or a recognised type whose fields fail to
// decode, is kept as Passthrough.
func Parse(raw []byte) Frame {
	text := strings.TrimSpace(string(raw))
	if literalHitTokens[text] {
		return LiteralHit{Token: text}
	}
	if !json.Valid([]byte(text)) {
		return Unparsed{Text: text}
	}
	passthrough := Passthrough{Raw: json.RawMessage(text)}

	var envelope struct {
		Type json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return passthrough
	}
	var msgType string
	if err := json.Unmarshal(envelope.Type, &msgType); err != nil {
		return passthrough
	}
	passthrough.Type = msgType

	switch msgType {
	case "identify":
		var f struct {
			ClientType string `json:"clientType"`
			SessionID  string `json:"sessionId"`
			PlayerName string `json:"playerName"`
		}
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return passthrough
		}
		return Identify{ClientType: f.ClientType, SessionID: f.SessionID, PlayerName: f.PlayerName}

	case "session_info":
		var f struct {
			SessionID  string `json:"sessionId"`
			PlayerName string `json:"playerName"`
		}
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return passthrough
		}
		return SessionInfo{SessionID: f.SessionID, PlayerName: f.PlayerName}

	case "hit":
		var f struct {
			Value    string `json:"value"`
			TargetID *int   `json:"targetId"`
			Accuracy *int   `json:"accuracy"`
			Zone     string `json:"zone"`
		}
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return passthrough
		}
		if !strings.EqualFold(f.Value, "hit") && f.TargetID == nil && f.Zone == "" {
			return passthrough
		}
		return HitReport{Value: f.Value, TargetID: f.TargetID, Accuracy: f.Accuracy, Zone: f.Zone}

	case "click":
		var f struct {
			Position json.RawMessage `json:"position"`
		}
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return passthrough
		}
		return Click{Position: f.Position}
	}
	return passthrough
}

// hasHitHint reports whether unparseable text looks like it came from a target sensor.
func hasHitHint(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "hit") || strings.Contains(lower, "target")
}
