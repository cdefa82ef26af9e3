package relay

import (
	"shootinggallery/internal/models"
	"shootinggallery/internal/wshub"
)

// Outbound message types.
const (
	TypeConnection              = "connection"
	TypeIdentificationConfirmed = "identification_confirmed"
	TypeConnectionStats         = "connection_stats"
	TypeTargetHit               = "target_hit"
	TypeHitRegistered           = "hit_registered"
	TypeHardwareConnected       = "hardware_connected"
	TypeHardwareDisconnected    = "hardware_disconnected"
	TypePossibleHitEvent        = "possible_hit_event"
	TypeUnparsedMessage         = "unparsed_message"
)

// Commands sent to hardware.
const (
	TypeGameStart     = "game_start"
	TypeGameStop      = "game_stop"
	TypeGameReset     = "game_reset"
	TypeCustomCommand = "custom_command"
	TypeTestMessage   = "test_message"
)

// Events pushed to web clients for session changes made over REST.
const (
	TypeSessionCreated = "session_created"
	TypeHitScored      = "hit_scored"
	TypeMissRegistered = "miss_registered"
	TypeSessionEnded   = "session_ended"
)

const welcomeText = "Please identify yourself by sending a message with type:identify and clientType:hardware or web"

// ConnectionMessage greets a new client.
type ConnectionMessage struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	ServerID  string `json:"serverId"`
	Timestamp int64  `json:"timestamp"`
}

// IdentificationConfirmed acknowledges an identify frame.
type IdentificationConfirmed struct {
	Type       string `json:"type"`
	ClientType string `json:"clientType"`
}

// StatsMessage carries client counts. Its Type distinguishes plain stats from
// hardware connect and disconnect notices.
type StatsMessage struct {
	Type string `json:"type"`
	wshub.Stats
	Timestamp int64 `json:"timestamp"`
}

// TargetHitMessage reports a hit that was not scored against a session.
type TargetHitMessage struct {
	Type           string      `json:"type"`
	TargetID       int         `json:"targetId"`
	Accuracy       int         `json:"accuracy"`
	Zone           models.Zone `json:"zone"`
	ScoreIncrement int         `json:"scoreIncrement"`
	Score          int         `json:"score"`
	RawMessage     string      `json:"rawMessage,omitempty"`
	HitValue       string      `json:"hitValue,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// HitRegisteredMessage reports a hit scored against the recipient's session.
type HitRegisteredMessage struct {
	Type           string      `json:"type"`
	SessionID      string      `json:"sessionId"`
	TargetID       int         `json:"targetId"`
	Zone           models.Zone `json:"zone"`
	ScoreIncrement int         `json:"scoreIncrement"`
	CurrentScore   int         `json:"currentScore"`
	HitCount       int         `json:"hitCount"`
	Accuracy       int         `json:"accuracy"`
	RawMessage     string      `json:"rawMessage,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// FallbackMessage forwards input that could not be parsed.
type FallbackMessage struct {
	Type       string `json:"type"`
	RawContent string `json:"rawContent"`
	ClientType string `json:"clientType"`
	Timestamp  int64  `json:"timestamp"`
}

// GameStartCommand tells hardware to start a round.
type GameStartCommand struct {
	Type        string `json:"type"`
	GameMode    string `json:"gameMode"`
	Duration    int    `json:"duration"`
	TargetCount int    `json:"targetCount"`
	Timestamp   int64  `json:"timestamp"`
}

// SimpleCommand is a command without arguments, such as stop or reset.
type SimpleCommand struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// CustomCommand is a named command with free-form data.
type CustomCommand struct {
	Type      string `json:"type"`
	Command   string `json:"command"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// TestMessage checks that hardware is reachable.
type TestMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// SessionCreatedEvent announces a new session to web clients.
type SessionCreatedEvent struct {
	Type       string          `json:"type"`
	SessionID  string          `json:"sessionId"`
	PlayerName string          `json:"playerName"`
	GameMode   models.GameMode `json:"gameMode"`
	Timestamp  int64           `json:"timestamp"`
}

// HitScoredEvent announces a hit recorded over REST.
type HitScoredEvent struct {
	Type         string     `json:"type"`
	SessionID    string     `json:"sessionId"`
	CurrentScore int        `json:"currentScore"`
	HitCount     int        `json:"hitCount"`
	Accuracy     int        `json:"accuracy"`
	Hit          models.Hit `json:"hit"`
	Timestamp    int64      `json:"timestamp"`
}

// MissRegisteredEvent announces a miss recorded over REST.
type MissRegisteredEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	MissCount int    `json:"missCount"`
	Accuracy  int    `json:"accuracy"`
	Timestamp int64  `json:"timestamp"`
}

// SessionEndedEvent announces a finalized session.
type SessionEndedEvent struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId"`
	PlayerName string `json:"playerName"`
	FinalScore int    `json:"finalScore"`
	HitCount   int    `json:"hitCount"`
	MissCount  int    `json:"missCount"`
	Accuracy   int    `json:"accuracy"`
	Duration   int    `json:"duration"`
	Timestamp  int64  `json:"timestamp"`
}
