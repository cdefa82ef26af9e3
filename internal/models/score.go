package models

import "time"

// User is a player identified by a unique username.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Age       int       `json:"age,omitempty"`
	Mode      GameMode  `json:"mode,omitempty"` // preferred mode given at registration
	CreatedAt time.Time `json:"createdAt"`
}

// PlaceholderEmail is stored for users created implicitly when a session ends.
func PlaceholderEmail(username string) string {
	return username + "@temp.com"
}

// Score is the durable result of one game.
type Score struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user"`
	SessionID  string    `json:"sessionId"`
	Score      int       `json:"score"`
	Accuracy   int       `json:"accuracy"`
	GameMode   GameMode  `json:"gameMode"`
	TimePlayed int       `json:"timePlayed"` // seconds
	CreatedAt  time.Time `json:"createdAt"`
}

// LeaderboardEntry is a score joined with its owner's username.
type LeaderboardEntry struct {
	Username   string    `json:"username"`
	Score      int       `json:"score"`
	Accuracy   int       `json:"accuracy"`
	GameMode   GameMode  `json:"gameMode"`
	TimePlayed int       `json:"timePlayed"`
	CreatedAt  time.Time `json:"createdAt"`
}
