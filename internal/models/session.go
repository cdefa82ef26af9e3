package models

import (
	"math"
	"time"
)

// Hit is one scored shot recorded on a session.
type Hit struct {
	Timestamp time.Time `json:"timestamp"`
	TargetID  int       `json:"targetId"`
	Points    int       `json:"points"`
	Accuracy  int       `json:"accuracy"`
	Zone      Zone      `json:"zone"`
}

// HitInput is a hit as reported by a caller. Nil fields take the Hit defaults.
type HitInput struct {
	TargetID *int   `json:"targetId,omitempty"`
	Points   *int   `json:"points,omitempty"`
	Accuracy *int   `json:"accuracy,omitempty"`
	Zone     string `json:"zone,omitempty"`
}

// GameSession is one player's game from creation until it is ended.
type GameSession struct {
	SessionID    string     `json:"sessionId"`
	PlayerName   string     `json:"playerName"`
	GameMode     GameMode   `json:"gameMode"`
	CurrentScore int        `json:"currentScore"`
	HitCount     int        `json:"hitCount"`
	MissCount    int        `json:"missCount"`
	Accuracy     int        `json:"accuracy"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	IsActive     bool       `json:"isActive"`
	Settings     Settings   `json:"gameSettings"`
	Hits         []Hit      `json:"hits"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Accuracy is the hit percentage rounded to the nearest integer, 0 before any shot.
func Accuracy(hits, misses int) int {
	total := hits + misses
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(hits) / float64(total) * 100))
}

// AddHit records h and recomputes the score and accuracy.
func (s *GameSession) AddHit(h Hit) {
	s.Hits = append(s.Hits, h)
	s.HitCount++
	s.CurrentScore += h.Points
	s.Accuracy = Accuracy(s.HitCount, s.MissCount)
	s.UpdatedAt = h.Timestamp
}

// AddMiss records a miss and recomputes accuracy.
func (s *GameSession) AddMiss(at time.Time) {
	s.MissCount++
	s.Accuracy = Accuracy(s.HitCount, s.MissCount)
	s.UpdatedAt = at
}

// End marks the session inactive at the given time.
func (s *GameSession) End(at time.Time) {
	s.EndTime = &at
	s.IsActive = false
	s.UpdatedAt = at
}

// DurationSeconds is the whole number of seconds between start and end.
// It is 0 for a session that has not ended.
func (s *GameSession) DurationSeconds() int {
	if s.EndTime == nil {
		return 0
	}
	d := s.EndTime.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (s *GameSession) Clone() *GameSession {
	c := *s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	c.Hits = make([]Hit, len(s.Hits))
	copy(c.Hits, s.Hits)
	return &c
}
