package models

import (
	"fmt"
	"strings"
)

// GameMode is a difficulty level.
type GameMode string

const (
	ModeEasy   = GameMode("easy")
	ModeMedium = GameMode("medium")
	ModeHard   = GameMode("hard")
)

// ParseGameMode accepts the three difficulty names case-insensitively.
// An empty string selects easy.
func ParseGameMode(s string) (GameMode, error) {
	switch GameMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeEasy:
		return ModeEasy, nil
	case ModeMedium:
		return ModeMedium, nil
	case ModeHard:
		return ModeHard, nil
	}
	return "", fmt.Errorf("unknown game mode %q", s)
}

// Zone is the part of a target that was hit.
type Zone string

const (
	ZoneBullseye = Zone("bullseye")
	ZoneInner    = Zone("inner")
	ZoneOuter    = Zone("outer")
	ZoneCenter   = Zone("center")
)

// ParseZone returns center for an empty zone.
func ParseZone(s string) (Zone, error) {
	switch Zone(strings.ToLower(strings.TrimSpace(s))) {
	case "", ZoneCenter:
		return ZoneCenter, nil
	case ZoneBullseye:
		return ZoneBullseye, nil
	case ZoneInner:
		return ZoneInner, nil
	case ZoneOuter:
		return ZoneOuter, nil
	}
	return "", fmt.Errorf("unknown zone %q", s)
}

const (
	DefaultDuration     = 60 // seconds
	DefaultTargetCount  = 10
	DefaultPointsPerHit = 10

	DefaultHitPoints   = 10
	DefaultHitAccuracy = 100
)

// Settings are the per-session game parameters.
type Settings struct {
	Duration     int `json:"duration"`
	TargetCount  int `json:"targetCount"`
	PointsPerHit int `json:"pointsPerHit"`
}

// Merge fills every zero field from base.
func (s Settings) Merge(base Settings) Settings {
	if s.Duration <= 0 {
		s.Duration = base.Duration
	}
	if s.TargetCount <= 0 {
		s.TargetCount = base.TargetCount
	}
	if s.PointsPerHit <= 0 {
		s.PointsPerHit = base.PointsPerHit
	}
	return s
}

// WithDefaults fills every zero field.
func (s Settings) WithDefaults() Settings {
	if s.Duration <= 0 {
		s.Duration = DefaultDuration
	}
	if s.TargetCount <= 0 {
		s.TargetCount = DefaultTargetCount
	}
	if s.PointsPerHit <= 0 {
		s.PointsPerHit = DefaultPointsPerHit
	}
	return s
}
