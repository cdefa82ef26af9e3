package models

import (
	"errors"
	"time"
)

// ModeSettings is the stored configuration for one game mode. Only active
// settings are served to clients and applied to new sessions.
type ModeSettings struct {
	Mode            GameMode  `json:"mode"`
	TargetSpeed     float64   `json:"targetSpeed"`
	TargetSize      float64   `json:"targetSize"`
	TargetCount     int       `json:"targetCount"`
	GameTimeSeconds int       `json:"gameTimeSeconds"`
	PointsPerHit    int       `json:"pointsPerHit"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Validate checks every required field. Mode must already be lower case.
func (ms ModeSettings) Validate() error {
	var errs []error
	switch ms.Mode {
	case ModeEasy, ModeMedium, ModeHard:
	default:
		errs = append(errs, errors.New("mode must be easy, medium or hard"))
	}
	if ms.TargetSpeed <= 0 {
		errs = append(errs, errors.New("targetSpeed must be positive"))
	}
	if ms.TargetSize <= 0 {
		errs = append(errs, errors.New("targetSize must be positive"))
	}
	if ms.TargetCount <= 0 {
		errs = append(errs, errors.New("targetCount must be positive"))
	}
	if ms.GameTimeSeconds <= 0 {
		errs = append(errs, errors.New("gameTimeSeconds must be positive"))
	}
	if ms.PointsPerHit < 0 {
		errs = append(errs, errors.New("pointsPerHit must not be negative"))
	}
	return errors.Join(errs...)
}

// SessionSettings is the part of the mode configuration a session carries.
func (ms ModeSettings) SessionSettings() Settings {
	return Settings{
		Duration:     ms.GameTimeSeconds,
		TargetCount:  ms.TargetCount,
		PointsPerHit: ms.PointsPerHit,
	}
}
