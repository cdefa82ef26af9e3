package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shootinggallery/internal/models"
	"shootinggallery/internal/store"
)

var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrInvalidSettings  = errors.New("invalid game settings")
)

// SettingsInput is a mode settings record as submitted by a client. IsActive
// defaults to true.
type SettingsInput struct {
	Mode            string  `json:"mode"`
	TargetSpeed     float64 `json:"targetSpeed"`
	TargetSize      float64 `json:"targetSize"`
	TargetCount     int     `json:"targetCount"`
	GameTimeSeconds int     `json:"gameTimeSeconds"`
	PointsPerHit    int     `json:"pointsPerHit"`
	IsActive        *bool   `json:"isActive,omitempty"`
}

// sessionSettings fills the zero fields of requested from the stored settings
// for mode, then from the built-in defaults. A failed lookup is logged and
// treated as no stored settings.
func (m *Manager) sessionSettings(ctx context.Context, mode models.GameMode, requested models.Settings) models.Settings {
	stored, err := m.store.FindModeSettings(ctx, mode)
	switch {
	case err == nil:
		requested = requested.Merge(stored.SessionSettings())
	case !errors.Is(err, store.ErrNotFound):
		m.log.Warn("mode settings unavailable, using defaults",
			zap.String("mode", string(mode)),
			zap.Error(err))
	}
	return requested.WithDefaults()
}

// ModeSettings returns the active settings for a game mode.
func (m *Manager) ModeSettings(ctx context.Context, gameMode string) (*models.ModeSettings, error) {
	mode, err := models.ParseGameMode(gameMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGameMode, err)
	}
	ms, err := m.store.FindModeSettings(ctx, mode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w for mode: %s", ErrSettingsNotFound, mode)
	}
	if err != nil {
		return nil, fmt.Errorf("getting settings: %w", err)
	}
	return ms, nil
}

// AllModeSettings returns every active settings record.
func (m *Manager) AllModeSettings(ctx context.Context) ([]models.ModeSettings, error) {
	all, err := m.store.ListModeSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	return all, nil
}

// SaveModeSettings creates or replaces the settings for in.Mode.
func (m *Manager) SaveModeSettings(ctx context.Context, in SettingsInput) (*models.ModeSettings, error) {
	if strings.TrimSpace(in.Mode) == "" {
		return nil, fmt.Errorf("%w: mode is required", ErrInvalidSettings)
	}
	mode, err := models.ParseGameMode(in.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	ms := &models.ModeSettings{
		Mode:            mode,
		TargetSpeed:     in.TargetSpeed,
		TargetSize:      in.TargetSize,
		TargetCount:     in.TargetCount,
		GameTimeSeconds: in.GameTimeSeconds,
		PointsPerHit:    in.PointsPerHit,
		IsActive:        in.IsActive == nil || *in.IsActive,
	}
	if err := ms.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := m.store.UpsertModeSettings(ctx, ms); err != nil {
		return nil, fmt.Errorf("saving settings: %w", err)
	}

	m.log.Info("game settings saved",
		zap.String("mode", string(mode)),
		zap.Bool("active", ms.IsActive))
	return ms, nil
}
