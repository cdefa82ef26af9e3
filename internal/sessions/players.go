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
	ErrUsernameTaken       = errors.New("this username already exists, please sign up with a different username")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrInvalidScore        = errors.New("invalid score")
)

// Registration is a sign-up request. Mode is the player's preferred game mode
// and may be empty.
type Registration struct {
	Username string `json:"username"`
	Age      int    `json:"age"`
	Mode     string `json:"mode"`
}

// RegisterUser creates a user under a name nobody holds yet.
func (m *Manager) RegisterUser(ctx context.Context, r Registration) (*models.User, error) {
	username := strings.TrimSpace(r.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidRegistration)
	}
	if r.Age < 0 {
		return nil, fmt.Errorf("%w: age must not be negative", ErrInvalidRegistration)
	}
	u := &models.User{Username: username, Age: r.Age}
	if strings.TrimSpace(r.Mode) != "" {
		mode, err := models.ParseGameMode(r.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGameMode, err)
		}
		u.Mode = mode
	}

	switch err := m.store.CreateUser(ctx, u); {
	case errors.Is(err, store.ErrDuplicateUser):
		return nil, ErrUsernameTaken
	case err != nil:
		return nil, fmt.Errorf("registering user: %w", err)
	}
	m.log.Info("user registered", zap.String("username", username))
	return u, nil
}

// ScoreInput is a score submitted directly rather than through a session.
type ScoreInput struct {
	Username   string `json:"username"`
	Score      int    `json:"score"`
	Accuracy   int    `json:"accuracy"`
	GameMode   string `json:"gameMode"`
	TimePlayed int    `json:"timePlayed"` // seconds
}

// SaveScore records a score for the named player, creating the user when the
// name is new. The score is not tied to any session.
func (m *Manager) SaveScore(ctx context.Context, in ScoreInput) (*models.Score, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ErrPlayerNameRequired
	}
	if strings.TrimSpace(in.GameMode) == "" {
		return nil, fmt.Errorf("%w: game mode is required", ErrInvalidGameMode)
	}
	mode, err := models.ParseGameMode(in.GameMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGameMode, err)
	}
	switch {
	case in.Score < 0:
		return nil, fmt.Errorf("%w: score must not be negative", ErrInvalidScore)
	case in.Accuracy < 0 || in.Accuracy > 100:
		return nil, fmt.Errorf("%w: accuracy must be between 0 and 100", ErrInvalidScore)
	case in.TimePlayed < 0:
		return nil, fmt.Errorf("%w: timePlayed must not be negative", ErrInvalidScore)
	}

	user, err := m.store.UpsertUserByName(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolving user: %w", err)
	}
	sc := &models.Score{
		UserID:     user.ID,
		Score:      in.Score,
		Accuracy:   in.Accuracy,
		GameMode:   mode,
		TimePlayed: in.TimePlayed,
		CreatedAt:  m.now(),
	}
	if err := m.store.InsertScore(ctx, sc); err != nil {
		return nil, fmt.Errorf("saving score: %w", err)
	}

	m.metrics.SessionEvent("score")
	m.log.Info("score saved",
		zap.String("username", username),
		zap.Int("score", sc.Score),
		zap.String("mode", string(mode)))
	return sc, nil
}
