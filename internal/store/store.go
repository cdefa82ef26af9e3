// Package store defines the persistence boundary for sessions, users and scores.
package store

import (
	"context"
	"errors"

	"shootinggallery/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateScore = errors.New("score already recorded for session")
	ErrDuplicateUser  = errors.New("username already exists")
)

// AllModes selects every game mode in leaderboard queries.
const AllModes = "all"

// Store is implemented by the memory, PostgreSQL and MongoDB backends.
type Store interface {
	// SaveSession inserts or replaces the session keyed by SessionID.
	SaveSession(ctx context.Context, s *models.GameSession) error
	FindSession(ctx context.Context, sessionID string) (*models.GameSession, error)

	// UpsertUserByName returns the user with the given username, creating it if needed.
	UpsertUserByName(ctx context.Context, username string) (*models.User, error)
	// CreateUser fills ID and CreatedAt. It returns ErrDuplicateUser when the
	// username is taken.
	CreateUser(ctx context.Context, u *models.User) error

	// InsertScore fills ID and CreatedAt when empty. It returns ErrDuplicateScore when a
	// score for the same session already exists.
	InsertScore(ctx context.Context, sc *models.Score) error
	TopScores(ctx context.Context, mode string, limit int) ([]models.LeaderboardEntry, error)
	BestScore(ctx context.Context, username string, mode models.GameMode) (*models.LeaderboardEntry, error)

	// FindModeSettings returns the active settings for mode or ErrNotFound.
	FindModeSettings(ctx context.Context, mode models.GameMode) (*models.ModeSettings, error)
	// ListModeSettings returns every active settings record ordered by mode.
	ListModeSettings(ctx context.Context) ([]models.ModeSettings, error)
	// UpsertModeSettings inserts or replaces the settings keyed by Mode and fills
	// CreatedAt and UpdatedAt.
	UpsertModeSettings(ctx context.Context, ms *models.ModeSettings) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
