package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shootinggallery/internal/models"
	"shootinggallery/internal/store"
)

func (d *DB) InsertScore(ctx context.Context, sc *models.Score) error {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var sessionID sql.NullString
	if sc.SessionID != "" {
		sessionID = sql.NullString{String: sc.SessionID, Valid: true}
	}
	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO scores (id, user_id, session_id, score, accuracy, game_mode, time_played)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, sc.ID, sc.UserID, sessionID, sc.Score, sc.Accuracy, string(sc.GameMode), sc.TimePlayed).Scan(&sc.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrDuplicateScore
	}
	if err != nil {
		return fmt.Errorf("inserting score: %w", err)
	}
	return nil
}

func (d *DB) TopScores(ctx context.Context, mode string, limit int) ([]models.LeaderboardEntry, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	rows, err := d.conn.QueryContext(ctx, `
		SELECT u.username, s.score, s.accuracy, s.game_mode, s.time_played, s.created_at
		FROM scores s
		JOIN users u ON u.id = s.user_id
		WHERE $1 = 'all' OR s.game_mode = $1
		ORDER BY s.score DESC, s.created_at ASC
		LIMIT $2
	`, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (d *DB) BestScore(ctx context.Context, username string, mode models.GameMode) (*models.LeaderboardEntry, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	row := d.conn.QueryRowContext(ctx, `
		SELECT u.username, s.score, s.accuracy, s.game_mode, s.time_played, s.created_at
		FROM scores s
		JOIN users u ON u.id = s.user_id
		WHERE u.username = $1 AND s.game_mode = $2
		ORDER BY s.score DESC
		LIMIT 1
	`, username, string(mode))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting best score: %w", err)
	}
	return &e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (models.LeaderboardEntry, error) {
	var (
		e    models.LeaderboardEntry
		mode string
	)
	if err := row.Scan(&e.Username, &e.Score, &e.Accuracy, &mode, &e.TimePlayed, &e.CreatedAt); err != nil {
		return e, err
	}
	e.GameMode = models.GameMode(mode)
	return e, nil
}
