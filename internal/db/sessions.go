package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"shootinggallery/internal/models"
	"shootinggallery/internal/store"
)

var _ store.Store = (*DB)(nil)

func (d *DB) SaveSession(ctx context.Context, s *models.GameSession) error {
	hits, err := json.Marshal(s.Hits)
	if err != nil {
		return fmt.Errorf("encoding hits: %w", err)
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO game_sessions (session_id, player_name, game_mode, current_score, hit_count, miss_count,
			accuracy, start_time, end_time, is_active, duration, target_count, points_per_hit, hits, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (session_id) DO UPDATE SET
			current_score = $4, hit_count = $5, miss_count = $6, accuracy = $7,
			end_time = $9, is_active = $10, hits = $14, updated_at = $15
	`, s.SessionID, s.PlayerName, string(s.GameMode), s.CurrentScore, s.HitCount, s.MissCount,
		s.Accuracy, s.StartTime, s.EndTime, s.IsActive, s.Settings.Duration, s.Settings.TargetCount,
		s.Settings.PointsPerHit, string(hits), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (d *DB) FindSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var (
		s    models.GameSession
		mode string
		end  sql.NullTime
		hits []byte
	)
	err := d.conn.QueryRowContext(ctx, `
		SELECT session_id, player_name, game_mode, current_score, hit_count, miss_count, accuracy,
			start_time, end_time, is_active, duration, target_count, points_per_hit, hits, updated_at
		FROM game_sessions WHERE session_id = $1
	`, sessionID).Scan(&s.SessionID, &s.PlayerName, &mode, &s.CurrentScore, &s.HitCount, &s.MissCount,
		&s.Accuracy, &s.StartTime, &end, &s.IsActive, &s.Settings.Duration, &s.Settings.TargetCount,
		&s.Settings.PointsPerHit, &hits, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	s.GameMode = models.GameMode(mode)
	if end.Valid {
		t := end.Time
		s.EndTime = &t
	}
	if err := json.Unmarshal(hits, &s.Hits); err != nil {
		return nil, fmt.Errorf("decoding hits: %w", err)
	}
	return &s, nil
}
