package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shootinggallery/internal/models"
	"shootinggallery/internal/store"
)

const settingsColumns = `mode, target_speed, target_size, target_count, game_time_seconds,
	points_per_hit, is_active, created_at, updated_at`

func (d *DB) FindModeSettings(ctx context.Context, mode models.GameMode) (*models.ModeSettings, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	row := d.conn.QueryRowContext(ctx, `
		SELECT `+settingsColumns+`
		FROM game_settings WHERE mode = $1 AND is_active
	`, string(mode))
	ms, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting settings: %w", err)
	}
	return &ms, nil
}

func (d *DB) ListModeSettings(ctx context.Context) ([]models.ModeSettings, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+settingsColumns+`
		FROM game_settings WHERE is_active ORDER BY mode
	`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	all := []models.ModeSettings{}
	for rows.Next() {
		ms, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning settings: %w", err)
		}
		all = append(all, ms)
	}
	return all, rows.Err()
}

func (d *DB) UpsertModeSettings(ctx context.Context, ms *models.ModeSettings) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO game_settings (mode, target_speed, target_size, target_count, game_time_seconds, points_per_hit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (mode) DO UPDATE SET
			target_speed = EXCLUDED.target_speed,
			target_size = EXCLUDED.target_size,
			target_count = EXCLUDED.target_count,
			game_time_seconds = EXCLUDED.game_time_seconds,
			points_per_hit = EXCLUDED.points_per_hit,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING created_at, updated_at
	`, string(ms.Mode), ms.TargetSpeed, ms.TargetSize, ms.TargetCount, ms.GameTimeSeconds,
		ms.PointsPerHit, ms.IsActive).Scan(&ms.CreatedAt, &ms.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting settings: %w", err)
	}
	return nil
}

func scanSettings(row scanner) (models.ModeSettings, error) {
	var (
		ms   models.ModeSettings
		mode string
	)
	err := row.Scan(&mode, &ms.TargetSpeed, &ms.TargetSize, &ms.TargetCount, &ms.GameTimeSeconds,
		&ms.PointsPerHit, &ms.IsActive, &ms.CreatedAt, &ms.UpdatedAt)
	ms.Mode = models.GameMode(mode)
	return ms, err
}
