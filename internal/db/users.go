package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"shootinggallery/internal/models"
	"shootinggallery/internal/store"
)

func (d *DB) UpsertUserByName(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var (
		u    models.User
		mode string
	)
	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, email, age, mode, created_at
	`, uuid.NewString(), username, models.PlaceholderEmail(username)).Scan(&u.ID, &u.Username, &u.Email, &u.Age, &mode, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	u.Mode = models.GameMode(mode)
	return &u, nil
}

func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, age, mode)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, u.ID, u.Username, u.Email, u.Age, string(u.Mode)).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}
