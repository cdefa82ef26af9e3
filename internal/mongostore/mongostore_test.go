package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"shootinggallery/internal/models"
	"shootinggallery/internal/store"
)

func getTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set, skipping mongodb tests")
	}
	ctx := context.Background()
	database := fmt.Sprintf("shooting_gallery_test_%d", time.Now().UnixNano())
	s, err := Connect(ctx, uri, database, 5*time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.client.Database(database).Drop(ctx)
		s.Close(ctx)
	})
	return s
}

func TestSaveAndFindSession(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Millisecond)
	sess := &models.GameSession{
		SessionID:  uuid.NewString(),
		PlayerName: "Ann",
		GameMode:   models.ModeHard,
		StartTime:  start,
		IsActive:   true,
		Settings:   models.Settings{}.WithDefaults(),
		UpdatedAt:  start,
	}
	sess.AddHit(models.Hit{Timestamp: start, Points: 10, Accuracy: 100, Zone: models.ZoneCenter})
	require.NoError(t, s.SaveSession(ctx, sess))

	sess.AddMiss(start.Add(time.Second))
	sess.End(start.Add(2 * time.Second))
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.FindSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.CurrentScore)
	assert.Equal(t, 1, got.HitCount)
	assert.Equal(t, 1, got.MissCount)
	assert.Equal(t, 50, got.Accuracy)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.EndTime)
	require.Len(t, got.Hits, 1)
	assert.Equal(t, models.ZoneCenter, got.Hits[0].Zone)

	_, err = s.FindSession(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertUserByName(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertUserByName(ctx, "Ann")
	require.NoError(t, err)
	second, err := s.UpsertUserByName(ctx, "Ann")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ann@temp.com", second.Email)
}

func TestScoresAndLeaderboard(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	ann, err := s.UpsertUserByName(ctx, "Ann")
	require.NoError(t, err)
	bob, err := s.UpsertUserByName(ctx, "Bob")
	require.NoError(t, err)

	scores := []*models.Score{
		{UserID: ann.ID, SessionID: "s1", Score: 20, Accuracy: 67, GameMode: models.ModeEasy, TimePlayed: 30},
		{UserID: ann.ID, SessionID: "s2", Score: 50, Accuracy: 90, GameMode: models.ModeEasy, TimePlayed: 45},
		{UserID: bob.ID, SessionID: "s3", Score: 40, Accuracy: 80, GameMode: models.ModeHard, TimePlayed: 60},
	}
	for _, sc := range scores {
		require.NoError(t, s.InsertScore(ctx, sc))
		assert.NotEmpty(t, sc.ID)
	}

	dup := &models.Score{UserID: bob.ID, SessionID: "s1", Score: 1, GameMode: models.ModeEasy}
	assert.ErrorIs(t, s.InsertScore(ctx, dup), store.ErrDuplicateScore)

	all, err := s.TopScores(ctx, store.AllModes, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Ann", all[0].Username)
	assert.Equal(t, 50, all[0].Score)
	assert.Equal(t, "Bob", all[1].Username)

	hard, err := s.TopScores(ctx, string(models.ModeHard), 10)
	require.NoError(t, err)
	require.Len(t, hard, 1)
	assert.Equal(t, 40, hard[0].Score)

	limited, err := s.TopScores(ctx, store.AllModes, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	best, err := s.BestScore(ctx, "Ann", models.ModeEasy)
	require.NoError(t, err)
	assert.Equal(t, 50, best.Score)

	_, err = s.BestScore(ctx, "Ann", models.ModeHard)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.BestScore(ctx, "Nobody", models.ModeEasy)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateUser(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	u := &models.User{Username: "Ann", Age: 12, Mode: models.ModeHard}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	err := s.CreateUser(ctx, &models.User{Username: "Ann"})
	assert.ErrorIs(t, err, store.ErrDuplicateUser)

	got, err := s.UpsertUserByName(ctx, "Ann")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 12, got.Age)
	assert.Equal(t, models.ModeHard, got.Mode)
}

func TestModeSettings(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	_, err := s.FindModeSettings(ctx, models.ModeHard)
	assert.ErrorIs(t, err, store.ErrNotFound)

	hard := &models.ModeSettings{Mode: models.ModeHard, TargetSpeed: 3, TargetSize: 20, TargetCount: 20, GameTimeSeconds: 30, PointsPerHit: 25, IsActive: true}
	require.NoError(t, s.UpsertModeSettings(ctx, hard))
	created := hard.CreatedAt
	require.NoError(t, s.UpsertModeSettings(ctx, &models.ModeSettings{Mode: models.ModeMedium, TargetSpeed: 2, TargetSize: 30, TargetCount: 10, GameTimeSeconds: 45, PointsPerHit: 15}))

	hard.PointsPerHit = 30
	require.NoError(t, s.UpsertModeSettings(ctx, hard))
	assert.WithinDuration(t, created, hard.CreatedAt, time.Millisecond)

	got, err := s.FindModeSettings(ctx, models.ModeHard)
	require.NoError(t, err)
	assert.Equal(t, 30, got.PointsPerHit)

	_, err = s.FindModeSettings(ctx, models.ModeMedium)
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := s.ListModeSettings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.ModeHard, all[0].Mode)
}
