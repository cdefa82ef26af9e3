package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shootinggallery/internal/models"
)

type hitDoc struct {
	Timestamp time.Time `bson:"timestamp"`
	TargetID  int       `bson:"target_id"`
	Points    int       `bson:"points"`
	Accuracy  int       `bson:"accuracy"`
	Zone      string    `bson:"zone"`
}

type sessionDoc struct {
	SessionID    string     `bson:"session_id"`
	PlayerName   string     `bson:"player_name"`
	GameMode     string     `bson:"game_mode"`
	CurrentScore int        `bson:"current_score"`
	HitCount     int        `bson:"hit_count"`
	MissCount    int        `bson:"miss_count"`
	Accuracy     int        `bson:"accuracy"`
	StartTime    time.Time  `bson:"start_time"`
	EndTime      *time.Time `bson:"end_time,omitempty"`
	IsActive     bool       `bson:"is_active"`
	Duration     int        `bson:"duration"`
	TargetCount  int        `bson:"target_count"`
	PointsPerHit int        `bson:"points_per_hit"`
	Hits         []hitDoc   `bson:"hits"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Age       int                `bson:"age,omitempty"`
	Mode      string             `bson:"mode,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

type settingsDoc struct {
	Mode            string    `bson:"mode"`
	TargetSpeed     float64   `bson:"target_speed"`
	TargetSize      float64   `bson:"target_size"`
	TargetCount     int       `bson:"target_count"`
	GameTimeSeconds int       `bson:"game_time_seconds"`
	PointsPerHit    int       `bson:"points_per_hit"`
	IsActive        bool      `bson:"is_active"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

type scoreDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	User       primitive.ObjectID `bson:"user"`
	SessionID  string             `bson:"session_id,omitempty"`
	Score      int                `bson:"score"`
	Accuracy   int                `bson:"accuracy"`
	GameMode   string             `bson:"game_mode"`
	TimePlayed int                `bson:"time_played"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// entryDoc is the shape produced by the leaderboard pipeline.
type entryDoc struct {
	Username   string    `bson:"username"`
	Score      int       `bson:"score"`
	Accuracy   int       `bson:"accuracy"`
	GameMode   string    `bson:"game_mode"`
	TimePlayed int       `bson:"time_played"`
	CreatedAt  time.Time `bson:"created_at"`
}

func toSessionDoc(s *models.GameSession) sessionDoc {
	d := sessionDoc{
		SessionID:    s.SessionID,
		PlayerName:   s.PlayerName,
		GameMode:     string(s.GameMode),
		CurrentScore: s.CurrentScore,
		HitCount:     s.HitCount,
		MissCount:    s.MissCount,
		Accuracy:     s.Accuracy,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		IsActive:     s.IsActive,
		Duration:     s.Settings.Duration,
		TargetCount:  s.Settings.TargetCount,
		PointsPerHit: s.Settings.PointsPerHit,
		Hits:         make([]hitDoc, 0, len(s.Hits)),
		UpdatedAt:    s.UpdatedAt,
	}
	for _, h := range s.Hits {
		d.Hits = append(d.Hits, hitDoc{
			Timestamp: h.Timestamp,
			TargetID:  h.TargetID,
			Points:    h.Points,
			Accuracy:  h.Accuracy,
			Zone:      string(h.Zone),
		})
	}
	return d
}

func (d sessionDoc) model() *models.GameSession {
	s := &models.GameSession{
		SessionID:    d.SessionID,
		PlayerName:   d.PlayerName,
		GameMode:     models.GameMode(d.GameMode),
		CurrentScore: d.CurrentScore,
		HitCount:     d.HitCount,
		MissCount:    d.MissCount,
		Accuracy:     d.Accuracy,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		IsActive:     d.IsActive,
		Settings: models.Settings{
			Duration:     d.Duration,
			TargetCount:  d.TargetCount,
			PointsPerHit: d.PointsPerHit,
		},
		Hits:      make([]models.Hit, 0, len(d.Hits)),
		UpdatedAt: d.UpdatedAt,
	}
	for _, h := range d.Hits {
		s.Hits = append(s.Hits, models.Hit{
			Timestamp: h.Timestamp,
			TargetID:  h.TargetID,
			Points:    h.Points,
			Accuracy:  h.Accuracy,
			Zone:      models.Zone(h.Zone),
		})
	}
	return s
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Email:     d.Email,
		Age:       d.Age,
		Mode:      models.GameMode(d.Mode),
		CreatedAt: d.CreatedAt,
	}
}

func (d settingsDoc) model() models.ModeSettings {
	return models.ModeSettings{
		Mode:            models.GameMode(d.Mode),
		TargetSpeed:     d.TargetSpeed,
		TargetSize:      d.TargetSize,
		TargetCount:     d.TargetCount,
		GameTimeSeconds: d.GameTimeSeconds,
		PointsPerHit:    d.PointsPerHit,
		IsActive:        d.IsActive,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (d entryDoc) model() models.LeaderboardEntry {
	return models.LeaderboardEntry{
		Username:   d.Username,
		Score:      d.Score,
		Accuracy:   d.Accuracy,
		GameMode:   models.GameMode(d.GameMode),
		TimePlayed: d.TimePlayed,
		CreatedAt:  d.CreatedAt,
	}
}
