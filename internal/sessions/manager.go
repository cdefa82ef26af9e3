// Package sessions owns the lifecycle of game sessions: creation, hit and miss
// scoring, finalization into a durable score, and leaderboard queries.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"shootinggallery/internal/metrics"
	"shootinggallery/internal/models"
	"shootinggallery/internal/store"
)

var (
	ErrSessionNotFound    = errors.New("active session not found")
	ErrInvalidGameMode    = errors.New("invalid game mode")
	ErrInvalidZone        = errors.New("invalid zone")
	ErrInvalidPoints      = errors.New("hit points must not be negative")
	ErrPlayerNameRequired = errors.New("player name is required")
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	FinishedTTL  time.Duration
	FinishedSize int
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// entry serializes mutations of one session. done is set once the session is
// finalized; later mutations observe it and fail.
type entry struct {
	mu      sync.Mutex
	session *models.GameSession
	done    bool
}

// Manager owns every active session. Each session is mutated under its own lock
// and persisted before the change becomes visible to readers.
type Manager struct {
	store   store.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	active   map[string]*entry
	finished *expirable.LRU[string, *models.GameSession]
}

// NewManager creates a Manager backed by st.
func NewManager(st store.Store, log *zap.Logger, opts Options) *Manager {
	if opts.FinishedTTL <= 0 {
		opts.FinishedTTL = time.Hour
	}
	if opts.FinishedSize <= 0 {
		opts.FinishedSize = 1024
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:    st,
		log:      log.Named("sessions"),
		metrics:  opts.Metrics,
		now:      opts.Now,
		active:   make(map[string]*entry),
		finished: expirable.NewLRU[string, *models.GameSession](opts.FinishedSize, nil, opts.FinishedTTL),
	}
}

// CreateSession starts an active session for playerName. Settings fields left at
// zero come from the stored settings for the mode, then the built-in defaults.
func (m *Manager) CreateSession(ctx context.Context, playerName, gameMode string, settings models.Settings) (*models.GameSession, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, ErrPlayerNameRequired
	}
	mode, err := models.ParseGameMode(gameMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGameMode, err)
	}

	now := m.now()
	s := &models.GameSession{
		SessionID:  uuid.NewString(),
		PlayerName: playerName,
		GameMode:   mode,
		StartTime:  now,
		IsActive:   true,
		Settings:   m.sessionSettings(ctx, mode, settings),
		Hits:       []models.Hit{},
		UpdatedAt:  now,
	}
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	m.mu.Lock()
	m.active[s.SessionID] = &entry{session: s}
	m.mu.Unlock()

	m.metrics.SessionEvent("create")
	m.log.Info("game session created",
		zap.String("sessionId", s.SessionID),
		zap.String("player", playerName),
		zap.String("mode", string(mode)))
	return s.Clone(), nil
}

// HitResult is the session state after a hit.
type HitResult struct {
	SessionID    string     `json:"sessionId"`
	CurrentScore int        `json:"currentScore"`
	HitCount     int        `json:"hitCount"`
	Accuracy     int        `json:"accuracy"`
	Hit          models.Hit `json:"hit"`
}

// RegisterHit applies a hit to an active session. Omitted hit fields take their
// defaults; an unknown zone or negative points are rejected.
func (m *Manager) RegisterHit(ctx context.Context, sessionID string, in models.HitInput) (HitResult, error) {
	hit, err := m.buildHit(in)
	if err != nil {
		return HitResult{}, err
	}
	s, err := m.mutate(ctx, sessionID, func(s *models.GameSession) {
		s.AddHit(hit)
	})
	if err != nil {
		return HitResult{}, err
	}
	m.metrics.SessionEvent("hit")
	m.log.Debug("hit registered",
		zap.String("sessionId", sessionID),
		zap.Int("points", hit.Points),
		zap.Int("score", s.CurrentScore))
	return HitResult{
		SessionID:    sessionID,
		CurrentScore: s.CurrentScore,
		HitCount:     s.HitCount,
		Accuracy:     s.Accuracy,
		Hit:          hit,
	}, nil
}

func (m *Manager) buildHit(in models.HitInput) (models.Hit, error) {
	zone, err := models.ParseZone(in.Zone)
	if err != nil {
		return models.Hit{}, fmt.Errorf("%w: %v", ErrInvalidZone, err)
	}
	hit := models.Hit{
		Timestamp: m.now(),
		Points:    models.DefaultHitPoints,
		Accuracy:  models.DefaultHitAccuracy,
		Zone:      zone,
	}
	if in.TargetID != nil {
		hit.TargetID = *in.TargetID
	}
	if in.Points != nil {
		if *in.Points < 0 {
			return models.Hit{}, fmt.Errorf("%w: %d", ErrInvalidPoints, *in.Points)
		}
		hit.Points = *in.Points
	}
	if in.Accuracy != nil {
		hit.Accuracy = min(max(*in.Accuracy, 0), 100)
	}
	return hit, nil
}

// MissResult is the session state after a miss.
type MissResult struct {
	SessionID    string `json:"sessionId"`
	CurrentScore int    `json:"currentScore"`
	MissCount    int    `json:"missCount"`
	Accuracy     int    `json:"accuracy"`
}

// RegisterMiss records a miss on an active session.
func (m *Manager) RegisterMiss(ctx context.Context, sessionID string) (MissResult, error) {
	at := m.now()
	s, err := m.mutate(ctx, sessionID, func(s *models.GameSession) {
		s.AddMiss(at)
	})
	if err != nil {
		return MissResult{}, err
	}
	m.metrics.SessionEvent("miss")
	m.log.Debug("miss registered", zap.String("sessionId", sessionID), zap.Int("misses", s.MissCount))
	return MissResult{
		SessionID:    sessionID,
		CurrentScore: s.CurrentScore,
		MissCount:    s.MissCount,
		Accuracy:     s.Accuracy,
	}, nil
}

// mutate applies fn to a copy of the session and publishes the copy only after
// it has been persisted.
func (m *Manager) mutate(ctx context.Context, sessionID string, fn func(*models.GameSession)) (*models.GameSession, error) {
	e, err := m.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return nil, ErrSessionNotFound
	}

	next := e.session.Clone()
	fn(next)
	if err := m.store.SaveSession(ctx, next); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	e.session = next
	return next.Clone(), nil
}

// lookup returns the entry of an active session, loading it from the store when
// the process has not seen it yet.
func (m *Manager) lookup(ctx context.Context, sessionID string) (*entry, error) {
	m.mu.Lock()
	e, ok := m.active[sessionID]
	m.mu.Unlock()
	if ok {
		return e, nil
	}

	s, err := m.store.FindSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !s.IsActive {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.active[sessionID]; ok {
		return e, nil
	}
	if m.finished.Contains(sessionID) {
		return nil, ErrSessionNotFound
	}
	e = &entry{session: s}
	m.active[sessionID] = e
	return e, nil
}

// Summary describes a finalized session and the score saved for it.
type Summary struct {
	SessionID  string          `json:"sessionId"`
	PlayerName string          `json:"playerName"`
	GameMode   models.GameMode `json:"gameMode"`
	FinalScore int             `json:"finalScore"`
	HitCount   int             `json:"hitCount"`
	MissCount  int             `json:"missCount"`
	Accuracy   int             `json:"accuracy"`
	Duration   int             `json:"duration"` // seconds
	SavedScore *models.Score   `json:"savedScore,omitempty"`
}

// EndSession finalizes an active session and records its score. A session can
// be ended once; later calls fail with ErrSessionNotFound.
func (m *Manager) EndSession(ctx context.Context, sessionID string) (Summary, error) {
	e, err := m.lookup(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return Summary{}, ErrSessionNotFound
	}

	final := e.session.Clone()
	final.End(m.now())

	user, err := m.store.UpsertUserByName(ctx, final.PlayerName)
	if err != nil {
		return Summary{}, fmt.Errorf("resolving user: %w", err)
	}
	score := &models.Score{
		UserID:     user.ID,
		SessionID:  final.SessionID,
		Score:      final.CurrentScore,
		Accuracy:   final.Accuracy,
		GameMode:   final.GameMode,
		TimePlayed: final.DurationSeconds(),
	}
	saved := score
	switch err := m.store.InsertScore(ctx, score); {
	case errors.Is(err, store.ErrDuplicateScore):
		// A previous attempt recorded the score but failed to persist the session.
		m.log.Warn("score already recorded", zap.String("sessionId", sessionID))
		saved = nil
	case err != nil:
		return Summary{}, fmt.Errorf("saving score: %w", err)
	}
	if err := m.store.SaveSession(ctx, final); err != nil {
		return Summary{}, fmt.Errorf("saving session: %w", err)
	}

	e.session = final
	e.done = true
	m.mu.Lock()
	m.finished.Add(sessionID, final)
	delete(m.active, sessionID)
	m.mu.Unlock()

	m.metrics.SessionEvent("end")
	m.log.Info("game session ended",
		zap.String("sessionId", sessionID),
		zap.Int("finalScore", final.CurrentScore),
		zap.Int("accuracy", final.Accuracy))
	return Summary{
		SessionID:  sessionID,
		PlayerName: final.PlayerName,
		GameMode:   final.GameMode,
		FinalScore: final.CurrentScore,
		HitCount:   final.HitCount,
		MissCount:  final.MissCount,
		Accuracy:   final.Accuracy,
		Duration:   final.DurationSeconds(),
		SavedScore: saved,
	}, nil
}

// GetSessionStats returns a snapshot of an active or finalized session.
func (m *Manager) GetSessionStats(ctx context.Context, sessionID string) (*models.GameSession, error) {
	m.mu.Lock()
	e, ok := m.active[sessionID]
	if !ok {
		if s, ok := m.finished.Get(sessionID); ok {
			m.mu.Unlock()
			return s.Clone(), nil
		}
	}
	m.mu.Unlock()

	if ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.session.Clone(), nil
	}

	s, err := m.store.FindSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return s, nil
}

// GetLeaderboard returns the highest scores for a game mode, or for every mode
// when gameMode is "all". An empty mode selects easy.
func (m *Manager) GetLeaderboard(ctx context.Context, gameMode string, limit int) ([]models.LeaderboardEntry, error) {
	mode := strings.ToLower(strings.TrimSpace(gameMode))
	if mode != store.AllModes {
		parsed, err := models.ParseGameMode(mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGameMode, err)
		}
		mode = string(parsed)
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)

	entries, err := m.store.TopScores(ctx, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	return entries, nil
}

// PersonalBest returns the user's highest score in a mode. The boolean is false
// when the user has no score for it.
func (m *Manager) PersonalBest(ctx context.Context, username, gameMode string) (*models.LeaderboardEntry, bool, error) {
	mode, err := models.ParseGameMode(gameMode)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidGameMode, err)
	}
	best, err := m.store.BestScore(ctx, username, mode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting best score: %w", err)
	}
	return best, true, nil
}

// ActiveCount reports how many sessions are currently cached as active.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
