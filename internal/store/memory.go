package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shootinggallery/internal/models"
)

// Memory keeps everything in process. It is used when no database is configured
// and in tests.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*models.GameSession
	users    map[string]*models.User // by username
	scores   []*models.Score
	settings map[models.GameMode]*models.ModeSettings
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*models.GameSession),
		users:    make(map[string]*models.User),
		settings: make(map[models.GameMode]*models.ModeSettings),
	}
}

func (m *Memory) SaveSession(_ context.Context, s *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

func (m *Memory) FindSession(_ context.Context, sessionID string) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *Memory) UpsertUserByName(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		c := *u
		return &c, nil
	}
	u := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     models.PlaceholderEmail(username),
		CreatedAt: time.Now(),
	}
	m.users[username] = u
	c := *u
	return &c, nil
}

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return ErrDuplicateUser
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	c := *u
	m.users[u.Username] = &c
	return nil
}

func (m *Memory) InsertScore(_ context.Context, sc *models.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.scores {
		if sc.SessionID != "" && existing.SessionID == sc.SessionID {
			return ErrDuplicateScore
		}
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now()
	}
	c := *sc
	m.scores = append(m.scores, &c)
	return nil
}

// Scores returns a copy of every recorded score in insertion order.
func (m *Memory) Scores() []models.Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Score, 0, len(m.scores))
	for _, sc := range m.scores {
		out = append(out, *sc)
	}
	return out
}

func (m *Memory) TopScores(_ context.Context, mode string, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]models.LeaderboardEntry, 0, len(m.scores))
	for _, sc := range m.scores {
		if mode != AllModes && string(sc.GameMode) != mode {
			continue
		}
		entries = append(entries, m.entryLocked(sc))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *Memory) BestScore(_ context.Context, username string, mode models.GameMode) (*models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	var best *models.Score
	for _, sc := range m.scores {
		if sc.UserID != u.ID || sc.GameMode != mode {
			continue
		}
		if best == nil || sc.Score > best.Score {
			best = sc
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	e := m.entryLocked(best)
	return &e, nil
}

func (m *Memory) entryLocked(sc *models.Score) models.LeaderboardEntry {
	e := models.LeaderboardEntry{
		Score:      sc.Score,
		Accuracy:   sc.Accuracy,
		GameMode:   sc.GameMode,
		TimePlayed: sc.TimePlayed,
		CreatedAt:  sc.CreatedAt,
	}
	for _, u := range m.users {
		if u.ID == sc.UserID {
			e.Username = u.Username
			break
		}
	}
	return e
}

func (m *Memory) FindModeSettings(_ context.Context, mode models.GameMode) (*models.ModeSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.settings[mode]
	if !ok || !ms.IsActive {
		return nil, ErrNotFound
	}
	c := *ms
	return &c, nil
}

func (m *Memory) ListModeSettings(context.Context) ([]models.ModeSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ModeSettings, 0, len(m.settings))
	for _, ms := range m.settings {
		if ms.IsActive {
			out = append(out, *ms)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mode < out[j].Mode })
	return out, nil
}

func (m *Memory) UpsertModeSettings(_ context.Context, ms *models.ModeSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.settings[ms.Mode]; ok {
		ms.CreatedAt = existing.CreatedAt
	} else {
		ms.CreatedAt = now
	}
	ms.UpdatedAt = now
	c := *ms
	m.settings[ms.Mode] = &c
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }
