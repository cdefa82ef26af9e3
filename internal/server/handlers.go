package server

import (
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"shootinggallery/internal/models"
	"shootinggallery/internal/relay"
	"shootinggallery/internal/sessions"
	"shootinggallery/internal/store"
	"shootinggallery/internal/wshub"
)

const maxBodyBytes = 1 << 20

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Sessions       *sessions.Manager
	Gateway        *relay.Gateway
	Router         *relay.Router
	Registry       *wshub.Registry
	Store          store.Store
	Gatherer       prometheus.Gatherer // nil disables /metrics
	OriginPatterns []string
	Log            *zap.Logger
}

type fields map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, message string, extra fields) {
	body := fields{"success": true, "message": message}
	maps.Copy(body, extra)
	writeJSON(w, http.StatusOK, body)
}

func writeCreated(w http.ResponseWriter, message string, extra fields) {
	body := fields{"success": true, "message": message}
	maps.Copy(body, extra)
	writeJSON(w, http.StatusCreated, body)
}

func writeFailure(w http.ResponseWriter, status int, message string, extra fields) {
	body := fields{"success": false, "message": message}
	maps.Copy(body, extra)
	writeJSON(w, status, body)
}

// writeError maps domain errors to client errors; anything else is a server error.
func (s *Server) writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound),
		errors.Is(err, sessions.ErrSettingsNotFound):
		writeFailure(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, sessions.ErrPlayerNameRequired),
		errors.Is(err, sessions.ErrInvalidGameMode),
		errors.Is(err, sessions.ErrInvalidZone),
		errors.Is(err, sessions.ErrInvalidPoints),
		errors.Is(err, sessions.ErrInvalidSettings),
		errors.Is(err, sessions.ErrInvalidRegistration),
		errors.Is(err, sessions.ErrUsernameTaken),
		errors.Is(err, sessions.ErrInvalidScore),
		errors.Is(err, relay.ErrCommandRequired):
		writeFailure(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, relay.ErrNoHardware):
		writeFailure(w, http.StatusServiceUnavailable, "No hardware devices connected", fields{"stats": s.Gateway.Status()})
	default:
		s.Log.Error(message, zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, message, fields{"error": err.Error()})
	}
}

// decodeBody reads a JSON request body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeFailure(w, http.StatusBadRequest, "Invalid JSON body", fields{"error": err.Error()})
	return false
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req relay.StartOptions
	if !decodeBody(w, r, &req) {
		return
	}
	cmd, err := s.Gateway.StartGame(req)
	if err != nil {
		s.writeError(w, err, "Failed to start game")
		return
	}
	writeSuccess(w, "Game start command sent to device", fields{"command": cmd})
}

func (s *Server) handleStopGame(w http.ResponseWriter, r *http.Request) {
	cmd, err := s.Gateway.StopGame()
	if err != nil {
		s.writeError(w, err, "Failed to stop game")
		return
	}
	writeSuccess(w, "Game stop command sent to device", fields{"command": cmd})
}

func (s *Server) handleResetGame(w http.ResponseWriter, r *http.Request) {
	cmd, err := s.Gateway.ResetGame()
	if err != nil {
		s.writeError(w, err, "Failed to reset game")
		return
	}
	writeSuccess(w, "Game reset command sent to device", fields{"command": cmd})
}

func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
		Data    any    `json:"data"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	cmd, err := s.Gateway.SendCommand(req.Command, req.Data)
	if err != nil {
		s.writeError(w, err, "Failed to send command")
		return
	}
	writeSuccess(w, "Custom command sent to device", fields{"command": cmd})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	msg, sent := s.Gateway.TestConnection()
	writeSuccess(w, "Test message sent", fields{
		"messageSent": sent,
		"stats":       s.Gateway.Status(),
		"testMessage": msg,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "WebSocket status retrieved", fields{
		"stats":     s.Gateway.Status(),
		"timestamp": nowMillis(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerName string          `json:"playerName"`
		GameMode   string          `json:"gameMode"`
		Settings   models.Settings `json:"gameSettings"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := s.Sessions.CreateSession(r.Context(), req.PlayerName, req.GameMode, req.Settings)
	if err != nil {
		s.writeError(w, err, "Failed to create game session")
		return
	}

	s.Gateway.NotifyWeb(relay.SessionCreatedEvent{
		Type:       relay.TypeSessionCreated,
		SessionID:  session.SessionID,
		PlayerName: session.PlayerName,
		GameMode:   session.GameMode,
		Timestamp:  nowMillis(),
	})
	writeSuccess(w, "Game session created successfully", fields{
		"session": fields{
			"sessionId":    session.SessionID,
			"playerName":   session.PlayerName,
			"gameMode":     session.GameMode,
			"gameSettings": session.Settings,
		},
	})
}

type sessionRequest struct {
	SessionID string          `json:"sessionId"`
	HitData   models.HitInput `json:"hitData"`
}

func decodeSessionRequest(w http.ResponseWriter, r *http.Request) (sessionRequest, bool) {
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		writeFailure(w, http.StatusBadRequest, "Session ID is required", nil)
		return req, false
	}
	return req, true
}

func (s *Server) handleRegisterHit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}
	result, err := s.Sessions.RegisterHit(r.Context(), req.SessionID, req.HitData)
	if err != nil {
		s.writeError(w, err, "Failed to register hit")
		return
	}

	s.Gateway.NotifyWeb(relay.HitScoredEvent{
		Type:         relay.TypeHitScored,
		SessionID:    result.SessionID,
		CurrentScore: result.CurrentScore,
		HitCount:     result.HitCount,
		Accuracy:     result.Accuracy,
		Hit:          result.Hit,
		Timestamp:    nowMillis(),
	})
	writeSuccess(w, "Hit registered successfully", fields{"result": result})
}

func (s *Server) handleRegisterMiss(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}
	result, err := s.Sessions.RegisterMiss(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, err, "Failed to register miss")
		return
	}

	s.Gateway.NotifyWeb(relay.MissRegisteredEvent{
		Type:      relay.TypeMissRegistered,
		SessionID: result.SessionID,
		MissCount: result.MissCount,
		Accuracy:  result.Accuracy,
		Timestamp: nowMillis(),
	})
	writeSuccess(w, "Miss registered successfully", fields{"result": result})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}
	summary, err := s.Sessions.EndSession(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, err, "Failed to end game session")
		return
	}

	s.Gateway.NotifyWeb(relay.SessionEndedEvent{
		Type:       relay.TypeSessionEnded,
		SessionID:  summary.SessionID,
		PlayerName: summary.PlayerName,
		FinalScore: summary.FinalScore,
		HitCount:   summary.HitCount,
		MissCount:  summary.MissCount,
		Accuracy:   summary.Accuracy,
		Duration:   summary.Duration,
		Timestamp:  nowMillis(),
	})
	writeSuccess(w, "Game session ended successfully", fields{"result": summary})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Sessions.GetSessionStats(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		s.writeError(w, err, "Failed to get session statistics")
		return
	}
	writeSuccess(w, "Session statistics retrieved successfully", fields{"stats": stats})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("gameMode")
	if mode == "" {
		mode = string(models.ModeEasy)
	}
	limit := sessions.DefaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "limit must be a number", nil)
			return
		}
		limit = n
	}

	entries, err := s.Sessions.GetLeaderboard(r.Context(), mode, limit)
	if err != nil {
		s.writeError(w, err, "Failed to get leaderboard")
		return
	}
	writeSuccess(w, "Leaderboard retrieved successfully", fields{
		"leaderboard": entries,
		"gameMode":    mode,
	})
}

func (s *Server) handlePersonalBest(w http.ResponseWriter, r *http.Request) {
	best, ok, err := s.Sessions.PersonalBest(r.Context(), r.PathValue("username"), r.PathValue("gameMode"))
	if err != nil {
		s.writeError(w, err, "Failed to get best score")
		return
	}
	if !ok {
		writeSuccess(w, "No scores found for this user and game mode", fields{"bestScore": nil})
		return
	}
	writeSuccess(w, "Best score retrieved successfully", fields{"bestScore": best})
}

func (s *Server) handleSaveScore(w http.ResponseWriter, r *http.Request) {
	var req sessions.ScoreInput
	if !decodeBody(w, r, &req) {
		return
	}
	score, err := s.Sessions.SaveScore(r.Context(), req)
	if err != nil {
		s.writeError(w, err, "Failed to save score")
		return
	}
	writeCreated(w, "Score saved successfully", fields{"score": score})
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.Sessions.AllModeSettings(r.Context())
	if err != nil {
		s.writeError(w, err, "Failed to get game settings")
		return
	}
	writeSuccess(w, "All game settings retrieved successfully", fields{"settings": all})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ms, err := s.Sessions.ModeSettings(r.Context(), r.PathValue("mode"))
	if err != nil {
		s.writeError(w, err, "Failed to get game settings")
		return
	}
	writeSuccess(w, "Game settings retrieved successfully", fields{"settings": ms})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req sessions.SettingsInput
	if !decodeBody(w, r, &req) {
		return
	}
	ms, err := s.Sessions.SaveModeSettings(r.Context(), req)
	if err != nil {
		s.writeError(w, err, "Failed to save game settings")
		return
	}
	writeCreated(w, "Game settings created/updated successfully", fields{"settings": ms})
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req sessions.Registration
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.Sessions.RegisterUser(r.Context(), req)
	if err != nil {
		s.writeError(w, err, "Failed to register user")
		return
	}
	writeCreated(w, "User registered successfully", fields{"user": user})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, fields{"status": "db_error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, fields{"status": "ok", "clients": s.Registry.Stats()})
}
