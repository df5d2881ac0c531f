// Package api provides the HTTP API for observing and steering the town.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/tiny-town/internal/persistence"
	"github.com/talgya/tiny-town/internal/sim"
)

// Server serves the town state over HTTP.
type Server struct {
	World    *sim.World
	Eng      *sim.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	controlLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only — anyone can check in on the town).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/characters", s.handleCharacters)
	mux.HandleFunc("/api/v1/character/", s.handleCharacterDetail)
	mux.HandleFunc("/api/v1/conversations", s.handleConversations)
	mux.HandleFunc("/api/v1/conversation/", s.handleConversationDetail)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/control", RateLimitMiddleware(controlLimiter, s.adminOnly(s.handleControl)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no TOWNSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.World.Mu.Lock()
	defer s.World.Mu.Unlock()

	sit := sim.SituationAt(s.World.Tick)
	writeJSON(w, map[string]any{
		"tick":          s.World.Tick,
		"sim_time":      sim.SimTime(s.World.Tick),
		"day":           sit.Day,
		"hour":          sit.Hour,
		"minute":        sit.Minute,
		"speed":         s.Eng.Speed(),
		"running":       s.Eng.Running(),
		"characters":    len(s.World.Order),
		"conversations": s.World.ActiveConversationCount(),
	})
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	type characterSummary struct {
		ID            string  `json:"id"`
		Name          string  `json:"name"`
		Role          string  `json:"role"`
		Avatar        string  `json:"avatar,omitempty"`
		Location      string  `json:"location"`
		Mood          string  `json:"mood"`
		Status        string  `json:"status"`
		CurrentAction string  `json:"current_action"`
		Energy        float64 `json:"energy"`
		Stress        float64 `json:"stress"`
		SocialNeed    float64 `json:"social_need"`
		InConvo       bool    `json:"in_conversation"`
	}

	s.World.Mu.Lock()
	defer s.World.Mu.Unlock()

	result := make([]characterSummary, 0, len(s.World.Order))
	for _, id := range s.World.Order {
		c := s.World.Characters[id]
		result = append(result, characterSummary{
			ID:            c.ID,
			Name:          c.Name,
			Role:          c.Role,
			Avatar:        c.Avatar,
			Location:      c.Location,
			Mood:          c.Mood,
			Status:        c.Status,
			CurrentAction: c.CurrentAction,
			Energy:        c.Energy,
			Stress:        c.Stress,
			SocialNeed:    c.SocialNeed,
			InConvo:       c.InConversation(),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleCharacterDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/character/")
	if id == "" {
		http.Error(w, "missing character id", http.StatusBadRequest)
		return
	}

	s.World.Mu.Lock()
	defer s.World.Mu.Unlock()

	c, ok := s.World.Characters[id]
	if !ok {
		http.Error(w, "character not found", http.StatusNotFound)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	type conversationSummary struct {
		ID           string   `json:"id"`
		Location     string   `json:"location"`
		Participants []string `json:"participants"`
		TurnHolder   string   `json:"turn_holder,omitempty"`
		Active       bool     `json:"active"`
		Turns        int      `json:"turns"`
		StartedTick  uint64   `json:"started_tick"`
	}

	includeEnded := r.URL.Query().Get("all") == "true"

	s.World.Mu.Lock()
	defer s.World.Mu.Unlock()

	result := make([]conversationSummary, 0, len(s.World.Conversations))
	for _, conv := range s.World.Conversations {
		if !conv.Active && !includeEnded {
			continue
		}
		entry := conversationSummary{
			ID:          conv.ID,
			Location:    conv.Location,
			Active:      conv.Active,
			Turns:       len(conv.Log),
			StartedTick: conv.StartedTick,
		}
		members := conv.Participants
		if !conv.Active {
			members = conv.Historical
		} else {
			entry.TurnHolder = conv.TurnHolder
		}
		for _, pid := range members {
			if c := s.World.Characters[pid]; c != nil {
				entry.Participants = append(entry.Participants, c.Name)
			}
		}
		result = append(result, entry)
	}
	writeJSON(w, result)
}

func (s *Server) handleConversationDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/conversation/")
	if id == "" {
		http.Error(w, "missing conversation id", http.StatusBadRequest)
		return
	}

	s.World.Mu.Lock()
	defer s.World.Mu.Unlock()

	conv, ok := s.World.Conversations[id]
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, conv)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	s.World.Mu.Lock()
	defer s.World.Mu.Unlock()

	events := s.World.Events

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []sim.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

// handleControl is the admin control plane: pause, resume, reset, and
// single-step. Reset discards the live world and reseeds from the
// scenario; it does not touch the saved snapshot.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	switch req.Action {
	case "pause":
		s.Eng.Pause()
	case "resume":
		s.Eng.Resume()
	case "reset":
		s.World.Reset()
	case "step":
		s.Eng.Step()
	default:
		http.Error(w, "unknown action (want pause|resume|reset|step)", http.StatusBadRequest)
		return
	}

	slog.Info("control action", "action", req.Action, "sim_time", sim.SimTime(s.World.Tick))
	writeJSON(w, map[string]any{"action": req.Action, "speed": s.Eng.Speed()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	s.World.Mu.Lock()
	err := s.DB.SaveWorldState(s.World)
	tick := s.World.Tick
	s.World.Mu.Unlock()

	if err != nil {
		slog.Error("snapshot failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved": true, "tick": tick})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("JSON encode error", "error", err)
	}
}
