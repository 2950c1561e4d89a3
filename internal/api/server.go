// Package api exposes the HTTP JSON surface and the websocket endpoint.
// The engine itself never speaks HTTP; this package translates requests
// into engine and store calls.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/engine"
	"stock-advisor/internal/observability"
	"stock-advisor/internal/storage"
	"stock-advisor/internal/ws"
)

const defaultListLimit = 20

// Server routes HTTP and websocket traffic to the engine and stores.
type Server struct {
	engine    *engine.Engine
	repo      storage.Repository
	wsManager *ws.Manager
	logger    *zap.Logger
}

// NewServer creates the API server.
func NewServer(eng *engine.Engine, repo storage.Repository, wsManager *ws.Manager, logger *zap.Logger) *Server {
	return &Server{engine: eng, repo: repo, wsManager: wsManager, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /v1/recommendations", s.handleListRecommendations)
	mux.HandleFunc("POST /v1/recommendations/trigger", s.handleTriggerScan)
	mux.HandleFunc("GET /v1/recommendations/status", s.handleScanStatus)
	mux.HandleFunc("GET /v1/discover", s.handleDiscover)
	mux.HandleFunc("POST /v1/discover/trigger", s.handleTriggerDiscovery)
	mux.HandleFunc("GET /v1/discover/status", s.handleDiscoveryStatus)
	mux.HandleFunc("POST /v1/feedback", s.handleCreateFeedback)
	mux.HandleFunc("GET /v1/config", s.handleGetConfig)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"ws_clients": s.wsManager.OnlineCount(),
	})
}

func (s *Server) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", defaultListLimit)
	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC3339")
			return
		}
		before = &t
	}

	recs, err := s.repo.Recommendations.List(r.Context(), clientID, limit, before)
	if err != nil {
		s.logger.Error("list recommendations", zap.String("client_id", clientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []*domain.Recommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (s *Server) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	result, message := s.engine.TriggerScan(clientID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": result, "message": message})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetScanStatus(clientID))
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	items, err := s.engine.DiscoverStocks(r.Context(), clientID, queryInt(r, "limit", 0), queryInt(r, "universe_limit", 0))
	if err != nil {
		s.logger.Error("discover", zap.String("client_id", clientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "discovery failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleTriggerDiscovery(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	result, message := s.engine.TriggerDiscovery(clientID, queryInt(r, "limit", 0), queryInt(r, "universe_limit", 0))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": result, "message": message})
}

func (s *Server) handleDiscoveryStatus(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetDiscoveryStatus(clientID))
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID         string `json:"client_id"`
		RecommendationID string `json:"recommendation_id"`
		Helpful          bool   `json:"helpful"`
		Reason           string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ClientID == "" || req.RecommendationID == "" {
		writeError(w, http.StatusBadRequest, "client_id and recommendation_id are required")
		return
	}

	fb := &domain.Feedback{
		ID:               uuid.NewString(),
		ClientID:         req.ClientID,
		RecommendationID: req.RecommendationID,
		Helpful:          req.Helpful,
		Reason:           req.Reason,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Feedback.Insert(r.Context(), fb); err != nil {
		if errors.Is(err, storage.ErrInvalidInput) || errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown recommendation")
			return
		}
		s.logger.Error("create feedback", zap.String("client_id", req.ClientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	prefs, err := s.repo.Preferences.GetByClient(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			defaults := domain.DefaultPreferences(clientID)
			writeJSON(w, http.StatusOK, defaults)
			return
		}
		s.logger.Error("get preferences", zap.String("client_id", clientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func requireClientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return "", false
	}
	return clientID, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
