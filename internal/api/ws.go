package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/ws"
)

// Envelope types spoken over the websocket.
const (
	msgClientHello = "client.hello"
	msgSyncState   = "client.sync_state"
	msgPing        = "ping"

	msgHelloAck     = "server.hello.ack"
	msgSyncStateAck = "server.sync_state.ack"
	msgPong         = "pong"
	msgServerError  = "server.error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients are native apps, not browsers; no origin restriction.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type syncStatePayload struct {
	Watchlist   []domain.WatchlistItem `json:"watchlist"`
	Preferences *domain.Preferences    `json:"preferences"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.String("client_id", clientID), zap.Error(err))
		return
	}
	s.wsManager.Connect(clientID, conn)
	defer func() {
		s.wsManager.Disconnect(clientID, conn)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("ws read failed", zap.String("client_id", clientID), zap.Error(err))
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendEnvelope(conn, clientID, envelope{Type: msgServerError, Payload: errorPayload("invalid_envelope")})
			continue
		}
		s.dispatchEnvelope(r, conn, clientID, env)
	}
}

func (s *Server) dispatchEnvelope(r *http.Request, conn *websocket.Conn, clientID string, env envelope) {
	switch env.Type {
	case msgClientHello:
		s.sendEnvelope(conn, clientID, envelope{Type: msgHelloAck})
	case msgPing:
		s.sendEnvelope(conn, clientID, envelope{Type: msgPong})
	case msgSyncState:
		s.handleSyncState(r, conn, clientID, env.Payload)
	default:
		s.sendEnvelope(conn, clientID, envelope{Type: msgServerError, Payload: errorPayload("invalid_envelope")})
	}
}

// handleSyncState replaces the client's watchlist and upserts preferences
// in one message; either part may be absent.
func (s *Server) handleSyncState(r *http.Request, conn *websocket.Conn, clientID string, raw json.RawMessage) {
	var payload syncStatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendEnvelope(conn, clientID, envelope{Type: msgServerError, Payload: errorPayload("invalid_envelope")})
		return
	}
	ctx := r.Context()

	if payload.Watchlist != nil {
		for i := range payload.Watchlist {
			payload.Watchlist[i].ClientID = clientID
		}
		if err := s.repo.Watchlist.Replace(ctx, clientID, payload.Watchlist); err != nil {
			s.logger.Error("ws sync watchlist", zap.String("client_id", clientID), zap.Error(err))
			s.sendEnvelope(conn, clientID, envelope{Type: msgServerError, Payload: errorPayload("sync_failed")})
			return
		}
	}
	if payload.Preferences != nil {
		prefs := *payload.Preferences
		prefs.ClientID = clientID
		prefs.UpdatedAt = time.Now().UTC()
		if err := s.repo.Preferences.Upsert(ctx, prefs); err != nil {
			s.logger.Error("ws sync preferences", zap.String("client_id", clientID), zap.Error(err))
			s.sendEnvelope(conn, clientID, envelope{Type: msgServerError, Payload: errorPayload("sync_failed")})
			return
		}
	}
	s.sendEnvelope(conn, clientID, envelope{Type: msgSyncStateAck})
}

func (s *Server) sendEnvelope(conn *websocket.Conn, clientID string, env envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("ws marshal envelope", zap.String("type", env.Type), zap.Error(err))
		return
	}
	if err := s.wsManager.Write(clientID, conn, data); err != nil {
		s.logger.Warn("ws write failed", zap.String("client_id", clientID), zap.Error(err))
	}
}

func errorPayload(code string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"code": code})
	return data
}

// RecommendationNotifier adapts the websocket manager to the engine's
// notifier interface, pushing created recommendations to online clients.
type RecommendationNotifier struct {
	Manager *ws.Manager
	Logger  *zap.Logger
}

// NotifyRecommendation pushes one recommendation. Offline clients and write
// failures are ignored; the poll API remains the source of truth.
func (n *RecommendationNotifier) NotifyRecommendation(clientID string, rec *domain.Recommendation) {
	if !n.Manager.IsOnline(clientID) {
		return
	}
	if !n.Manager.SendEvent(clientID, ws.Event{Type: "server.recommendation.created", Payload: rec}) {
		n.Logger.Warn("recommendation push failed", zap.String("client_id", clientID), zap.String("id", rec.ID))
	}
}
