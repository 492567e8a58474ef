package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/keepsake/internal/typeid"
)

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Handler upgrades /ws/designs/{designId} requests into editing sessions.
type Handler struct {
	hub            *Hub
	tokens         TokenValidator
	originPatterns []string
}

// NewHandler creates the websocket endpoint. A nil tokens validator allows
// anonymous sessions.
func NewHandler(hub *Hub, tokens TokenValidator, originPatterns []string) *Handler {
	return &Handler{hub: hub, tokens: tokens, originPatterns: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	designID := mux.Vars(r)["designId"]
	if err := typeid.Validate(designID, typeid.PrefixDesign); err != nil {
		http.Error(w, "invalid design id", http.StatusBadRequest)
		return
	}

	userID := "anon-" + uuid.New().String()[:8]
	if h.tokens != nil {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		var err error
		userID, err = h.tokens.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	if h.hub.Active(designID) {
		http.Error(w, ErrSessionBusy.Error(), http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := NewClient(conn, uuid.New().String())
	sess, err := h.hub.Open(ctx, designID, userID, client)
	if err != nil {
		status := websocket.StatusInternalError
		if errors.Is(err, ErrSessionBusy) || errors.Is(err, ErrHubStopped) {
			status = websocket.StatusTryAgainLater
		}
		slog.Warn("open session", "design", designID, "error", err)
		conn.Close(status, err.Error())
		return
	}

	// A session closed by the hub ends the connection too.
	go func() {
		select {
		case <-sess.Done():
			conn.Close(websocket.StatusGoingAway, "session closed")
		case <-ctx.Done():
		}
	}()

	go client.WritePump(ctx)
	client.ReadPump(ctx, sess)
	sess.Close()
}
