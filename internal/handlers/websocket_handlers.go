package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/sand/lbc-exchange/backend/internal/models"
)

type WebSocketHandler struct {
	logger   *slog.Logger
	feed     *models.RateFeed
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(logger *slog.Logger, feed *models.RateFeed) *WebSocketHandler {
	return &WebSocketHandler{
		logger:   logger,
		feed:     feed,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/rate", h.HandleConnection)
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Error upgrading connection", "error", err)
		return
	}

	h.feed.AddSubscriber(conn)
	h.logger.Info("New rate feed subscriber", "remote", r.RemoteAddr, "subscribers", h.feed.SubscriberCount())

	// Keep connection open until the client goes away
	for {
		if _, _, readErr := conn.ReadMessage(); readErr != nil {
			h.logger.Debug("Rate feed connection closed", "remote", r.RemoteAddr, "error", readErr)
			h.feed.RemoveSubscriber(conn)
			return
		}
	}
}
