package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"pairs-server/auth"
	"pairs-server/config"
	"pairs-server/game"
	"pairs-server/leaderboard"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LobbyInterface defines what the Hub needs from the lobby.
type LobbyInterface interface {
	Join(playerID, playerName string, gridSize int, send chan []byte) (*game.Session, bool, error)
	Leave(s *game.Session, playerID string)
}

// Hub maintains the set of connected clients and tears down session
// membership when a connection closes.
type Hub struct {
	Clients     map[*Client]bool
	Register    chan *Client
	Unregister  chan *Client
	Lobby       LobbyInterface
	Leaderboard leaderboard.Gateway
	Config      *config.Config
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, lobby LobbyInterface, board leaderboard.Gateway) *Hub {
	return &Hub{
		Clients:     make(map[*Client]bool),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		Lobby:       lobby,
		Leaderboard: board,
		Config:      cfg,
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run returns and no longer
// accepts new registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "ws", "total", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				slog.Info("client disconnected", "tag", "ws", "total", len(h.Clients))

				// Connection loss is a leave: the lobby tears down a waiting
				// session or abandons a running one.
				if client.Session != nil {
					h.Lobby.Leave(client.Session, client.PlayerID)
				}
			}
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
// When auth is configured the request must carry a valid bearer token.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var claimedName string
	if h.Config.AuthBaseURL != "" {
		token := bearerToken(r)
		claims, err := auth.ValidateToken(h.Config.AuthBaseURL, token)
		if err != nil {
			slog.Warn("rejected unauthenticated upgrade", "tag", "ws", "err", err)
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		claimedName = auth.DisplayNameFromClaims(claims)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:         h,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		ClaimedName: claimedName,
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// bearerToken extracts a token from the Authorization header or the "token"
// query parameter (browsers cannot set headers on websocket upgrades).
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return r.URL.Query().Get("token")
}
