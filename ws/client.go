package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"pairs-server/game"
	"pairs-server/leaderboard"
	"pairs-server/protocol"
	"pairs-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Budget for a leaderboard operation before it is abandoned.
	leaderboardTimeout = 5 * time.Second
)

// Client is a middleman between the websocket connection and the session
// authority.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	PlayerID string
	Name     string
	Session  *game.Session

	// ClaimedName is the display name from the auth token, used as a
	// fallback when the join message carries none.
	ClaimedName string
}

// ReadPump pumps messages from the websocket connection into the session and
// leaderboard handlers. It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one inbound message and routes it. Malformed or
// unknown messages get an error reply and leave all session state untouched.
func (c *Client) handleMessage(data []byte) {
	msg, err := protocol.DecodeClient(data)
	if err != nil {
		c.sendError("Invalid message format.")
		return
	}

	switch m := msg.(type) {
	case protocol.Join:
		c.handleJoin(m)
	case protocol.Move:
		c.handleMove(m)
	case protocol.MatchClaim:
		c.handleMatchClaim(m)
	case protocol.NextTurn:
		c.handleNextTurn()
	case protocol.Leave:
		c.handleLeave()
	case protocol.GameComplete:
		c.handleGameComplete(m)
	case protocol.GetLeaderboard:
		c.handleGetLeaderboard(m)
	}
}

func (c *Client) handleJoin(msg protocol.Join) {
	if c.Session != nil && !c.Session.Finished() {
		c.sendError("Already in a game.")
		return
	}

	if msg.PlayerID == "" {
		c.sendError("A player id is required to join.")
		return
	}
	name := msg.PlayerName
	if name == "" {
		name = c.ClaimedName
	}
	if name == "" {
		name = "Player"
	}
	if len(name) > c.Hub.Config.MaxNameLength {
		c.sendError(fmt.Sprintf("Name must be at most %d characters.", c.Hub.Config.MaxNameLength))
		return
	}

	gridSize := msg.GridSize
	if gridSize == 0 {
		gridSize = c.Hub.Config.DefaultGridSize
	}

	session, started, err := c.Hub.Lobby.Join(msg.PlayerID, name, gridSize, c.Send)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.PlayerID = msg.PlayerID
	c.Name = name
	c.Session = session

	if !started {
		reply := protocol.Waiting{Type: protocol.TypeWaiting, Game: session.Payload()}
		data, _ := json.Marshal(reply)
		wsutil.SafeSend(c.Send, data)
	}
	// When the session started, its own loop broadcasts game_start.
}

func (c *Client) handleMove(msg protocol.Move) {
	if c.Session == nil {
		c.sendError("You are not in a game.")
		return
	}
	dispatch(c.Session, game.Action{
		Type:     game.ActionFlip,
		PlayerID: c.PlayerID,
		CardID:   msg.CardID,
	})
}

func (c *Client) handleMatchClaim(msg protocol.MatchClaim) {
	if c.Session == nil {
		c.sendError("You are not in a game.")
		return
	}
	dispatch(c.Session, game.Action{
		Type:     game.ActionClaim,
		PlayerID: c.PlayerID,
		Cards:    msg.Cards,
	})
}

func (c *Client) handleNextTurn() {
	if c.Session == nil {
		c.sendError("You are not in a game.")
		return
	}
	dispatch(c.Session, game.Action{
		Type:     game.ActionNextTurn,
		PlayerID: c.PlayerID,
	})
}

func (c *Client) handleLeave() {
	if c.Session == nil {
		return
	}
	c.Hub.Lobby.Leave(c.Session, c.PlayerID)
	c.Session = nil
}

// handleGameComplete submits a leaderboard entry. Fire-and-forget: failures
// are logged, the client gets no acknowledgement either way.
func (c *Client) handleGameComplete(msg protocol.GameComplete) {
	entry := leaderboard.Entry{
		PlayerName: msg.PlayerName,
		Score:      msg.Score,
		Tries:      msg.Tries,
		GridSize:   msg.GridSize,
		GameMode:   msg.GameMode,
		Timestamp:  time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), leaderboardTimeout)
		defer cancel()
		if err := c.Hub.Leaderboard.Submit(ctx, entry); err != nil {
			slog.Warn("leaderboard submit failed", "tag", "leaderboard", "player", entry.PlayerName, "err", err)
		}
	}()
}

func (c *Client) handleGetLeaderboard(msg protocol.GetLeaderboard) {
	filter := leaderboard.Filter{GridSize: msg.GridSize, GameMode: msg.GameMode}
	limit := c.Hub.Config.LeaderboardLimit
	send := c.Send
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), leaderboardTimeout)
		defer cancel()
		entries, err := c.Hub.Leaderboard.Query(ctx, filter, limit)
		if err != nil {
			slog.Warn("leaderboard query failed", "tag", "leaderboard", "err", err)
			reply := protocol.ErrorMsg{Type: protocol.TypeError, Message: "Failed to load leaderboard."}
			data, _ := json.Marshal(reply)
			wsutil.SafeSend(send, data)
			return
		}
		payload := make([]protocol.LeaderboardEntryPayload, len(entries))
		for i, e := range entries {
			payload[i] = protocol.LeaderboardEntryPayload{
				PlayerName: e.PlayerName,
				Score:      e.Score,
				Tries:      e.Tries,
				GridSize:   e.GridSize,
				GameMode:   e.GameMode,
				Timestamp:  e.Timestamp,
			}
		}
		reply := protocol.LeaderboardMsg{Type: protocol.TypeLeaderboard, Entries: payload}
		data, _ := json.Marshal(reply)
		wsutil.SafeSend(send, data)
	}()
}

func (c *Client) sendError(message string) {
	msg := protocol.ErrorMsg{Type: protocol.TypeError, Message: message}
	data, _ := json.Marshal(msg)
	wsutil.SafeSend(c.Send, data)
}

// dispatch delivers an action to a session without blocking past its end.
func dispatch(s *game.Session, a game.Action) {
	select {
	case s.Actions <- a:
	case <-s.Done:
	}
}
