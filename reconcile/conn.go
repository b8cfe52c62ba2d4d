package reconcile

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pairs-server/protocol"
)

// Conn is a websocket transport for a Reconciler. Send is safe for
// concurrent use; Listen runs the read loop and feeds broadcasts to the
// handler until the connection drops.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
}

// Dial connects to a server endpoint, e.g. ws://localhost:8765/ws.
// An auth token, when given, is sent as a bearer header.
func Dial(url, token string) (*Conn, error) {
	header := make(map[string][]string)
	if token != "" {
		header["Authorization"] = []string{"Bearer " + token}
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// Send encodes and writes one intent.
func (c *Conn) Send(msg protocol.ClientMessage) error {
	data, err := protocol.EncodeClient(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Listen reads broadcasts until the connection closes, passing each decoded
// message to handle. Undecodable frames are logged and skipped.
func (c *Conn) Listen(handle func(protocol.ServerMessage)) error {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		msg, err := protocol.DecodeServer(data)
		if err != nil {
			slog.Warn("skipping unreadable message", "tag", "client", "err", err)
			continue
		}
		handle(msg)
	}
}

// Close tears down the connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
