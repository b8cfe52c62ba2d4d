package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"pairs-server/config"
	"pairs-server/content"
	"pairs-server/leaderboard"
	"pairs-server/lobby"
	"pairs-server/ws"
)

// setupTestServer creates a test HTTP server with the full game server stack.
// The settle delay is short so rotation tests run on the real clock.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		DefaultGridSize:  2,
		MaxGridSize:      8,
		SettleDelayMS:    50,
		MaxNameLength:    24,
		LeaderboardLimit: 10,
	}

	lob := lobby.New(cfg, content.DefaultPool(), clockwork.NewRealClock())
	board := leaderboard.NewMemory()

	hub := ws.NewHub(cfg, lob, board)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		cancel()
		board.Close()
	})
	return server
}

// connectWS creates a WebSocket connection to the test server.
func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

// readMsg reads a JSON message from the WebSocket and returns it as a map.
func readMsg(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v\ndata: %s", err, string(data))
	}
	return msg
}

// sendMsg sends a JSON message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func joinMsg(playerID, name string, gridSize int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "join",
		"player_id":   playerID,
		"player_name": name,
		"grid_size":   gridSize,
	}
}

// pairTwoPlayers joins both connections into one 2x2 session and returns the
// game_start payloads. The first connection always ends up holding the turn.
func pairTwoPlayers(t *testing.T, conn1, conn2 *websocket.Conn) (map[string]interface{}, map[string]interface{}) {
	t.Helper()

	sendMsg(t, conn1, joinMsg("p1", "Alice", 2))
	if msg := readMsg(t, conn1); msg["type"] != "waiting" {
		t.Fatalf("expected waiting, got %v", msg["type"])
	}

	sendMsg(t, conn2, joinMsg("p2", "Bob", 2))

	gs1 := readMsg(t, conn1)
	if gs1["type"] != "game_start" {
		t.Fatalf("expected game_start for player 1, got %v", gs1["type"])
	}
	gs2 := readMsg(t, conn2)
	if gs2["type"] != "game_start" {
		t.Fatalf("expected game_start for player 2, got %v", gs2["type"])
	}
	return gs1["game"].(map[string]interface{}), gs2["game"].(map[string]interface{})
}

// cardOrderOf extracts the 1-indexed deck layout from a game payload.
func cardOrderOf(t *testing.T, game map[string]interface{}) []int {
	t.Helper()
	raw, ok := game["card_order"].([]interface{})
	if !ok {
		t.Fatalf("game payload missing card_order: %v", game)
	}
	order := make([]int, len(raw))
	for i, v := range raw {
		order[i] = int(v.(float64))
	}
	return order
}

// findPair returns two positions carrying the same content, skipping any
// position in used.
func findPair(t *testing.T, order []int, used map[int]bool) (int, int) {
	t.Helper()
	for i := range order {
		if used[i] {
			continue
		}
		for j := i + 1; j < len(order); j++ {
			if !used[j] && order[i] == order[j] {
				return i, j
			}
		}
	}
	t.Fatal("no unused pair left in deck")
	return 0, 0
}

func TestIntegration_PairingAndGameStart(t *testing.T) {
	server := setupTestServer(t)

	conn1 := connectWS(t, server)
	defer conn1.Close()
	conn2 := connectWS(t, server)
	defer conn2.Close()

	game1, game2 := pairTwoPlayers(t, conn1, conn2)

	if game1["id"] != game2["id"] {
		t.Errorf("players landed in different sessions: %v vs %v", game1["id"], game2["id"])
	}
	if game1["state"] != "playing" {
		t.Errorf("expected state playing, got %v", game1["state"])
	}
	if game1["current_turn_player_id"] != "p1" {
		t.Errorf("first joiner should hold the turn, got %v", game1["current_turn_player_id"])
	}

	order1 := cardOrderOf(t, game1)
	order2 := cardOrderOf(t, game2)
	if len(order1) != 4 {
		t.Fatalf("expected 4 cards on a 2x2 board, got %d", len(order1))
	}
	for i := range order1 {
		if order1[i] != order2[i] {
			t.Fatalf("deck layouts differ between players: %v vs %v", order1, order2)
		}
	}
}

func TestIntegration_FullGame(t *testing.T) {
	server := setupTestServer(t)

	conn1 := connectWS(t, server)
	defer conn1.Close()
	conn2 := connectWS(t, server)
	defer conn2.Close()

	game1, _ := pairTwoPlayers(t, conn1, conn2)
	order := cardOrderOf(t, game1)

	used := make(map[int]bool)
	var last map[string]interface{}
	for pair := 0; pair < 2; pair++ {
		a, b := findPair(t, order, used)
		used[a], used[b] = true, true

		sendMsg(t, conn1, map[string]interface{}{"type": "move", "card_id": a, "flip_count": 1})
		sendMsg(t, conn1, map[string]interface{}{"type": "move", "card_id": b, "flip_count": 2})

		// Flips relay to the opponent only.
		for _, want := range []int{a, b} {
			mv := readMsg(t, conn2)
			if mv["type"] != "move" || int(mv["card_id"].(float64)) != want {
				t.Fatalf("expected relayed move for card %d, got %v", want, mv)
			}
		}

		sendMsg(t, conn1, map[string]interface{}{"type": "match_found", "cards": []int{a, b}})
		res1 := readMsg(t, conn1)
		if res1["type"] != "match_found" {
			t.Fatalf("expected match_found broadcast, got %v", res1["type"])
		}
		if res1["player_id"] != "p1" {
			t.Errorf("match credited to %v, want p1", res1["player_id"])
		}
		res2 := readMsg(t, conn2)
		if res2["type"] != "match_found" {
			t.Fatalf("expected match_found for opponent, got %v", res2["type"])
		}
		last = res1
	}

	final := last["game"].(map[string]interface{})
	if final["state"] != "finished" {
		t.Errorf("expected finished state, got %v", final["state"])
	}
	if final["winner_id"] != "p1" {
		t.Errorf("expected p1 to win, got %v", final["winner_id"])
	}
}

func TestIntegration_MismatchRotatesTurn(t *testing.T) {
	server := setupTestServer(t)

	conn1 := connectWS(t, server)
	defer conn1.Close()
	conn2 := connectWS(t, server)
	defer conn2.Close()

	game1, _ := pairTwoPlayers(t, conn1, conn2)
	order := cardOrderOf(t, game1)

	a := 0
	b := -1
	for i := 1; i < len(order); i++ {
		if order[i] != order[a] {
			b = i
			break
		}
	}
	if b < 0 {
		t.Fatal("deck has no mismatching cards")
	}

	sendMsg(t, conn1, map[string]interface{}{"type": "move", "card_id": a, "flip_count": 1})
	sendMsg(t, conn1, map[string]interface{}{"type": "move", "card_id": b, "flip_count": 2})
	readMsg(t, conn2)
	readMsg(t, conn2)

	// The settle delay elapses on the real clock, then both see the rotation.
	tc1 := readMsg(t, conn1)
	if tc1["type"] != "turn_change" {
		t.Fatalf("expected turn_change, got %v", tc1["type"])
	}
	if tc1["current_turn_player_id"] != "p2" {
		t.Errorf("turn should pass to p2, got %v", tc1["current_turn_player_id"])
	}
	tc2 := readMsg(t, conn2)
	if tc2["type"] != "turn_change" {
		t.Fatalf("expected turn_change for opponent, got %v", tc2["type"])
	}
}

func TestIntegration_OutOfTurnMoveRejected(t *testing.T) {
	server := setupTestServer(t)

	conn1 := connectWS(t, server)
	defer conn1.Close()
	conn2 := connectWS(t, server)
	defer conn2.Close()

	pairTwoPlayers(t, conn1, conn2)

	sendMsg(t, conn2, map[string]interface{}{"type": "move", "card_id": 0, "flip_count": 1})
	msg := readMsg(t, conn2)
	if msg["type"] != "error" {
		t.Fatalf("expected error for out-of-turn move, got %v", msg)
	}
}

func TestIntegration_LeaveNotifiesOpponent(t *testing.T) {
	server := setupTestServer(t)

	conn1 := connectWS(t, server)
	defer conn1.Close()
	conn2 := connectWS(t, server)
	defer conn2.Close()

	pairTwoPlayers(t, conn1, conn2)

	sendMsg(t, conn1, map[string]interface{}{"type": "leave"})
	msg := readMsg(t, conn2)
	if msg["type"] != "player_left" {
		t.Fatalf("expected player_left, got %v", msg["type"])
	}
	if msg["player_id"] != "p1" {
		t.Errorf("expected departure of p1, got %v", msg["player_id"])
	}
	game := msg["game"].(map[string]interface{})
	if game["state"] != "abandoned" {
		t.Errorf("expected abandoned state, got %v", game["state"])
	}
}

func TestIntegration_ErrorOnInvalidGridSize(t *testing.T) {
	server := setupTestServer(t)

	conn := connectWS(t, server)
	defer conn.Close()

	sendMsg(t, conn, joinMsg("p1", "Alice", 5))
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error for odd grid size, got %v", msg["type"])
	}
}

func TestIntegration_ErrorOnNameTooLong(t *testing.T) {
	server := setupTestServer(t)

	conn := connectWS(t, server)
	defer conn.Close()

	sendMsg(t, conn, joinMsg("p1", strings.Repeat("a", 25), 2))
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error for long name, got %v", msg["type"])
	}
}

func TestIntegration_Leaderboard(t *testing.T) {
	server := setupTestServer(t)

	conn := connectWS(t, server)
	defer conn.Close()

	sendMsg(t, conn, map[string]interface{}{
		"type":        "game_complete",
		"player_name": "Alice",
		"score":       2,
		"tries":       3,
		"grid_size":   2,
		"game_mode":   "single",
	})

	// Submission is asynchronous; poll until the entry lands.
	deadline := time.Now().Add(3 * time.Second)
	for {
		sendMsg(t, conn, map[string]interface{}{
			"type":      "get_leaderboard",
			"grid_size": 2,
			"game_mode": "single",
		})
		msg := readMsg(t, conn)
		if msg["type"] != "leaderboard" {
			t.Fatalf("expected leaderboard, got %v", msg["type"])
		}
		entries, _ := msg["entries"].([]interface{})
		if len(entries) == 1 {
			entry := entries[0].(map[string]interface{})
			if entry["player_name"] != "Alice" || int(entry["score"].(float64)) != 2 {
				t.Fatalf("unexpected entry %v", entry)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("submission never appeared, last reply: %v", msg)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
