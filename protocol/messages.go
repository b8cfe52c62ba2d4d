// Package protocol defines the closed set of messages exchanged between a
// client and the session authority. Every message is one JSON object with a
// "type" field; payloads are decoded once at the boundary into typed structs
// and matched exhaustively afterwards.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Client-to-authority message types.
const (
	TypeJoin           = "join"
	TypeMove           = "move"
	TypeMatchFound     = "match_found"
	TypeNextTurn       = "next_turn"
	TypeLeave          = "leave"
	TypeGameComplete   = "game_complete"
	TypeGetLeaderboard = "get_leaderboard"
)

// Authority-to-client message types. TypeMove and TypeMatchFound are shared
// with the client-to-authority set; the payloads differ per direction.
const (
	TypeWaiting     = "waiting"
	TypeGameStart   = "game_start"
	TypeTurnChange  = "turn_change"
	TypePlayerLeft  = "player_left"
	TypeError       = "error"
	TypeLeaderboard = "leaderboard"
)

// ClientMessage is implemented by every message a client may send.
type ClientMessage interface {
	clientMessage()
}

// Join requests entry into (or creation of) a session for a grid size.
type Join struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	GridSize   int    `json:"grid_size"`
}

// Move reports a local card flip. FlipCount is 1 or 2 within the turn.
type Move struct {
	CardID    int `json:"card_id"`
	FlipCount int `json:"flip_count"`
}

// MatchClaim asserts that the last two flipped cards match. The authority
// re-validates; a rejected claim is corrected by the next broadcast.
type MatchClaim struct {
	Cards [2]int `json:"cards"`
}

// NextTurn requests turn rotation after a non-match.
type NextTurn struct{}

// Leave announces departure from the current session.
type Leave struct{}

// GameComplete submits a finished game to the leaderboard. Fire-and-forget.
type GameComplete struct {
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	Tries      int    `json:"tries"`
	GridSize   int    `json:"grid_size"`
	GameMode   string `json:"game_mode"`
}

// GetLeaderboard queries leaderboard entries. Zero values mean "no filter".
type GetLeaderboard struct {
	GridSize int    `json:"grid_size,omitempty"`
	GameMode string `json:"game_mode,omitempty"`
}

func (Join) clientMessage()           {}
func (Move) clientMessage()           {}
func (MatchClaim) clientMessage()     {}
func (NextTurn) clientMessage()       {}
func (Leave) clientMessage()          {}
func (GameComplete) clientMessage()   {}
func (GetLeaderboard) clientMessage() {}

// DecodeClient parses one client-to-authority message. Unknown or malformed
// messages return an error and must not touch session state.
func DecodeClient(data []byte) (ClientMessage, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch envelope.Type {
	case TypeJoin:
		var msg Join
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeMove:
		var msg Move
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeMatchFound:
		var msg MatchClaim
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeNextTurn:
		return NextTurn{}, nil
	case TypeLeave:
		return Leave{}, nil
	case TypeGameComplete:
		var msg GameComplete
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeGetLeaderboard:
		var msg GetLeaderboard
		err := json.Unmarshal(data, &msg)
		return msg, err
	default:
		return nil, fmt.Errorf("unknown message type %q", envelope.Type)
	}
}

// EncodeClient marshals a client message with its type tag.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	var typ string
	switch msg.(type) {
	case Join:
		typ = TypeJoin
	case Move:
		typ = TypeMove
	case MatchClaim:
		typ = TypeMatchFound
	case NextTurn:
		typ = TypeNextTurn
	case Leave:
		typ = TypeLeave
	case GameComplete:
		typ = TypeGameComplete
	case GetLeaderboard:
		typ = TypeGetLeaderboard
	default:
		return nil, fmt.Errorf("unencodable client message %T", msg)
	}
	return withType(typ, msg)
}

// withType marshals payload and splices in the "type" field.
func withType(typ string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	tag, _ := json.Marshal(typ)
	fields["type"] = tag
	return json.Marshal(fields)
}

// PlayerPayload is a roster entry inside a GamePayload.
type PlayerPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// GamePayload is the session projection embedded in stateful broadcasts.
// CardOrder is 1-indexed into CharacterNames and is identical for every
// session member; both are omitted while the session is still waiting.
type GamePayload struct {
	ID                  string          `json:"id"`
	Players             []PlayerPayload `json:"players"`
	State               string          `json:"state"`
	CurrentTurnPlayerID string          `json:"current_turn_player_id,omitempty"`
	GridSize            int             `json:"grid_size"`
	CardOrder           []int           `json:"card_order,omitempty"`
	CharacterNames      []string        `json:"character_names,omitempty"`
	WinnerID            string          `json:"winner_id,omitempty"`
}

// ServerMessage is implemented by every authority-to-client message.
type ServerMessage interface {
	serverMessage()
}

// Waiting tells the joiner their session is open and awaiting an opponent.
type Waiting struct {
	Type string      `json:"type"`
	Game GamePayload `json:"game"`
}

// GameStart carries the full initial state to both members.
type GameStart struct {
	Type string      `json:"type"`
	Game GamePayload `json:"game"`
}

// MoveEvent relays a flip performed by a session member.
type MoveEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	CardID   int    `json:"card_id"`
}

// MatchResult is the authoritative match outcome with updated scores.
type MatchResult struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"player_id"`
	Cards    [2]int      `json:"cards"`
	Game     GamePayload `json:"game"`
}

// TurnChange announces turn rotation after the settle delay.
type TurnChange struct {
	Type                string      `json:"type"`
	CurrentTurnPlayerID string      `json:"current_turn_player_id"`
	Game                GamePayload `json:"game"`
}

// PlayerLeft announces that a session member disconnected.
type PlayerLeft struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"player_id"`
	Game     GamePayload `json:"game"`
}

// ErrorMsg reports a rejected intent or protocol fault.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// LeaderboardEntryPayload is one row of a leaderboard reply.
type LeaderboardEntryPayload struct {
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	Tries      int       `json:"tries"`
	GridSize   int       `json:"grid_size"`
	GameMode   string    `json:"game_mode"`
	Timestamp  time.Time `json:"timestamp"`
}

// LeaderboardMsg answers a GetLeaderboard query.
type LeaderboardMsg struct {
	Type    string                    `json:"type"`
	Entries []LeaderboardEntryPayload `json:"entries"`
}

func (Waiting) serverMessage()        {}
func (GameStart) serverMessage()      {}
func (MoveEvent) serverMessage()      {}
func (MatchResult) serverMessage()    {}
func (TurnChange) serverMessage()     {}
func (PlayerLeft) serverMessage()     {}
func (ErrorMsg) serverMessage()       {}
func (LeaderboardMsg) serverMessage() {}

// DecodeServer parses one authority-to-client message.
func DecodeServer(data []byte) (ServerMessage, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch envelope.Type {
	case TypeWaiting:
		var msg Waiting
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeGameStart:
		var msg GameStart
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeMove:
		var msg MoveEvent
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeMatchFound:
		var msg MatchResult
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeTurnChange:
		var msg TurnChange
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypePlayerLeft:
		var msg PlayerLeft
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeError:
		var msg ErrorMsg
		err := json.Unmarshal(data, &msg)
		return msg, err
	case TypeLeaderboard:
		var msg LeaderboardMsg
		err := json.Unmarshal(data, &msg)
		return msg, err
	default:
		return nil, fmt.Errorf("unknown message type %q", envelope.Type)
	}
}
