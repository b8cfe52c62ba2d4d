package game

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"pairs-server/content"
	"pairs-server/protocol"
	"pairs-server/wsutil"
)

// State is the session lifecycle state.
type State int

const (
	WaitingForPlayer State = iota
	InProgress
	Completed
	Abandoned
)

// String returns the protocol string for a State.
func (s State) String() string {
	switch s {
	case WaitingForPlayer:
		return "waiting"
	case InProgress:
		return "playing"
	case Completed:
		return "finished"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// ActionType enumerates the intents a session can process.
type ActionType int

const (
	ActionFlip ActionType = iota
	ActionClaim
	ActionNextTurn
	ActionLeave
	actionRotate // internal: settle timer fired
)

// Action represents an intent sent into the session's action channel.
type Action struct {
	Type     ActionType
	PlayerID string
	CardID   int    // card position (for ActionFlip)
	Cards    [2]int // claimed positions (for ActionClaim)
	seq      int    // turn sequence guard (for actionRotate)
}

// Session is the authoritative state machine for one game. It is the sole
// mutator of roster, card, turn, and score state: all intents flow through
// Actions and are applied serially by Run. Nothing here blocks on a client;
// outbound broadcasts are best-effort and never retried.
type Session struct {
	ID       string
	GridSize int

	players        []*Player
	cards          []Card
	cardOrder      []int
	characterNames []string
	state          State
	currentTurn    int   // index into players
	flipped        []int // positions flipped this turn, at most 2
	turnSeq        int   // bumps on every rotation or match resolution
	winnerID       string

	settleDelay time.Duration
	clock       clockwork.Clock
	rotateTimer clockwork.Timer

	finished atomic.Bool

	Actions chan Action
	Done    chan struct{}

	// OnEnd is called once when the session reaches a terminal state.
	OnEnd func(s *Session)
}

// NewSession creates a session in WaitingForPlayer holding its first joiner.
func NewSession(id string, gridSize int, settleDelay time.Duration, clock clockwork.Clock, first *Player) *Session {
	return &Session{
		ID:          id,
		GridSize:    gridSize,
		players:     []*Player{first},
		state:       WaitingForPlayer,
		settleDelay: settleDelay,
		clock:       clock,
		flipped:     make([]int, 0, 2),
		Actions:     make(chan Action, 16),
		Done:        make(chan struct{}),
	}
}

// Start admits the second joiner, builds the shared deck, and moves the
// session to InProgress with the first joiner holding the turn. On deck
// failure the roster is untouched and the session stays waiting. The caller
// starts Run afterwards; it must not be running yet.
func (s *Session) Start(second *Player, pool content.Pool) error {
	if s.state != WaitingForPlayer {
		return fmt.Errorf("session %s: start in state %s", s.ID, s.state)
	}
	pairCount := s.GridSize * s.GridSize / 2
	order, names, err := BuildDeck(pool, pairCount)
	if err != nil {
		return fmt.Errorf("building deck: %w", err)
	}
	s.players = append(s.players, second)
	s.cardOrder = order
	s.characterNames = names
	s.cards = NewCards(order)
	s.currentTurn = 0
	s.state = InProgress
	return nil
}

// Run is the session's main loop. It broadcasts the initial state and then
// applies actions sequentially until a terminal state. Run as a goroutine.
func (s *Session) Run() {
	defer func() {
		s.finished.Store(true)
		if s.OnEnd != nil {
			s.OnEnd(s)
		}
		close(s.Done)
	}()

	s.broadcast(protocol.GameStart{Type: protocol.TypeGameStart, Game: s.Payload()})

	for action := range s.Actions {
		switch action.Type {
		case ActionFlip:
			s.handleFlip(action.PlayerID, action.CardID)
		case ActionClaim:
			s.handleClaim(action.PlayerID, action.Cards)
		case ActionNextTurn:
			s.handleNextTurn(action.PlayerID)
		case ActionLeave:
			s.handleLeave(action.PlayerID)
		case actionRotate:
			s.rotate(action.seq)
		}
		if s.state == Completed || s.state == Abandoned {
			return
		}
	}
}

// Finished reports whether the session has reached a terminal state.
// Safe to call from any goroutine.
func (s *Session) Finished() bool {
	return s.finished.Load()
}

// Payload builds the wire projection of the session. Deck order and turn
// holder are only present once the session left the waiting state.
func (s *Session) Payload() protocol.GamePayload {
	players := make([]protocol.PlayerPayload, len(s.players))
	for i, p := range s.players {
		players[i] = protocol.PlayerPayload{ID: p.ID, Name: p.Name, Score: p.Score}
	}
	payload := protocol.GamePayload{
		ID:       s.ID,
		Players:  players,
		State:    s.state.String(),
		GridSize: s.GridSize,
	}
	if s.state != WaitingForPlayer {
		payload.CurrentTurnPlayerID = s.players[s.currentTurn].ID
		payload.CardOrder = s.cardOrder
		payload.CharacterNames = s.characterNames
	}
	if s.state == Completed {
		payload.WinnerID = s.winnerID
	}
	return payload
}

// playerIndex returns the seat of a player id, or -1.
func (s *Session) playerIndex(playerID string) int {
	for i, p := range s.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// scheduleRotation arms the settle-delay timer for the current turn sequence.
// A match claim or explicit rotation supersedes it; a stale firing is ignored
// by the sequence guard in rotate.
func (s *Session) scheduleRotation() {
	s.cancelRotation()
	timer := s.clock.NewTimer(s.settleDelay)
	s.rotateTimer = timer
	seq := s.turnSeq
	go func() {
		select {
		case <-timer.Chan():
			select {
			case s.Actions <- Action{Type: actionRotate, seq: seq}:
			case <-s.Done:
			}
		case <-s.Done:
		}
	}()
}

// cancelRotation stops and drains the pending settle timer, if any.
func (s *Session) cancelRotation() {
	if s.rotateTimer == nil {
		return
	}
	if !s.rotateTimer.Stop() {
		select {
		case <-s.rotateTimer.Chan():
		default:
		}
	}
	s.rotateTimer = nil
}

func (s *Session) sendError(playerIdx int, message string) {
	if playerIdx < 0 || playerIdx >= len(s.players) {
		return
	}
	s.sendTo(s.players[playerIdx], protocol.ErrorMsg{Type: protocol.TypeError, Message: message})
}

func (s *Session) sendTo(p *Player, msg protocol.ServerMessage) {
	if p == nil || p.Send == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling session message", "tag", "session", "err", err)
		return
	}
	wsutil.SafeSend(p.Send, data)
}

func (s *Session) broadcast(msg protocol.ServerMessage) {
	for _, p := range s.players {
		s.sendTo(p, msg)
	}
}

// broadcastExcept sends to every member except the one with the given seat.
func (s *Session) broadcastExcept(playerIdx int, msg protocol.ServerMessage) {
	for i, p := range s.players {
		if i == playerIdx {
			continue
		}
		s.sendTo(p, msg)
	}
}
