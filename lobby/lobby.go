// Package lobby matches joining players into sessions by grid size and owns
// the registry of live sessions.
package lobby

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"pairs-server/config"
	"pairs-server/content"
	"pairs-server/game"
	"pairs-server/gameerrors"
)

// Lobby pairs joiners and tracks live sessions. Waiting sessions are queued
// FIFO per grid size: a join fills the oldest waiting session for its size or
// opens a new one.
type Lobby struct {
	cfg   *config.Config
	pool  content.Pool
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[string]*game.Session
	waiting  map[int][]*game.Session
}

// New creates a Lobby.
func New(cfg *config.Config, pool content.Pool, clock clockwork.Clock) *Lobby {
	return &Lobby{
		cfg:      cfg,
		pool:     pool,
		clock:    clock,
		sessions: make(map[string]*game.Session),
		waiting:  make(map[int][]*game.Session),
	}
}

// Join places a player into a session for the requested grid size. started
// reports whether the session began (false: the caller should send waiting).
// On a failed start the waiting session is preserved for the next joiner and
// the error is surfaced to this joiner only.
func (l *Lobby) Join(playerID, playerName string, gridSize int, send chan []byte) (s *game.Session, started bool, err error) {
	if !l.cfg.ValidGridSize(gridSize) {
		return nil, false, fmt.Errorf("grid size %d: %w", gridSize, gameerrors.ErrInvalidGridSize)
	}

	player := game.NewPlayer(playerID, playerName, send)

	l.mu.Lock()
	defer l.mu.Unlock()

	if queue := l.waiting[gridSize]; len(queue) > 0 {
		s = queue[0]
		if err := s.Start(player, l.pool); err != nil {
			return nil, false, err
		}
		l.waiting[gridSize] = queue[1:]
		slog.Info("session started", "tag", "lobby", "session", s.ID, "grid", gridSize)
		go s.Run()
		return s, true, nil
	}

	s = game.NewSession(uuid.NewString(), gridSize, time.Duration(l.cfg.SettleDelayMS)*time.Millisecond, l.clock, player)
	s.OnEnd = func(ended *game.Session) { l.remove(ended.ID) }
	l.sessions[s.ID] = s
	l.waiting[gridSize] = append(l.waiting[gridSize], s)
	slog.Info("session waiting for opponent", "tag", "lobby", "session", s.ID, "grid", gridSize)
	return s, false, nil
}

// Leave removes a player from their session. A waiting session is torn down
// directly; a running one gets an ActionLeave and winds itself down.
func (l *Lobby) Leave(s *game.Session, playerID string) {
	if s == nil {
		return
	}

	l.mu.Lock()
	queue := l.waiting[s.GridSize]
	for i, waiting := range queue {
		if waiting.ID == s.ID {
			l.waiting[s.GridSize] = append(queue[:i:i], queue[i+1:]...)
			delete(l.sessions, s.ID)
			l.mu.Unlock()
			slog.Info("waiting session removed", "tag", "lobby", "session", s.ID)
			return
		}
	}
	l.mu.Unlock()

	Dispatch(s, game.Action{Type: game.ActionLeave, PlayerID: playerID})
}

// Dispatch delivers an action to a session without blocking past its end.
func Dispatch(s *game.Session, a game.Action) {
	select {
	case s.Actions <- a:
	case <-s.Done:
	}
}

// Count returns the number of tracked sessions.
func (l *Lobby) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

func (l *Lobby) remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, id)
}
