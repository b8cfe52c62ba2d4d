// Package reconcile holds the client-side view of a game: it sends intents,
// applies authoritative broadcasts, and keeps an optimistic local projection
// that the next broadcast can always correct. It also runs the whole game
// locally in single-player mode.
package reconcile

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"pairs-server/content"
	"pairs-server/game"
	"pairs-server/gameerrors"
	"pairs-server/protocol"
)

// GameMode labels a session for leaderboard submissions.
const (
	ModeSingle      = "single"
	ModeMultiplayer = "multiplayer"
)

// Sender delivers intents to the authority. The ws transport implements it;
// tests use in-memory fakes.
type Sender interface {
	Send(msg protocol.ClientMessage) error
}

// CardView is the local projection of one card.
type CardView struct {
	ID      int
	Content string
	Flipped bool
	Matched bool
}

// PlayerView mirrors a roster entry from the last broadcast.
type PlayerView struct {
	ID    string
	Name  string
	Score int
}

// Reconciler is the per-client session view. All methods are safe for
// concurrent use; broadcasts are applied under the same lock as local
// intents so the projection never interleaves.
type Reconciler struct {
	playerID   string
	playerName string
	gridSize   int
	mode       string
	sender     Sender
	clock      clockwork.Clock
	settle     time.Duration

	mu          sync.Mutex
	cards       []CardView
	players     []PlayerView
	currentTurn string
	pending     []int // face-up cards awaiting resolution, at most two
	tries       int
	matches     int
	frozen      bool
	gameOver    bool
	submitted   bool
	status      string
}

// NewMultiplayer creates a reconciler for a coordinated session. The
// projection stays empty until the game_start broadcast seeds it.
func NewMultiplayer(playerID, playerName string, gridSize int, sender Sender, clock clockwork.Clock, settleDelay time.Duration) *Reconciler {
	return &Reconciler{
		playerID:   playerID,
		playerName: playerName,
		gridSize:   gridSize,
		mode:       ModeMultiplayer,
		sender:     sender,
		clock:      clock,
		settle:     settleDelay,
		status:     "Connecting...",
	}
}

// NewSolo creates a reconciler that runs the matching engine locally with no
// coordinator. The sender is still used for leaderboard messages.
func NewSolo(playerName string, gridSize int, pool content.Pool, sender Sender, clock clockwork.Clock, settleDelay time.Duration) (*Reconciler, error) {
	pairCount := gridSize * gridSize / 2
	order, names, err := game.BuildDeck(pool, pairCount)
	if err != nil {
		return nil, fmt.Errorf("building solo deck: %w", err)
	}
	r := &Reconciler{
		playerName: playerName,
		gridSize:   gridSize,
		mode:       ModeSingle,
		sender:     sender,
		clock:      clock,
		settle:     settleDelay,
		status:     "Find the pairs!",
	}
	r.seedCards(order, names)
	return r, nil
}

// Join sends the join intent for a multiplayer session.
func (r *Reconciler) Join() error {
	return r.sender.Send(protocol.Join{
		PlayerID:   r.playerID,
		PlayerName: r.playerName,
		GridSize:   r.gridSize,
	})
}

// Leave announces departure and freezes the projection.
func (r *Reconciler) Leave() error {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
	return r.sender.Send(protocol.Leave{})
}

// FlipCard handles a local intent to flip a card. Rejections are local, no
// round-trip: wrong turn, resolved card, or two cards already pending.
func (r *Reconciler) FlipCard(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen || r.gameOver {
		return gameerrors.ErrSessionFinished
	}
	if len(r.cards) == 0 {
		return gameerrors.ErrNotInSession
	}
	if r.mode == ModeMultiplayer && r.currentTurn != r.playerID {
		return gameerrors.ErrNotYourTurn
	}
	if id < 0 || id >= len(r.cards) {
		return gameerrors.ErrAlreadyResolved
	}
	card := &r.cards[id]
	if card.Flipped || card.Matched {
		return gameerrors.ErrAlreadyResolved
	}
	if len(r.pending) >= 2 {
		return gameerrors.ErrAlreadyResolved
	}

	card.Flipped = true
	r.pending = append(r.pending, id)

	if r.mode == ModeMultiplayer {
		// Optimistic: the local flip is already visible; report it.
		r.sendLocked(protocol.Move{CardID: id, FlipCount: len(r.pending)})
	}

	if len(r.pending) == 2 {
		r.tries++
		r.resolvePendingLocked()
	}
	return nil
}

// resolvePendingLocked evaluates the two pending cards. Caller holds r.mu.
func (r *Reconciler) resolvePendingLocked() {
	a, b := r.pending[0], r.pending[1]
	matched := r.cards[a].Content == r.cards[b].Content && a != b

	if r.mode == ModeMultiplayer {
		if matched {
			// Claim it; the coordinator is the final arbiter and its next
			// broadcast corrects a rejected claim.
			r.sendLocked(protocol.MatchClaim{Cards: [2]int{a, b}})
		} else {
			r.status = "No match..."
			r.scheduleNextTurn()
		}
		return
	}

	// Solo: the engine is local and authoritative.
	if matched {
		r.cards[a].Matched = true
		r.cards[b].Matched = true
		r.pending = r.pending[:0]
		r.matches++
		r.status = fmt.Sprintf("Match found! %s is correct!", r.cards[a].Content)
		if r.matches == len(r.cards)/2 {
			r.gameOver = true
			r.status = "You cleared the board!"
			r.submitScoreLocked(r.matches)
		}
		return
	}
	r.status = "No match. Try again..."
	r.scheduleFlipBack(a, b)
}

// scheduleNextTurn asks for rotation after the settle delay so both players
// see the mismatch first. The coordinator ignores the request if the turn
// already advanced.
func (r *Reconciler) scheduleNextTurn() {
	timer := r.clock.NewTimer(r.settle)
	go func() {
		<-timer.Chan()
		r.mu.Lock()
		stale := r.frozen || r.gameOver || len(r.pending) != 2
		r.mu.Unlock()
		if !stale {
			r.sender.Send(protocol.NextTurn{})
		}
	}()
}

// scheduleFlipBack hides a mismatched solo pair after the settle delay.
func (r *Reconciler) scheduleFlipBack(a, b int) {
	timer := r.clock.NewTimer(r.settle)
	go func() {
		<-timer.Chan()
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.cards[a].Matched {
			r.cards[a].Flipped = false
		}
		if !r.cards[b].Matched {
			r.cards[b].Flipped = false
		}
		r.pending = r.pending[:0]
	}()
}

// Apply folds one authoritative broadcast into the projection.
func (r *Reconciler) Apply(msg protocol.ServerMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch m := msg.(type) {
	case protocol.Waiting:
		r.status = "Waiting for opponent to join..."

	case protocol.GameStart:
		r.players = rosterFrom(m.Game)
		r.currentTurn = m.Game.CurrentTurnPlayerID
		r.seedCards(m.Game.CardOrder, m.Game.CharacterNames)
		if r.currentTurn == r.playerID {
			r.status = "Your turn! Find a pair!"
		} else {
			r.status = "Opponent's turn..."
		}

	case protocol.MoveEvent:
		// Flips by other members were validated by the coordinator; apply
		// without re-checking turn ownership. Our own flips are already local.
		if m.PlayerID == r.playerID {
			return
		}
		if m.CardID >= 0 && m.CardID < len(r.cards) && !r.cards[m.CardID].Matched {
			r.cards[m.CardID].Flipped = true
		}

	case protocol.MatchResult:
		// Authoritative: scores and matched flags verbatim, regardless of
		// local belief.
		r.players = rosterFrom(m.Game)
		for _, id := range m.Cards {
			if id >= 0 && id < len(r.cards) {
				r.cards[id].Matched = true
				r.cards[id].Flipped = false
			}
		}
		r.pending = r.pending[:0]
		if m.PlayerID == r.playerID {
			r.status = "You found a match!"
		} else {
			r.status = "Opponent found a match!"
		}
		r.checkCompletionLocked(m.Game)

	case protocol.TurnChange:
		// Reconcile optimistic state the coordinator did not confirm.
		for i := range r.cards {
			if r.cards[i].Flipped && !r.cards[i].Matched {
				r.cards[i].Flipped = false
			}
		}
		r.pending = r.pending[:0]
		r.players = rosterFrom(m.Game)
		r.currentTurn = m.CurrentTurnPlayerID
		if r.currentTurn == r.playerID {
			r.status = "Your turn!"
		} else {
			r.status = "Opponent's turn..."
		}

	case protocol.PlayerLeft:
		r.status = "Opponent left the game."
		r.frozen = true
		r.gameOver = true

	case protocol.ErrorMsg:
		r.status = m.Message
	}
}

// checkCompletionLocked detects a finished board and submits the local
// player's score once. Caller holds r.mu.
func (r *Reconciler) checkCompletionLocked(g protocol.GamePayload) {
	pairCount := r.gridSize * r.gridSize / 2
	total := 0
	var own int
	for _, p := range g.Players {
		total += p.Score
		if p.ID == r.playerID {
			own = p.Score
		}
	}
	if total < pairCount {
		return
	}
	r.gameOver = true
	r.frozen = true
	switch {
	case g.WinnerID == r.playerID:
		r.status = "You won!"
	case g.WinnerID == "":
		r.status = "It's a draw!"
	default:
		r.status = "Opponent won!"
	}
	// Each client submits only its own score, and only when it actually
	// matched something.
	if own > 0 {
		r.submitScoreLocked(own)
	}
}

// submitScoreLocked sends the game_complete intent at most once.
// Caller holds r.mu.
func (r *Reconciler) submitScoreLocked(score int) {
	if r.submitted {
		return
	}
	r.submitted = true
	r.sendLocked(protocol.GameComplete{
		PlayerName: r.playerName,
		Score:      score,
		Tries:      r.tries,
		GridSize:   r.gridSize,
		GameMode:   r.mode,
	})
}

// sendLocked fires an intent without dropping the lock; transports must not
// call back into the reconciler from Send.
func (r *Reconciler) sendLocked(msg protocol.ClientMessage) {
	if err := r.sender.Send(msg); err != nil {
		r.status = "Connection trouble, retrying on next action."
	}
}

func (r *Reconciler) seedCards(order []int, names []string) {
	cards := make([]CardView, len(order))
	for i, contentIdx := range order {
		name := ""
		if contentIdx >= 1 && contentIdx <= len(names) {
			name = names[contentIdx-1]
		}
		cards[i] = CardView{ID: i, Content: name}
	}
	r.cards = cards
	r.pending = r.pending[:0]
}

func rosterFrom(g protocol.GamePayload) []PlayerView {
	players := make([]PlayerView, len(g.Players))
	for i, p := range g.Players {
		players[i] = PlayerView{ID: p.ID, Name: p.Name, Score: p.Score}
	}
	return players
}

// IsMyTurn reports whether the local player holds the turn.
func (r *Reconciler) IsMyTurn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode == ModeSingle || r.currentTurn == r.playerID
}

// Cards returns a snapshot of the card projection.
func (r *Reconciler) Cards() []CardView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CardView, len(r.cards))
	copy(out, r.cards)
	return out
}

// Players returns a snapshot of the roster.
func (r *Reconciler) Players() []PlayerView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PlayerView, len(r.players))
	copy(out, r.players)
	return out
}

// Status returns the current user-visible status line.
func (r *Reconciler) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// GameOver reports whether the game has ended for this client.
func (r *Reconciler) GameOver() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameOver
}

// Tries returns the number of resolved pair attempts.
func (r *Reconciler) Tries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tries
}

// RemainingPairs returns the number of unresolved pairs.
func (r *Reconciler) RemainingPairs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := 0
	for _, c := range r.cards {
		if c.Matched {
			matched++
		}
	}
	return (len(r.cards) - matched) / 2
}
