package game

import (
	"log/slog"

	"pairs-server/protocol"
)

func (s *Session) handleFlip(playerID string, position int) {
	playerIdx := s.playerIndex(playerID)
	if playerIdx < 0 {
		return
	}
	if s.state != InProgress {
		s.sendError(playerIdx, "The game is not in progress.")
		return
	}
	if playerIdx != s.currentTurn {
		s.sendError(playerIdx, "Not your turn")
		return
	}
	if position < 0 || position >= len(s.cards) {
		s.sendError(playerIdx, "Card position out of bounds.")
		return
	}
	card := &s.cards[position]
	if card.Matched || card.Flipped {
		s.sendError(playerIdx, "That card is already flipped or matched.")
		return
	}
	if len(s.flipped) >= 2 {
		s.sendError(playerIdx, "Wait for the current pair to resolve.")
		return
	}

	card.Flipped = true
	s.flipped = append(s.flipped, position)

	// The acting client already flipped optimistically; relay to the other
	// member only.
	s.broadcastExcept(playerIdx, protocol.MoveEvent{
		Type:     protocol.TypeMove,
		PlayerID: playerID,
		CardID:   position,
	})

	// Second card of the turn: arm the settle-delay rotation. A valid match
	// claim for this pair supersedes it.
	if len(s.flipped) == 2 {
		s.scheduleRotation()
	}
}

func (s *Session) handleClaim(playerID string, claimed [2]int) {
	playerIdx := s.playerIndex(playerID)
	if playerIdx < 0 || s.state != InProgress {
		return
	}
	if playerIdx != s.currentTurn {
		s.sendError(playerIdx, "Not your turn")
		return
	}
	if claimed[0] < 0 || claimed[0] >= len(s.cards) ||
		claimed[1] < 0 || claimed[1] >= len(s.cards) ||
		claimed[0] == claimed[1] {
		// Invalid positions: no match. The rotation armed at the second flip
		// still runs its course.
		s.sendError(playerIdx, "Invalid match claim.")
		return
	}

	a, b := s.cards[claimed[0]], s.cards[claimed[1]]

	// Stale claim: cards already resolved or not the pair face-up this turn.
	// Pure no-op, nothing is broadcast and no score changes.
	if a.Matched || b.Matched || !s.claimedThisTurn(claimed) {
		slog.Debug("stale match claim ignored", "tag", "session", "session", s.ID, "cards", claimed)
		return
	}

	if !IsMatch(a, b) {
		// Contents differ: treated as no match, the pending rotation stands.
		s.sendError(playerIdx, "Those cards do not match.")
		return
	}

	// Valid match: the pending rotation is superseded, the holder keeps the
	// turn.
	s.cancelRotation()
	s.turnSeq++
	s.cards[claimed[0]].Flipped = false
	s.cards[claimed[0]].Matched = true
	s.cards[claimed[1]].Flipped = false
	s.cards[claimed[1]].Matched = true
	s.flipped = s.flipped[:0]
	s.players[playerIdx].Score++

	if AllMatched(s.cards) {
		s.state = Completed
		s.winnerID = s.computeWinner()
	}

	s.broadcast(protocol.MatchResult{
		Type:     protocol.TypeMatchFound,
		PlayerID: playerID,
		Cards:    claimed,
		Game:     s.Payload(),
	})
}

// claimedThisTurn reports whether the claimed positions are exactly the two
// cards flipped in the current turn, in either order.
func (s *Session) claimedThisTurn(claimed [2]int) bool {
	if len(s.flipped) != 2 {
		return false
	}
	return (s.flipped[0] == claimed[0] && s.flipped[1] == claimed[1]) ||
		(s.flipped[0] == claimed[1] && s.flipped[1] == claimed[0])
}

// computeWinner returns the id of the player with the strictly greater score,
// or "" for a draw.
func (s *Session) computeWinner() string {
	if len(s.players) != 2 {
		return ""
	}
	switch {
	case s.players[0].Score > s.players[1].Score:
		return s.players[0].ID
	case s.players[1].Score > s.players[0].Score:
		return s.players[1].ID
	default:
		return ""
	}
}

// handleNextTurn rotates immediately on the holder's request after a
// non-match, superseding the settle timer. Requests outside a pending pair
// are stale and ignored.
func (s *Session) handleNextTurn(playerID string) {
	playerIdx := s.playerIndex(playerID)
	if playerIdx < 0 || s.state != InProgress {
		return
	}
	if playerIdx != s.currentTurn || len(s.flipped) != 2 {
		return
	}
	s.cancelRotation()
	s.rotate(s.turnSeq)
}

// rotate clears unmatched flips and hands the turn to the other player.
// seq guards against a settle timer firing after the turn already advanced.
func (s *Session) rotate(seq int) {
	if s.state != InProgress || seq != s.turnSeq {
		return
	}
	for _, pos := range s.flipped {
		if !s.cards[pos].Matched {
			s.cards[pos].Flipped = false
		}
	}
	s.flipped = s.flipped[:0]
	s.currentTurn = 1 - s.currentTurn
	s.turnSeq++

	s.broadcast(protocol.TurnChange{
		Type:                protocol.TypeTurnChange,
		CurrentTurnPlayerID: s.players[s.currentTurn].ID,
		Game:                s.Payload(),
	})
}

// handleLeave moves a non-terminal session to Abandoned and tells the
// remaining member.
func (s *Session) handleLeave(playerID string) {
	playerIdx := s.playerIndex(playerID)
	if playerIdx < 0 {
		return
	}
	if s.state == Completed || s.state == Abandoned {
		return
	}
	s.cancelRotation()
	s.state = Abandoned
	s.broadcastExcept(playerIdx, protocol.PlayerLeft{
		Type:     protocol.TypePlayerLeft,
		PlayerID: playerID,
		Game:     s.Payload(),
	})
}
