package gameerrors

import "errors"

// Session rejection sentinels. Used by the game, lobby, and ws packages to
// avoid circular imports; the ws layer maps them to "error" protocol messages.
var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrAlreadyResolved     = errors.New("card already flipped or matched")
	ErrInvalidMatchClaim   = errors.New("claimed cards do not match")
	ErrStaleClaim          = errors.New("match claim on already-resolved cards")
	ErrInsufficientContent = errors.New("not enough content items for the requested grid")
	ErrSessionFinished     = errors.New("session already finished")
	ErrNotInSession        = errors.New("player is not in a session")
	ErrInvalidGridSize     = errors.New("grid size must be even and within limits")
)
