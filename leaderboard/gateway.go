// Package leaderboard implements the query/submit contract for finished-game
// scores. Entries are write-once: the session never mutates them.
package leaderboard

import (
	"context"
	"time"
)

// Entry is one leaderboard row.
type Entry struct {
	PlayerName string
	Score      int
	Tries      int
	GridSize   int
	GameMode   string
	Timestamp  time.Time
}

// Filter narrows a query. Zero values mean no filter.
type Filter struct {
	GridSize int
	GameMode string
}

// Gateway abstracts leaderboard persistence. Submit is fire-and-forget from
// the game's point of view: callers log failures and move on. Query returns
// entries ordered by descending score.
type Gateway interface {
	Submit(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter, limit int) ([]Entry, error)
	Close()
}
