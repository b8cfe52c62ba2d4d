package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS leaderboard_entry (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	player_name TEXT NOT NULL,
	score INT NOT NULL,
	tries INT NOT NULL,
	grid_size INT NOT NULL,
	game_mode TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_leaderboard_entry_score ON leaderboard_entry(score DESC);
CREATE INDEX IF NOT EXISTS idx_leaderboard_entry_grid_mode ON leaderboard_entry(grid_size, game_mode);
`

// Store persists leaderboard entries in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure *Store implements Gateway at compile time.
var _ Gateway = (*Store)(nil)

// NewStore connects to Postgres and ensures the leaderboard_entry table
// exists. If databaseURL is empty, NewStore returns (nil, nil) and the caller
// should fall back to the in-memory gateway.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "leaderboard")
	return &Store{pool: pool}, nil
}

// Submit inserts one entry. A zero Timestamp is stamped server-side.
func (s *Store) Submit(ctx context.Context, e Entry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO leaderboard_entry (player_name, score, tries, grid_size, game_mode, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.PlayerName, e.Score, e.Tries, e.GridSize, e.GameMode, ts)
	if err != nil {
		return fmt.Errorf("inserting leaderboard entry: %w", err)
	}
	return nil
}

// Query returns entries for the filter, descending score, ties broken by
// fewer tries then earlier submission.
func (s *Store) Query(ctx context.Context, f Filter, limit int) ([]Entry, error) {
	query := `SELECT player_name, score, tries, grid_size, game_mode, submitted_at FROM leaderboard_entry`
	var args []any
	var where []string
	if f.GridSize > 0 {
		args = append(args, f.GridSize)
		where = append(where, "grid_size = $"+strconv.Itoa(len(args)))
	}
	if f.GameMode != "" {
		args = append(args, f.GameMode)
		where = append(where, "game_mode = $"+strconv.Itoa(len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	args = append(args, limit)
	query += " ORDER BY score DESC, tries ASC, submitted_at ASC LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PlayerName, &e.Score, &e.Tries, &e.GridSize, &e.GameMode, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
