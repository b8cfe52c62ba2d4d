package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"pairs-server/config"
	"pairs-server/content"
	"pairs-server/leaderboard"
	"pairs-server/lobby"
	"pairs-server/loghandler"
	"pairs-server/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables", "tag", "main")
	}

	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stderr, slog.LevelInfo)))

	cfg := config.Load()
	slog.Info("configuration loaded", "tag", "main",
		"default_grid_size", cfg.DefaultGridSize,
		"max_grid_size", cfg.MaxGridSize,
		"settle_delay_ms", cfg.SettleDelayMS,
		"ws_port", cfg.WSPort)

	if cfg.AuthBaseURL == "" {
		slog.Info("auth disabled, connections are anonymous", "tag", "main")
	} else {
		slog.Info("auth configured", "tag", "main", "base_url", cfg.AuthBaseURL)
	}

	ctx := context.Background()

	var board leaderboard.Gateway
	store, err := leaderboard.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("leaderboard store unavailable", "tag", "main", "err", err)
		os.Exit(1)
	}
	if store != nil {
		slog.Info("leaderboard backed by postgres", "tag", "main")
		defer store.Close()
		board = store
	} else {
		slog.Info("DATABASE_URL not set, leaderboard kept in memory", "tag", "main")
		mem := leaderboard.NewMemory()
		defer mem.Close()
		board = mem
	}

	lob := lobby.New(cfg, content.DefaultPool(), clockwork.NewRealClock())

	hub := ws.NewHub(cfg, lob, board)
	go hub.Run(ctx)

	http.HandleFunc("/ws", hub.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	slog.Info("listening", "tag", "main", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("server stopped", "tag", "main", "err", err)
		os.Exit(1)
	}
}
