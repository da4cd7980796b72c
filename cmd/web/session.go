package main

import (
	"context"
	"log/slog"

	"github.com/myrjola/saferroad/internal/logging"
	"github.com/myrjola/saferroad/internal/models"
)

const gameSessionKey = "game"

// loadGame returns the game stored in the session. The returned context carries the game ID for logging.
func (app *application) loadGame(ctx context.Context) (context.Context, models.GameState, bool) {
	state, ok := app.sessionManager.Get(ctx, gameSessionKey).(models.GameState)
	if !ok {
		return ctx, models.GameState{}, false
	}
	return logging.WithAttrs(ctx, slog.String("game_id", state.ID)), state, true
}

func (app *application) saveGame(ctx context.Context, state models.GameState) {
	app.sessionManager.Put(ctx, gameSessionKey, state)
}

// storeNewGame replaces the game in the session with state. The returned context carries the new game ID.
func (app *application) storeNewGame(ctx context.Context, state models.GameState) context.Context {
	app.saveGame(ctx, state)
	app.metrics.GameStarted()
	ctx = logging.WithAttrs(ctx, slog.String("game_id", state.ID))
	app.logger.LogAttrs(ctx, slog.LevelInfo, "started game")
	return ctx
}
