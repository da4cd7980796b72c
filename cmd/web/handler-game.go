package main

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/saferroad/internal/errors"
	"github.com/myrjola/saferroad/internal/game"
	"github.com/myrjola/saferroad/internal/models"
)

type roundTemplateData struct {
	Round  game.RoundView
	Score  int
	Rounds int
}

type gameOverTemplateData struct {
	Score   int
	Rounds  int
	Verdict game.Verdict
}

// staleTransition reports whether err comes from a form that no longer matches the game, e.g., a double submit.
func staleTransition(err error) bool {
	return errors.Is(err, game.ErrAlreadyChosen) || errors.Is(err, game.ErrNotChosen) ||
		errors.Is(err, game.ErrGameOver) || errors.Is(err, game.ErrNotOver)
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	ctx, state, ok := app.loadGame(r.Context())
	if !ok {
		state = app.engine.NewGame()
		ctx = app.storeNewGame(ctx, state)
	}
	r = r.WithContext(ctx)

	if game.IsOver(state) {
		app.render(w, r, http.StatusOK, "gameover", gameOverTemplateData{
			Score:   state.Score,
			Rounds:  game.Rounds,
			Verdict: game.VerdictFor(state.Score),
		})
		return
	}

	current, view, err := app.engine.Round(state)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "resolve round"))
		return
	}
	if current != state {
		app.logger.LogAttrs(ctx, slog.LevelInfo, "redrew stale road pair", slog.Int("round", current.Round))
		app.saveGame(ctx, current)
	}

	app.render(w, r, http.StatusOK, "round", roundTemplateData{
		Round:  view,
		Score:  current.Score,
		Rounds: game.Rounds,
	})
}

func (app *application) choose(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "parse form"))
		return
	}
	value := r.PostForm.Get("road")
	road, err := strconv.Atoi(value)
	chosen := models.Choice(road)
	if err != nil || !chosen.Valid() {
		app.clientError(w, r, http.StatusBadRequest,
			errors.Wrap(game.ErrInvalidChoice, "parse road", slog.String("road", value)))
		return
	}

	ctx, state, ok := app.loadGame(r.Context())
	if !ok {
		redirectHome(w, r)
		return
	}

	var outcome game.Outcome
	if state, outcome, err = app.engine.Choose(state, chosen); err != nil {
		if staleTransition(err) {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "ignored stale choice", errors.SlogError(err))
			redirectHome(w, r)
			return
		}
		app.serverError(w, r.WithContext(ctx), errors.Wrap(err, "choose road"))
		return
	}
	app.saveGame(ctx, state)
	app.metrics.ChoiceMade(outcome.Correct)
	app.logger.LogAttrs(ctx, slog.LevelInfo, "road chosen",
		slog.Int("round", state.Round),
		slog.Int("chosen", int(outcome.Chosen)),
		slog.Int("safer", int(outcome.Safer)),
		slog.Bool("correct", outcome.Correct),
		slog.Int("score", state.Score))

	redirectHome(w, r)
}

func (app *application) next(w http.ResponseWriter, r *http.Request) {
	ctx, state, ok := app.loadGame(r.Context())
	if !ok {
		redirectHome(w, r)
		return
	}

	var err error
	if state, err = app.engine.Next(state); err != nil {
		if staleTransition(err) {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "ignored stale advance", errors.SlogError(err))
			redirectHome(w, r)
			return
		}
		app.serverError(w, r.WithContext(ctx), errors.Wrap(err, "advance round"))
		return
	}
	app.saveGame(ctx, state)

	if game.IsOver(state) {
		verdict := game.VerdictFor(state.Score)
		app.metrics.GameFinished(state.Score, verdict.String())
		app.logger.LogAttrs(ctx, slog.LevelInfo, "game finished",
			slog.Int("score", state.Score), slog.String("verdict", verdict.String()))
	}

	redirectHome(w, r)
}

func (app *application) replay(w http.ResponseWriter, r *http.Request) {
	ctx, state, ok := app.loadGame(r.Context())
	if !ok {
		app.storeNewGame(ctx, app.engine.NewGame())
		redirectHome(w, r)
		return
	}

	var err error
	if state, err = app.engine.Replay(state); err != nil {
		if staleTransition(err) {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "ignored stale replay", errors.SlogError(err))
			redirectHome(w, r)
			return
		}
		app.serverError(w, r.WithContext(ctx), errors.Wrap(err, "replay game"))
		return
	}
	app.storeNewGame(ctx, state)

	redirectHome(w, r)
}
