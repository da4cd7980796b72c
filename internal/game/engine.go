package game

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/myrjola/saferroad/internal/dataset"
	"github.com/myrjola/saferroad/internal/errors"
	"github.com/myrjola/saferroad/internal/models"
)

var (
	ErrGameOver      = errors.NewSentinel("game is over")
	ErrAlreadyChosen = errors.NewSentinel("road already chosen this round")
	ErrNotChosen     = errors.NewSentinel("no road chosen this round")
	ErrInvalidChoice = errors.NewSentinel("invalid road choice")
	ErrNotOver       = errors.NewSentinel("game is not over")
)

// Road is a record prepared for display.
type Road struct {
	models.RoadRecord
	models.Categories
}

// Outcome is the result of the player's choice in a round.
type Outcome struct {
	Chosen  models.Choice
	Safer   models.Choice
	Correct bool
	RiskA   float64
	RiskB   float64
}

// RoundView is everything needed to render the current round.
type RoundView struct {
	Number int
	Last   bool
	RoadA  Road
	RoadB  Road
	// Outcome is nil until the player has chosen a road.
	Outcome *Outcome
}

// Engine enforces the round state machine over the shared dataset. It is safe for concurrent use.
type Engine struct {
	table *dataset.Table
	newID func() string

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an [Engine].
type Option func(*Engine)

// WithRand sets the random source for drawing rounds.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithIDGenerator sets the function that assigns IDs to new games.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// NewEngine creates an engine that draws roads from table.
func NewEngine(table *dataset.Table, opts ...Option) *Engine {
	e := &Engine{
		table: table,
		newID: uuid.NewString,
		mu:    sync.Mutex{},
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the dataset the engine draws from.
func (e *Engine) Table() *dataset.Table {
	return e.table
}

func (e *Engine) draw(state models.GameState) models.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	state.RoadA, state.RoadB = DrawRound(e.table, e.rng)
	return state
}

// ensurePair redraws the pair if it does not fit the table, e.g., when a stored session outlived a dataset change.
func (e *Engine) ensurePair(state models.GameState) models.GameState {
	if e.table.Contains(state.RoadA) && e.table.Contains(state.RoadB) {
		return state
	}
	state.Chosen = models.ChoiceNone
	return e.draw(state)
}

// NewGame starts a game in round 1 with the first pair drawn.
func (e *Engine) NewGame() models.GameState {
	state := Reset()
	state.ID = e.newID()
	return e.draw(state)
}

// Replay starts a new game once the given one is over. A game in progress is returned unchanged.
func (e *Engine) Replay(state models.GameState) (models.GameState, error) {
	if !IsOver(state) {
		return state, errors.Wrap(ErrNotOver, "replay", slog.Int("round", state.Round))
	}
	return e.NewGame(), nil
}

// Round resolves the current round. The returned state differs from the given one only if its pair was redrawn.
func (e *Engine) Round(state models.GameState) (models.GameState, RoundView, error) {
	if IsOver(state) {
		return state, RoundView{}, errors.Wrap(ErrGameOver, "round", slog.Int("round", state.Round))
	}
	state = e.ensurePair(state)

	a, b := e.table.Record(state.RoadA), e.table.Record(state.RoadB)
	view := RoundView{
		Number:  state.Round,
		Last:    IsLastRound(state),
		RoadA:   Road{RoadRecord: a, Categories: DecodeCategory(a)},
		RoadB:   Road{RoadRecord: b, Categories: DecodeCategory(b)},
		Outcome: nil,
	}
	if state.Answered() {
		outcome := newOutcome(state.Chosen, a, b)
		view.Outcome = &outcome
	}
	return state, view, nil
}

func newOutcome(chosen models.Choice, a, b models.RoadRecord) Outcome {
	safer := Judge(a, b)
	return Outcome{
		Chosen:  chosen,
		Safer:   safer,
		Correct: chosen == safer,
		RiskA:   a.Risk,
		RiskB:   b.Risk,
	}
}

// Choose applies the player's choice to the current round.
func (e *Engine) Choose(state models.GameState, chosen models.Choice) (models.GameState, Outcome, error) {
	attrs := []slog.Attr{slog.Int("round", state.Round), slog.Int("chosen", int(chosen))}
	switch {
	case !chosen.Valid():
		return state, Outcome{}, errors.Wrap(ErrInvalidChoice, "choose", attrs...)
	case IsOver(state):
		return state, Outcome{}, errors.Wrap(ErrGameOver, "choose", attrs...)
	case state.Answered():
		return state, Outcome{}, errors.Wrap(ErrAlreadyChosen, "choose", attrs...)
	}
	state = e.ensurePair(state)

	a, b := e.table.Record(state.RoadA), e.table.Record(state.RoadB)
	outcome := newOutcome(chosen, a, b)
	return ApplyChoice(state, chosen, outcome.Safer), outcome, nil
}

// Next advances past an answered round. After the last round the game is over and no pair is drawn.
func (e *Engine) Next(state models.GameState) (models.GameState, error) {
	attrs := []slog.Attr{slog.Int("round", state.Round)}
	switch {
	case IsOver(state):
		return state, errors.Wrap(ErrGameOver, "next", attrs...)
	case !state.Answered():
		return state, errors.Wrap(ErrNotChosen, "next", attrs...)
	}
	state = Advance(state)
	if IsOver(state) {
		return state, nil
	}
	return e.draw(state), nil
}
