// Package game implements the round rules of the safer-road quiz.
//
// The rule functions are pure and operate on [models.GameState] values. [Engine] combines them into the state
// machine Playing(1) → … → Playing(Rounds) → GameOver → Playing(1).
package game

import (
	"github.com/myrjola/saferroad/internal/dataset"
	"github.com/myrjola/saferroad/internal/models"
)

// Rounds is the number of rounds in one game.
const Rounds = 5

// Unknown labels a category whose one-hot flags are all unset.
const Unknown = "Unknown"

type option struct {
	column string
	label  string
}

// category is an ordered lookup table of one-hot columns. The first set column wins.
type category struct {
	name    string
	options []option
}

func (c category) decode(record models.RoadRecord) string {
	for _, o := range c.options {
		if record.Flag(o.column) {
			return o.label
		}
	}
	return Unknown
}

//nolint:gochecknoglobals // lookup tables
var (
	roadTypes = category{name: "Road Type", options: []option{
		{column: "road_type_highway", label: "Highway"},
		{column: "road_type_rural", label: "Rural"},
		{column: "road_type_urban", label: "Urban"},
	}}
	lighting = category{name: "Lighting", options: []option{
		{column: "lighting_daylight", label: "Daylight"},
		{column: "lighting_dim", label: "Dim"},
		{column: "lighting_night", label: "Night"},
	}}
	weather = category{name: "Weather", options: []option{
		{column: "weather_clear", label: "Clear"},
		{column: "weather_foggy", label: "Foggy"},
		{column: "weather_rainy", label: "Rainy"},
	}}
	timeOfDay = category{name: "Time of Day", options: []option{
		{column: "time_of_day_morning", label: "Morning"},
		{column: "time_of_day_afternoon", label: "Afternoon"},
		{column: "time_of_day_evening", label: "Evening"},
	}}
	categories = []category{roadTypes, lighting, weather, timeOfDay}
)

// DecodeCategory maps the one-hot flags of record to readable labels.
func DecodeCategory(record models.RoadRecord) models.Categories {
	return models.Categories{
		RoadType:  roadTypes.decode(record),
		Lighting:  lighting.decode(record),
		Weather:   weather.decode(record),
		TimeOfDay: timeOfDay.decode(record),
	}
}

// Distribution counts the decoded labels of every category in table, keyed by category name and label.
func Distribution(table *dataset.Table) map[string]map[string]int {
	counts := make(map[string]map[string]int, len(categories))
	for _, c := range categories {
		counts[c.name] = map[string]int{}
	}
	for i := range table.Len() {
		record := table.Record(i)
		for _, c := range categories {
			counts[c.name][c.decode(record)]++
		}
	}
	return counts
}

// IntN is the source of randomness for drawing rounds. [math/rand/v2.Rand] implements it.
type IntN interface {
	IntN(n int) int
}

// DrawRound samples two record indices uniformly with replacement. Both may point to the same record.
func DrawRound(table *dataset.Table, rng IntN) (int, int) {
	return rng.IntN(table.Len()), rng.IntN(table.Len())
}

// Judge returns the safer road, the one with the lower predicted risk. Ties go to road B.
func Judge(a, b models.RoadRecord) models.Choice {
	if a.Risk < b.Risk {
		return models.ChoiceRoadA
	}
	return models.ChoiceRoadB
}

// ApplyChoice records the player's choice and awards a point if it matches the safer road. The round is unchanged.
func ApplyChoice(state models.GameState, chosen, safer models.Choice) models.GameState {
	state.Chosen = chosen
	if chosen == safer {
		state.Score++
	}
	return state
}

// Advance moves to the next round and clears the choice.
func Advance(state models.GameState) models.GameState {
	state.Round++
	state.Chosen = models.ChoiceNone
	return state
}

// Reset returns the state of a fresh game.
func Reset() models.GameState {
	return models.GameState{Round: 1} //nolint:exhaustruct // zero score, no pair drawn yet
}

// IsOver reports whether every round has been played.
func IsOver(state models.GameState) bool {
	return state.Round > Rounds
}

// IsLastRound reports whether state is in the final round.
func IsLastRound(state models.GameState) bool {
	return state.Round == Rounds
}

// Verdict summarises the final score.
type Verdict int

const (
	VerdictBetterLuck Verdict = iota
	VerdictGreat
	VerdictPerfect
)

// greatScore is the lowest score that earns [VerdictGreat].
const greatScore = 3

// VerdictFor returns the verdict for a final score.
func VerdictFor(score int) Verdict {
	switch {
	case score >= Rounds:
		return VerdictPerfect
	case score >= greatScore:
		return VerdictGreat
	default:
		return VerdictBetterLuck
	}
}

// Perfect reports whether every round was answered correctly.
func (v Verdict) Perfect() bool { return v == VerdictPerfect }

// Great reports whether the score earned [VerdictGreat].
func (v Verdict) Great() bool { return v == VerdictGreat }

func (v Verdict) String() string {
	switch v {
	case VerdictPerfect:
		return "perfect"
	case VerdictGreat:
		return "great"
	case VerdictBetterLuck:
		return "better_luck"
	default:
		return "unknown"
	}
}
