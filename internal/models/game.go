package models

// Choice identifies one of the two roads shown in a round.
type Choice int

const (
	ChoiceNone Choice = iota
	ChoiceRoadA
	ChoiceRoadB
)

// Valid reports whether c names a road.
func (c Choice) Valid() bool {
	return c == ChoiceRoadA || c == ChoiceRoadB
}

// GameState is the per-session state of one game.
//
// Round is 1-based and the round after the last one means the game is over. RoadA and RoadB index the pair of
// records drawn for the current round so that re-rendering the page shows the same roads.
type GameState struct {
	ID     string
	Round  int
	Score  int
	RoadA  int
	RoadB  int
	Chosen Choice
}

// Answered reports whether the player has picked a road in the current round.
func (s GameState) Answered() bool {
	return s.Chosen != ChoiceNone
}
