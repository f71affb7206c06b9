package game

// State is the game mode deciding which systems run.
type State int

const (
	StateLoading State = iota
	StatePlaying
	StateDialogue
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateDialogue:
		return "dialogue"
	default:
		return "unknown"
	}
}

// Input is the player input of one frame.
type Input struct {
	// Move is the direction pressed; it is normalised before use.
	Move     Vec2
	Interact bool
	Advance  bool
	Escape   bool
}
