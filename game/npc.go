package game

// InteractRadius is how close the player must be to talk to an NPC.
const InteractRadius = 64.0

// Facing is the direction an NPC sprite looks at.
type Facing int

const (
	FacingDown Facing = iota
	FacingLeft
	FacingRight
	FacingUp
)

// FacingFromString parses a facing name; unknown names face down.
func FacingFromString(s string) Facing {
	switch s {
	case "left":
		return FacingLeft
	case "right":
		return FacingRight
	case "up":
		return FacingUp
	default:
		return FacingDown
	}
}

// NPC is a character the player can talk to.
type NPC struct {
	Name     string
	Pos      Vec2
	Facing   Facing
	Dialogue DialogueData
	Radius   float64
	InRange  bool
}

func newNPC(data NPCData, m *MapData) *NPC {
	return &NPC{
		Name:     data.Name,
		Pos:      TileToWorld(data.X, data.Y, m.Width, m.Height),
		Facing:   FacingFromString(data.Facing),
		Dialogue: data.Dialogue,
		Radius:   InteractRadius,
	}
}

// updateProximity flags every NPC within its radius of player.
func updateProximity(player Vec2, npcs []*NPC) {
	for _, npc := range npcs {
		npc.InRange = player.Distance(npc.Pos) <= npc.Radius
	}
}

// closestInRange returns the nearest in-range NPC and its distance.
func closestInRange(player Vec2, npcs []*NPC) (*NPC, float64) {
	var (
		closest *NPC
		best    float64
	)
	for _, npc := range npcs {
		if !npc.InRange {
			continue
		}
		d := player.Distance(npc.Pos)
		if closest == nil || d < best {
			closest, best = npc, d
		}
	}
	return closest, best
}
