package game

import (
	"encoding/json"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
)

// TileSize is the edge of one map tile in world pixels.
const TileSize = 48.0

// MapData is a map file: tiles row by row and the NPCs placed on it.
type MapData struct {
	Name   string    `json:"name"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Tiles  []int     `json:"tiles"`
	NPCs   []NPCData `json:"npcs"`
}

// NPCData places one NPC on a tile.
type NPCData struct {
	Name     string       `json:"name"`
	X        int          `json:"x"`
	Y        int          `json:"y"`
	Sprite   string       `json:"sprite"`
	Facing   string       `json:"facing"`
	Dialogue DialogueData `json:"dialogue"`
}

// DialogueData is what an NPC says when talked to.
type DialogueData struct {
	Speaker  string   `json:"speaker"`
	Portrait string   `json:"portrait"`
	Lines    []string `json:"lines"`
}

// ParseMap decodes and validates a map.
func ParseMap(r io.Reader) (*MapData, error) {
	var m MapData
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, goerr.Wrap(err, "failed to parse map JSON")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadMapFile reads a map from path.
func LoadMapFile(path string) (*MapData, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read map file", goerr.V("path", path))
	}
	defer func() { _ = f.Close() }()

	m, err := ParseMap(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load map", goerr.V("path", path))
	}
	return m, nil
}

// Validate checks the map dimensions against its tiles and NPC placement.
func (m *MapData) Validate() error {
	if m.Name == "" {
		return goerr.New("map name is empty")
	}
	if m.Width <= 0 || m.Height <= 0 {
		return goerr.New("map size must be positive",
			goerr.V("width", m.Width),
			goerr.V("height", m.Height),
		)
	}
	if len(m.Tiles) != 0 && len(m.Tiles) != m.Width*m.Height {
		return goerr.New("tile count does not match map size",
			goerr.V("tiles", len(m.Tiles)),
			goerr.V("width", m.Width),
			goerr.V("height", m.Height),
		)
	}
	for _, npc := range m.NPCs {
		if npc.X < 0 || npc.X >= m.Width || npc.Y < 0 || npc.Y >= m.Height {
			return goerr.New("npc placed outside the map",
				goerr.V("npc", npc.Name),
				goerr.V("x", npc.X),
				goerr.V("y", npc.Y),
			)
		}
	}
	return nil
}

// TileToWorld returns the centre of a tile with the map centred on the origin.
func TileToWorld(tileX, tileY, mapWidth, mapHeight int) Vec2 {
	return Vec2{
		X: (float64(tileX)-float64(mapWidth)/2)*TileSize + TileSize/2,
		Y: (float64(tileY)-float64(mapHeight)/2)*TileSize + TileSize/2,
	}
}
