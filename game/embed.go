package game

import (
	"bytes"
	"embed"
	"path"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed maps/*.json
var builtinMaps embed.FS

// BuiltinMap loads a map shipped with the game by name.
func BuiltinMap(name string) (*MapData, error) {
	data, err := builtinMaps.ReadFile(path.Join("maps", name+".json"))
	if err != nil {
		return nil, goerr.Wrap(err, "unknown builtin map", goerr.V("map", name))
	}
	return ParseMap(bytes.NewReader(data))
}
