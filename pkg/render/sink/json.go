package sink

import (
	"encoding/json"

	"github.com/matzehuels/kinview/pkg/render"
)

// JSON renders f as indented JSON.
func JSON(f render.Frame) ([]byte, error) {
	if f.Primitives == nil {
		f.Primitives = []render.Primitive{}
	}
	return json.MarshalIndent(f, "", "  ")
}
