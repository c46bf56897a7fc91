package sink

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/matzehuels/kinview/pkg/render"
)

// PNG rasterises f through rsvg-convert. A scale of 2 produces a 2x image.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func PNG(f render.Frame, scale float64, opts ...SVGOption) ([]byte, error) {
	if !(scale > 0) {
		scale = 2
	}
	return rsvgConvert(SVG(f, opts...), "png", "-z", fmt.Sprintf("%.2f", scale))
}

func rsvgConvert(svg []byte, format string, extraArgs ...string) ([]byte, error) {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		return nil, fmt.Errorf("%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", format)
	}

	args := append([]string{"-f", format}, extraArgs...)
	cmd := exec.Command("rsvg-convert", args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rsvg-convert: %v: %s", err, errBuf.String())
	}
	return out.Bytes(), nil
}
