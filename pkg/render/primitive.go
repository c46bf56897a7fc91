package render

import (
	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/lod"
)

// Kind names a drawing primitive.
type Kind string

const (
	KindRect        Kind = "rect"
	KindRoundedRect Kind = "roundedRect"
	KindCircle      Kind = "circle"
	KindLine        Kind = "line"
	KindPath        Kind = "path"
	KindText        Kind = "text"
)

// Primitive is one draw call in world coordinates. Which fields are set
// depends on Kind:
//
//   - rect, roundedRect: X, Y (top-left), W, H; Radius is the corner radius
//   - circle: X, Y (centre), Radius
//   - line: X, Y to X2, Y2
//   - path: Subpaths, each an open polyline
//   - text: X, Y (anchor, horizontally centred), Text, FontSize
type Primitive struct {
	Kind   Kind      `json:"kind"`
	NodeID family.ID `json:"node_id,omitempty"`

	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	W      float64 `json:"w,omitempty"`
	H      float64 `json:"h,omitempty"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	Radius float64 `json:"radius,omitempty"`

	Subpaths [][]geom.Point `json:"subpaths,omitempty"`

	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`

	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`

	Image *ImageRef `json:"image,omitempty"`
}

// ImageRef asks the drawing collaborator to fill a rect with a photo at a
// given resolution bucket.
type ImageRef struct {
	URL    string `json:"url"`
	Bucket int    `json:"bucket"`
}

// Stats describes what a frame contains and what its caps dropped.
type Stats struct {
	VisibleNodes   int  `json:"visible_nodes"`
	NodesTruncated bool `json:"nodes_truncated"`
	Edges          int  `json:"edges"`
	EdgesTruncated bool `json:"edges_truncated"`
	EdgeBatches    int  `json:"edge_batches"`
	Prefetched     int  `json:"prefetched"`
	Primitives     int  `json:"primitives"`
}

// Frame is the output of one render pass.
type Frame struct {
	Transform  geom.Transform `json:"transform"`
	Viewport   geom.Size      `json:"viewport"`
	Tier       lod.Tier       `json:"tier"`
	Primitives []Primitive    `json:"primitives"`
	Stats      Stats          `json:"stats"`
}

// Palette is the fixed colour set used for primitives.
type Palette struct {
	Background string
	Card       string
	CardStroke string
	Compact    [2]string // alternates by generation
	Hero       string
	Edge       string
	Text       string
	Avatar     string
}

// DefaultPalette is a warm paper palette.
var DefaultPalette = Palette{
	Background: "#faf7f2",
	Card:       "#ffffff",
	CardStroke: "#c9c2b8",
	Compact:    [2]string{"#ece4d8", "#dde6e1"},
	Hero:       "#d4a017",
	Edge:       "#8a8178",
	Text:       "#2b2622",
	Avatar:     "#d9d2c7",
}
