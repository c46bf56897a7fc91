package layout

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kinview/pkg/geom"
)

// Direction controls the horizontal order of siblings.
type Direction int

const (
	// LeftToRight places siblings in ascending SiblingOrder from left to right.
	LeftToRight Direction = iota
	// RightToLeft places siblings in descending SiblingOrder from left to
	// right, for right-to-left reading order.
	RightToLeft
)

// String returns "ltr" or "rtl".
func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

// ParseDirection maps "ltr"/"rtl" to a Direction. Unknown values yield
// LeftToRight and false.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "rtl":
		return RightToLeft, true
	case "ltr", "":
		return LeftToRight, true
	}
	return LeftToRight, false
}

// Default values.
const (
	DefaultMinGap          = 8.0
	DefaultGapRatio        = 0.25
	DefaultCousinGapFactor = 1.5
	DefaultLevelHeight     = 220.0
	DefaultRootOffsetY     = 40.0
	DefaultFallbackSpacing = 160.0
)

// Default node boxes.
var (
	DefaultPhotoNodeSize   = geom.Size{W: 96, H: 128}
	DefaultCompactNodeSize = geom.Size{W: 72, H: 44}
)

// Options configures a layout pass. Zero fields take the package defaults.
type Options struct {
	Direction Direction `json:"direction"`

	// PhotoNodeSize is the box of a node with a photo.
	PhotoNodeSize geom.Size `json:"photo_node_size"`
	// CompactNodeSize is the box of a label-only node.
	CompactNodeSize geom.Size `json:"compact_node_size"`

	MinGap          float64 `json:"min_gap"`
	GapRatio        float64 `json:"gap_ratio"`
	CousinGapFactor float64 `json:"cousin_gap_factor"`

	// LevelHeight is the distance between generation centres. It is raised
	// to tallest-node + MinGap when smaller.
	LevelHeight float64 `json:"level_height"`
	RootOffsetY float64 `json:"root_offset_y"`

	// FallbackSpacing spaces nodes that ended up without a finite position.
	FallbackSpacing float64 `json:"fallback_spacing"`

	Logger *log.Logger `json:"-"`
}

func (o Options) withDefaults() Options {
	if o.PhotoNodeSize.W <= 0 || o.PhotoNodeSize.H <= 0 {
		o.PhotoNodeSize = DefaultPhotoNodeSize
	}
	if o.CompactNodeSize.W <= 0 || o.CompactNodeSize.H <= 0 {
		o.CompactNodeSize = DefaultCompactNodeSize
	}
	if o.MinGap <= 0 {
		o.MinGap = DefaultMinGap
	}
	if o.GapRatio <= 0 {
		o.GapRatio = DefaultGapRatio
	}
	if o.CousinGapFactor < 1 {
		o.CousinGapFactor = DefaultCousinGapFactor
	}
	if o.LevelHeight <= 0 {
		o.LevelHeight = DefaultLevelHeight
	}
	if o.RootOffsetY == 0 {
		o.RootOffsetY = DefaultRootOffsetY
	}
	if o.FallbackSpacing <= 0 {
		o.FallbackSpacing = DefaultFallbackSpacing
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}
