package cache

import (
	"fmt"
	"strings"
)

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey identifies a layout computed from the records with the given
	// content hash under opts.
	LayoutKey(recordsHash string, opts LayoutKeyOpts) string

	// ImageKey identifies a photo fetched at a given size bucket.
	ImageKey(url string, bucket int) string
}

// LayoutKeyOpts are the layout parameters that change node positions.
type LayoutKeyOpts struct {
	Direction       string  `json:"direction"`
	LevelHeight     float64 `json:"level_height"`
	RootOffsetY     float64 `json:"root_offset_y"`
	MinGap          float64 `json:"min_gap"`
	GapRatio        float64 `json:"gap_ratio"`
	CousinGapFactor float64 `json:"cousin_gap_factor"`
}

// DefaultKeyer hashes key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(recordsHash string, opts LayoutKeyOpts) string {
	return hashKey(KeyTypeLayout, recordsHash, opts)
}

// ImageKey returns "image:<bucket>:<sha256(url)>". The bucket stays readable
// so that all sizes of one photo can be listed by prefix.
func (DefaultKeyer) ImageKey(url string, bucket int) string {
	return fmt.Sprintf("%s:%d:%s", KeyTypeImage, bucket, Hash([]byte(url)))
}

// KeyType returns the prefix of key up to the first colon, skipping a scope
// prefix added by ScopedKeyer.
func KeyType(key string) string {
	for _, t := range []string{KeyTypeLayout, KeyTypeImage} {
		if strings.HasPrefix(key, t+":") || strings.Contains(key, ":"+t+":") {
			return t
		}
	}
	return "other"
}
