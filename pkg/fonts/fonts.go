// Package fonts keeps the font faces used when frames are serialised to SVG.
//
// A [Registry] is created once by the host, shared by reference with every
// sink that needs it, and closed on shutdown. Nothing in this package is
// global: two hosts in one process can use different fonts.
package fonts

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// DefaultFamily is the CSS family name used when no face is registered.
const DefaultFamily = "Inter"

// DefaultFallback is the CSS fallback stack appended after the primary family.
const DefaultFallback = `'Helvetica Neue', Arial, sans-serif`

// ErrClosed is returned by Register after Close.
var ErrClosed = errors.New("fonts: registry closed")

// Face is a font family with optional embedded font data.
type Face struct {
	// Family is the CSS font-family name.
	Family string
	// WOFF is the font file. Faces without data rely on the viewer having
	// the family installed.
	WOFF []byte
}

type entry struct {
	face    Face
	once    sync.Once
	encoded string
}

// Registry holds font faces by family name.
type Registry struct {
	mu       sync.RWMutex
	faces    map[string]*entry
	def      string
	fallback string
	closed   bool
}

// NewRegistry returns a registry whose default is def. An empty def.Family
// selects DefaultFamily.
func NewRegistry(def Face) *Registry {
	if def.Family == "" {
		def.Family = DefaultFamily
	}
	return &Registry{
		faces:    map[string]*entry{def.Family: {face: def}},
		def:      def.Family,
		fallback: DefaultFallback,
	}
}

// Register adds or replaces a face.
func (r *Registry) Register(f Face) error {
	if f.Family == "" {
		return fmt.Errorf("fonts: empty family name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.faces[f.Family] = &entry{face: f}
	return nil
}

// LoadWOFF reads a font file from disk and registers it under family. An
// empty family is derived from the file name.
func (r *Registry) LoadWOFF(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font: %w", err)
	}
	if family == "" {
		family = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return r.Register(Face{Family: family, WOFF: data})
}

// SetDefault selects the default family. It must already be registered.
func (r *Registry) SetDefault(family string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.faces[family]; !ok {
		return fmt.Errorf("fonts: unknown family %q", family)
	}
	r.def = family
	return nil
}

// Lookup returns the face registered under family.
func (r *Registry) Lookup(family string) (Face, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.faces[family]
	if !ok {
		return Face{}, false
	}
	return e.face, true
}

// Families returns the registered family names, sorted.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.faces))
	for name := range r.faces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FontFamily returns the CSS font-family value for the default face.
func (r *Registry) FontFamily() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("'%s', %s", r.def, r.fallback)
}

// CSS returns @font-face rules for every face that carries font data.
// Base64 encodings are computed once per face.
func (r *Registry) CSS() string {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.faces))
	for _, e := range r.faces {
		if len(e.face.WOFF) > 0 {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *entry) int { return strings.Compare(a.face.Family, b.face.Family) })

	var b strings.Builder
	for _, e := range entries {
		e.once.Do(func() { e.encoded = base64.StdEncoding.EncodeToString(e.face.WOFF) })
		fmt.Fprintf(&b, "@font-face { font-family: '%s'; src: url(data:font/woff;base64,%s) format('woff'); }\n",
			e.face.Family, e.encoded)
	}
	return b.String()
}

// Close drops all font data. The registry keeps answering FontFamily with
// the default family but no longer embeds data.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.faces {
		if name != r.def {
			delete(r.faces, name)
		}
	}
	if _, ok := r.faces[r.def]; ok {
		r.faces[r.def] = &entry{face: Face{Family: r.def}}
	}
	r.closed = true
	return nil
}
