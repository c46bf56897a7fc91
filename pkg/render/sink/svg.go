package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/matzehuels/kinview/pkg/fonts"
	"github.com/matzehuels/kinview/pkg/render"
)

// SVGOption configures SVG output.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	fonts      *fonts.Registry
	background string
	stats      bool
}

// WithFonts embeds the registry's faces and uses its default family.
func WithFonts(r *fonts.Registry) SVGOption { return func(s *svgRenderer) { s.fonts = r } }

// WithBackground fills the viewport with color. An empty color disables the
// background.
func WithBackground(color string) SVGOption { return func(s *svgRenderer) { s.background = color } }

// WithStats adds a comment with the frame statistics.
func WithStats() SVGOption { return func(s *svgRenderer) { s.stats = true } }

// SVG renders f as an SVG document sized to the frame viewport.
func SVG(f render.Frame, opts ...SVGOption) []byte {
	s := svgRenderer{background: render.DefaultPalette.Background}
	for _, opt := range opts {
		opt(&s)
	}
	if s.fonts == nil {
		s.fonts = fonts.NewRegistry(fonts.Face{})
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		f.Viewport.W, f.Viewport.H, f.Viewport.W, f.Viewport.H)

	if s.stats {
		fmt.Fprintf(&buf, "  <!-- tier=%s nodes=%d truncated=%t edges=%d batches=%d -->\n",
			f.Tier, f.Stats.VisibleNodes, f.Stats.NodesTruncated, f.Stats.Edges, f.Stats.EdgeBatches)
	}
	renderDefs(&buf, s.fonts)

	if s.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", s.background)
	}

	t := f.Transform
	fmt.Fprintf(&buf, `  <g transform="translate(%.2f, %.2f) scale(%.4f)">`+"\n", t.TranslateX, t.TranslateY, t.Scale)
	for _, p := range f.Primitives {
		renderPrimitive(&buf, p)
	}
	buf.WriteString("  </g>\n")
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderDefs(buf *bytes.Buffer, reg *fonts.Registry) {
	buf.WriteString("  <defs>\n    <style>\n")
	if css := reg.CSS(); css != "" {
		for _, line := range strings.Split(strings.TrimSpace(css), "\n") {
			fmt.Fprintf(buf, "      %s\n", line)
		}
	}
	fmt.Fprintf(buf, "      text { font-family: %s; text-anchor: middle; }\n", escapeXML(reg.FontFamily()))
	buf.WriteString("    </style>\n  </defs>\n")
}

func renderPrimitive(buf *bytes.Buffer, p render.Primitive) {
	switch p.Kind {
	case render.KindRect, render.KindRoundedRect:
		fmt.Fprintf(buf, `    <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f"`, p.X, p.Y, p.W, p.H)
		if p.Kind == render.KindRoundedRect {
			fmt.Fprintf(buf, ` rx="%.2f"`, p.Radius)
		}
		writePaint(buf, p)
		buf.WriteString("/>\n")
		if p.Image != nil {
			fmt.Fprintf(buf, `    <image href="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" preserveAspectRatio="xMidYMid slice" data-bucket="%d"/>`+"\n",
				escapeXML(p.Image.URL), p.X, p.Y, p.W, p.H, p.Image.Bucket)
		}
	case render.KindCircle:
		fmt.Fprintf(buf, `    <circle cx="%.2f" cy="%.2f" r="%.2f"`, p.X, p.Y, p.Radius)
		writePaint(buf, p)
		buf.WriteString("/>\n")
	case render.KindLine:
		fmt.Fprintf(buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"`, p.X, p.Y, p.X2, p.Y2)
		writePaint(buf, p)
		buf.WriteString("/>\n")
	case render.KindPath:
		buf.WriteString(`    <path d="`)
		for i, sub := range p.Subpaths {
			if i > 0 {
				buf.WriteByte(' ')
			}
			for j, pt := range sub {
				cmd := 'L'
				if j == 0 {
					cmd = 'M'
				}
				fmt.Fprintf(buf, "%c%.2f %.2f", cmd, pt.X, pt.Y)
			}
		}
		buf.WriteByte('"')
		p.Fill = ""
		writePaint(buf, p)
		buf.WriteString("/>\n")
	case render.KindText:
		fmt.Fprintf(buf, `    <text x="%.2f" y="%.2f" font-size="%.1f"`, p.X, p.Y, p.FontSize)
		writePaint(buf, p)
		fmt.Fprintf(buf, ">%s</text>\n", escapeXML(p.Text))
	}
}

func writePaint(buf *bytes.Buffer, p render.Primitive) {
	fill := p.Fill
	if fill == "" {
		fill = "none"
	}
	fmt.Fprintf(buf, ` fill="%s"`, fill)
	if p.Stroke != "" {
		fmt.Fprintf(buf, ` stroke="%s" stroke-width="%.2f"`, p.Stroke, p.StrokeWidth)
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
