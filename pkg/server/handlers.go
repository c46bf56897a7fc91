package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
	kio "github.com/matzehuels/kinview/pkg/io"
	"github.com/matzehuels/kinview/pkg/render/sink"
	"github.com/matzehuels/kinview/pkg/session"
	"github.com/matzehuels/kinview/pkg/viewport"
)

type transformBody struct {
	TranslateX float64 `json:"tx"`
	TranslateY float64 `json:"ty"`
	Scale      float64 `json:"scale"`
}

type stateBody struct {
	Applied   bool          `json:"applied"`
	Animating bool          `json:"animating"`
	Phase     string        `json:"phase"`
	Transform transformBody `json:"transform"`
}

func stateOf(c *viewport.Controller, applied bool) stateBody {
	t := c.Transform()
	return stateBody{
		Applied:   applied,
		Animating: c.Animating(),
		Phase:     c.Phase().String(),
		Transform: transformBody{TranslateX: t.TranslateX, TranslateY: t.TranslateY, Scale: t.Scale},
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.eng.Snapshot()
	body := map[string]any{"ready": snap != nil, "sessions": s.store.Len()}
	if snap != nil {
		body["nodes"] = len(snap.Scene.Layout.Nodes)
		body["generation"] = snap.Generation
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	snap := s.eng.Snapshot()
	if snap == nil {
		s.writeError(w, errors.New(errors.ErrCodeNotReady, "no layout published yet"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := kio.WriteLayout(snap.Scene.Layout, w); err != nil {
		s.logger.Debug("write layout", "err", err)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Create(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.store.Delete(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return sess, true
}

// Gesture is one input event. Fields not used by Type are ignored.
type Gesture struct {
	Type     string  `json:"type"`
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	FX       float64 `json:"fx"`
	FY       float64 `json:"fy"`
	Factor   float64 `json:"factor"`
	Pointers int     `json:"pointers"`
}

// Apply feeds g to c and reports whether the controller accepted it.
func (g Gesture) Apply(c *viewport.Controller) (bool, error) {
	switch g.Type {
	case "panStart":
		return c.PanStart(), nil
	case "panUpdate":
		return c.PanUpdate(g.DX, g.DY), nil
	case "panEnd":
		return c.PanEnd(g.VX, g.VY), nil
	case "pinchStart":
		return c.PinchStart(g.FX, g.FY), nil
	case "pinchUpdate":
		return c.PinchUpdate(g.Factor, g.FX, g.FY, g.Pointers), nil
	case "pinchEnd":
		return c.PinchEnd(), nil
	case "panBy":
		return c.PanBy(g.DX, g.DY), nil
	case "zoomBy":
		return c.ZoomBy(g.Factor, geom.Point{X: g.FX, Y: g.FY}), nil
	default:
		return false, errors.New(errors.ErrCodeInvalidGesture, "unknown gesture %q", g.Type)
	}
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var g Gesture
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&g); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidGesture, err, "decode gesture"))
		return
	}
	applied, err := g.Apply(sess.Controller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateOf(sess.Controller, applied))
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := s.eng.Snapshot()
	if snap == nil {
		s.writeError(w, errors.New(errors.ErrCodeNotReady, "no layout published yet"))
		return
	}
	raw := chi.URLParam(r, "node")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "node id %q is not an integer", raw))
		return
	}
	n, found := snap.Scene.Index.Node(family.ID(id))
	if !found {
		s.writeError(w, errors.New(errors.ErrCodeNodeNotFound, "node %d not found", id))
		return
	}
	size, err := s.size(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess.Controller.CenterOn(n.Center(), s.cfg.Viewport.NavigateScale, size)
	s.writeJSON(w, http.StatusOK, stateOf(sess.Controller, true))
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ms := 16
	if v := r.URL.Query().Get("ms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 10_000 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "ms must be in 1..10000, got %q", v))
			return
		}
		ms = n
	}
	animating := sess.Controller.Step(time.Duration(ms) * time.Millisecond)
	st := stateOf(sess.Controller, true)
	st.Animating = animating
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := s.eng.Snapshot()
	if snap == nil {
		s.writeError(w, errors.New(errors.ErrCodeNotReady, "no layout published yet"))
		return
	}
	size, err := s.size(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "svg"
	}
	if err := errors.ValidateFormat(format, "svg", "json", "png"); err != nil {
		s.writeError(w, err)
		return
	}

	start := time.Now()
	f := sess.Renderer.Render(snap.Scene, size)
	s.hooks.Engine.OnFrame(r.Context(), f.Stats.VisibleNodes, f.Stats.Edges, f.Stats.Primitives,
		f.Stats.NodesTruncated || f.Stats.EdgesTruncated, time.Since(start))

	var (
		body        []byte
		contentType string
	)
	switch format {
	case "json":
		body, err = sink.JSON(f)
		contentType = "application/json"
	case "png":
		body, err = sink.PNG(f, 1, sink.WithFonts(s.eng.Fonts()))
		contentType = "image/png"
	default:
		body = sink.SVG(f, sink.WithFonts(s.eng.Fonts()))
		contentType = "image/svg+xml"
	}
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode %s frame", format))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Kinview-Visible", strconv.Itoa(f.Stats.VisibleNodes))
	w.Header().Set("X-Kinview-Tier", f.Tier.String())
	w.Write(body)
}

func (s *Server) size(r *http.Request) (geom.Size, error) {
	q := r.URL.Query()
	w, err := dim(q.Get("w"), DefaultWidth, s.cfg.Server.MaxWidth)
	if err != nil {
		return geom.Size{}, err
	}
	h, err := dim(q.Get("h"), DefaultHeight, s.cfg.Server.MaxHeight)
	if err != nil {
		return geom.Size{}, err
	}
	return geom.Size{W: float64(w), H: float64(h)}, nil
}

func dim(v string, def, limit int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || (limit > 0 && n > limit) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "dimension %q out of range", v)
	}
	return n, nil
}
