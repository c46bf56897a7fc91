package session

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/render"
	"github.com/matzehuels/kinview/pkg/viewport"
)

func factory() Viewport {
	return Viewport{
		Controller: viewport.New(viewport.Options{}),
		Renderer:   render.New(render.Options{}),
	}
}

func TestCreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Minute, factory)
	defer s.Close()

	sess, err := s.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := errors.ValidateSessionID(sess.ID); err != nil {
		t.Errorf("id %q is not a UUID", sess.ID)
	}
	got, err := s.Get(ctx, sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get = %v, %v", got, err)
	}

	// The renderer follows its own controller.
	sess.Controller.SetTransform(geom.Transform{TranslateX: 5, Scale: 2})
	if tr := sess.Renderer.Transform(); tr.Scale != 2 || tr.TranslateX != 5 {
		t.Errorf("renderer transform = %+v", tr)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Minute, factory)
	defer s.Close()

	a, _ := s.Create(ctx)
	b, _ := s.Create(ctx)
	a.Controller.PanBy(100, 0)
	if b.Renderer.Transform().TranslateX != 0 {
		t.Error("pan in one session moved another")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestGetErrors(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Minute, factory)
	defer s.Close()

	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"malformed", "../../etc"},
		{"unknown", "3f2b8c1e-6a4d-4e8f-9b2a-1c0d5e7f9a3b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Get(ctx, tt.id)
			if !errors.Is(err, errors.ErrCodeSessionNotFound) {
				t.Errorf("Get(%q) = %v, want SESSION_NOT_FOUND", tt.id, err)
			}
		})
	}
}

func TestExpiry(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		s := NewStore(time.Minute, factory)
		defer s.Close()

		idle, _ := s.Create(ctx)
		busy, _ := s.Create(ctx)

		for range 3 {
			time.Sleep(40 * time.Second)
			if _, err := s.Get(ctx, busy.ID); err != nil {
				t.Fatalf("busy session expired: %v", err)
			}
		}
		if _, err := s.Get(ctx, idle.ID); !errors.Is(err, errors.ErrCodeSessionNotFound) {
			t.Errorf("idle session still alive: %v", err)
		}
		if s.Len() != 1 {
			t.Errorf("Len = %d, want 1", s.Len())
		}
	})
}

func TestCleanup(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		s := NewStore(time.Minute, factory)
		defer s.Close()

		for range 3 {
			s.Create(ctx)
		}
		time.Sleep(30 * time.Second)
		keep, _ := s.Create(ctx)
		time.Sleep(45 * time.Second)

		if n := s.Cleanup(ctx); n != 3 {
			t.Errorf("Cleanup removed %d, want 3", n)
		}
		if _, err := s.Get(ctx, keep.ID); err != nil {
			t.Errorf("fresh session removed: %v", err)
		}
	})
}

func TestRun(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s := NewStore(time.Minute, factory)
		defer s.Close()

		s.Create(ctx)
		go s.Run(ctx, 30*time.Second)
		time.Sleep(2 * time.Minute)
		synctest.Wait()
		if s.Len() != 0 {
			t.Errorf("Len = %d after Run, want 0", s.Len())
		}
		cancel()
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Minute, factory)
	sess, _ := s.Create(ctx)
	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, sess.ID); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("deleted session found: %v", err)
	}
	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}
