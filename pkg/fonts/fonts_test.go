package fonts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry(Face{})
	if got := r.FontFamily(); !strings.HasPrefix(got, "'Inter',") {
		t.Errorf("FontFamily() = %q", got)
	}
	if css := r.CSS(); css != "" {
		t.Errorf("CSS() without data = %q, want empty", css)
	}
}

func TestRegistryCSS(t *testing.T) {
	r := NewRegistry(Face{Family: "Serif Book", WOFF: []byte("abc")})
	if err := r.Register(Face{Family: "Alpha", WOFF: []byte("xyz")}); err != nil {
		t.Fatal(err)
	}
	css := r.CSS()
	if !strings.Contains(css, "base64,YWJj") || !strings.Contains(css, "base64,eHl6") {
		t.Errorf("CSS() missing encoded data:\n%s", css)
	}
	if strings.Index(css, "'Alpha'") > strings.Index(css, "'Serif Book'") {
		t.Errorf("faces not sorted:\n%s", css)
	}
}

func TestRegistryLoadWOFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Handwriting.woff")
	if err := os.WriteFile(path, []byte("font"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(Face{})
	if err := r.LoadWOFF("", path); err != nil {
		t.Fatalf("LoadWOFF: %v", err)
	}
	if _, ok := r.Lookup("Handwriting"); !ok {
		t.Errorf("family not registered, have %v", r.Families())
	}
	if err := r.SetDefault("Handwriting"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(r.FontFamily(), "'Handwriting'") {
		t.Errorf("FontFamily() = %q", r.FontFamily())
	}
	if err := r.SetDefault("Missing"); err == nil {
		t.Error("SetDefault accepted unknown family")
	}
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry(Face{WOFF: []byte("abc")})
	r.Register(Face{Family: "Other", WOFF: []byte("x")})
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if r.CSS() != "" {
		t.Error("CSS() after Close still embeds data")
	}
	if err := r.Register(Face{Family: "Late"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Register after Close = %v, want ErrClosed", err)
	}
}
