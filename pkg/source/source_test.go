package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/family"
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	doc := `[{"id": 1, "name": "Ada"}, {"id": 2, "father_id": 1}]`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	src, err := Open(ctx, Options{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close(ctx)

	records, err := src.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Name != "Ada" {
		t.Errorf("records = %+v", records)
	}
}

func TestFileSourceErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Options{Path: ""}); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("empty path: %v", err)
	}
	if _, err := Open(ctx, Options{Backend: "ftp"}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown backend: %v", err)
	}
	_, err := File(filepath.Join(t.TempDir(), "missing.json")).Load(ctx)
	if !errors.Is(err, errors.ErrCodeInvalidRecords) {
		t.Errorf("missing file: %v", err)
	}
}

func TestMongoSource(t *testing.T) {
	uri := os.Getenv("KINVIEW_TEST_MONGO")
	if uri == "" {
		t.Skip("KINVIEW_TEST_MONGO not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m, err := NewMongo(ctx, Options{
		MongoURI:   uri,
		Database:   "kinview_test",
		Collection: "people",
		Filter:     map[string]any{"tree": "test"},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close(ctx)

	want := []family.PersonRecord{
		{ID: 2, FatherID: family.Ref(1), Name: "Ben"},
		{ID: 1, Name: "Ada"},
	}
	if err := m.Replace(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := m.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Documents written by Replace carry no "tree" field, so the filter
	// matches nothing.
	if len(got) != 0 {
		t.Errorf("filtered load returned %d records", len(got))
	}

	m.filter = map[string]any{}
	if err := m.Replace(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err = m.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].FatherID == nil || *got[1].FatherID != 1 {
		t.Errorf("records = %+v", got)
	}
	if got[0].Payload == nil {
		t.Error("payload not set")
	}
}
