package io

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/kinview/pkg/layout"
)

const sample = `[
  {"id": 1, "name": "Ada", "born": 1815},
  {"id": 2, "father_id": 1, "sibling_order": 0, "photo_url": "https://img.example/2.jpg"},
  {"id": 3, "father_id": 1, "sibling_order": 1, "node_width_hint": 140}
]`

func TestReadRecords(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array", sample},
		{"people object", `{"people": ` + sample + `}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadRecords(strings.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if len(records) != 3 {
				t.Fatalf("got %d records", len(records))
			}
			if records[1].FatherID == nil || *records[1].FatherID != 1 {
				t.Errorf("father_id = %v", records[1].FatherID)
			}
			if records[2].NodeWidthHint != 140 {
				t.Errorf("node_width_hint = %v", records[2].NodeWidthHint)
			}
			raw, ok := records[0].Payload.(json.RawMessage)
			if !ok || !bytes.Contains(raw, []byte(`"born": 1815`)) {
				t.Errorf("payload = %s", records[0].Payload)
			}
		})
	}
}

func TestReadRecordsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not json"},
		{"no people", `{"persons": []}`},
		{"bad field", `[{"id": "one"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadRecords(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	res, err := layout.Compute(records, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "layout.json")
	if err := ExportLayout(res, path); err != nil {
		t.Fatal(err)
	}
	got, err := ImportLayout(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Nodes) != 3 || got.Bounds != res.Bounds {
		t.Fatalf("round trip changed layout: %+v", got.Bounds)
	}
	for i := range res.Nodes {
		if got.Nodes[i].X != res.Nodes[i].X || got.Nodes[i].Y != res.Nodes[i].Y {
			t.Errorf("node %d moved", res.Nodes[i].ID)
		}
	}
	if got.Nodes[0].Payload != nil {
		t.Error("payload should not be serialised")
	}
	got.Reattach(records)
	if got.Nodes[0].Payload == nil {
		t.Error("Reattach did not restore the payload")
	}
}
