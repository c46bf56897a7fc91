package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/layout"
)

// WriteLayout encodes res as indented JSON.
func WriteLayout(res *layout.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportLayout writes res to the file at path.
func ExportLayout(res *layout.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteLayout(res, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteRecords encodes records as a JSON array. Payloads are dropped.
func WriteRecords(records []family.PersonRecord, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
