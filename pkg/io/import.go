package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/layout"
)

type recordFile struct {
	People []json.RawMessage `json:"people"`
}

// ReadRecords decodes records from r. It checks JSON shape only; tree
// validation happens in family.BuildTree.
func ReadRecords(r io.Reader) ([]family.PersonRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	raw, err := splitRecords(data)
	if err != nil {
		return nil, err
	}

	records := make([]family.PersonRecord, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &records[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records[i].Payload = msg
	}
	return records, nil
}

func splitRecords(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("decode: empty input")
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return raw, nil
	}
	var f recordFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if f.People == nil {
		return nil, fmt.Errorf("decode: missing \"people\" array")
	}
	return f.People, nil
}

// ImportRecords reads the record file at path.
func ImportRecords(path string) ([]family.PersonRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadLayout decodes a layout written by WriteLayout.
func ReadLayout(r io.Reader) (*layout.Result, error) {
	var res layout.Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &res, nil
}

// ImportLayout reads the layout file at path.
func ImportLayout(path string) (*layout.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadLayout(f)
}
