package errors

import (
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "records.json", false},
		{"absolute", "/tmp/out/layout.json", false},
		{"nested", "data/family/records.json", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 5000), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) code = %v", tt.input, GetCode(err))
			}
		})
	}
}

func TestValidatePhotoURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://img.example/a.jpg", false},
		{"http with query", "http://img.example/a.jpg?w=128", false},

		{"empty", "", true},
		{"ftp", "ftp://img.example/a.jpg", true},
		{"relative", "/a.jpg", true},
		{"no host", "https:///a.jpg", true},
		{"control char", "https://img.example/\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhotoURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePhotoURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	if err := ValidateSessionID("3f2b8c1e-6a4d-4e8f-9b2a-1c0d5e7f9a3b"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	for _, id := range []string{"", "abc", "../etc/passwd"} {
		if err := ValidateSessionID(id); err == nil {
			t.Errorf("ValidateSessionID(%q) accepted", id)
		}
	}
}

func TestValidateFormat(t *testing.T) {
	if err := ValidateFormat("svg", "svg", "json"); err != nil {
		t.Errorf("svg rejected: %v", err)
	}
	err := ValidateFormat("pdf", "svg", "json")
	if !Is(err, ErrCodeInvalidFormat) {
		t.Errorf("ValidateFormat(pdf) = %v", err)
	}
}
