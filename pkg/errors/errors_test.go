package errors

import (
	"errors"
	"fmt"
	"testing"
)

var errTwoRoots = errors.New("multiple root records")

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare",
			err:  New(ErrCodeNotReady, "no layout published yet"),
			want: "NOT_READY: no layout published yet",
		},
		{
			name: "formatted",
			err:  New(ErrCodeNodeNotFound, "node %d not in layout", 42),
			want: "NODE_NOT_FOUND: node 42 not in layout",
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeInvalidRecords, errTwoRoots, "rebuild"),
			want: "INVALID_RECORDS: rebuild: multiple root records",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsSentinel(t *testing.T) {
	// Family validation errors travel up wrapped twice: once by the engine,
	// once with fmt context by the CLI.
	err := fmt.Errorf("load records: %w", Wrap(ErrCodeInvalidRecords, errTwoRoots, "rebuild"))

	if !errors.Is(err, errTwoRoots) {
		t.Error("sentinel lost through Wrap")
	}
	if !Is(err, ErrCodeInvalidRecords) {
		t.Error("code lost through fmt.Errorf")
	}
	if got := GetCode(err); got != ErrCodeInvalidRecords {
		t.Errorf("GetCode() = %q", got)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"same code", New(ErrCodeSessionNotFound, "expired"), ErrCodeSessionNotFound, true},
		{"other code", New(ErrCodeSessionNotFound, "expired"), ErrCodeNodeNotFound, false},
		{"outermost code wins", Wrap(ErrCodeTimeout, New(ErrCodeNetwork, "dial"), "prefetch"), ErrCodeTimeout, true},
		{"inner code hidden", Wrap(ErrCodeTimeout, New(ErrCodeNetwork, "dial"), "prefetch"), ErrCodeNetwork, false},
		{"plain error", errTwoRoots, ErrCodeInvalidRecords, false},
		{"nil", nil, ErrCodeNotReady, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is(%v, %s) = %v, want %v", tt.err, tt.code, got, tt.want)
			}
		})
	}
}

func TestGetCodeUncoded(t *testing.T) {
	for _, err := range []error{nil, errTwoRoots, fmt.Errorf("frame: %w", errTwoRoots)} {
		if got := GetCode(err); got != "" {
			t.Errorf("GetCode(%v) = %q, want empty", err, got)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded", New(ErrCodeInvalidGesture, `unknown gesture "swipe"`), `unknown gesture "swipe"`},
		{"coded with cause", Wrap(ErrCodeInvalidRecords, errTwoRoots, "family.json"), "family.json: multiple root records"},
		{"plain", errTwoRoots, "multiple root records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{ErrCodeInvalidInput, 400},
		{ErrCodeInvalidRecords, 400},
		{ErrCodeInvalidConfig, 400},
		{ErrCodeInvalidGesture, 400},
		{ErrCodeInvalidFormat, 400},
		{ErrCodeInvalidPath, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeNodeNotFound, 404},
		{ErrCodeSessionNotFound, 404},
		{ErrCodeNotReady, 503},
		{ErrCodeTimeout, 504},
		{ErrCodeNetwork, 502},
		{ErrCodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := HTTPStatus(New(tt.code, "x")); got != tt.want {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.want)
			}
		})
	}
	if got := HTTPStatus(errTwoRoots); got != 500 {
		t.Errorf("HTTPStatus(uncoded) = %d, want 500", got)
	}
}
