package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseInvoke,
				Kind:     KindInsufficientCapacity,
				Function: "double-text",
				Code:     -1,
				HasCode:  true,
				Detail:   "need 34 bytes",
			},
			contains: []string{"[invoke]", "insufficient_capacity", "double-text", "code -1", "need 34 bytes"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindSerializationFailure,
				Detail: "channel value",
				Cause:  errors.New("unsupported type"),
			},
			contains: []string{"[encode]", "serialization_failure", "channel value", "caused by", "unsupported type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInstantiation,
		Cause: cause,
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match the wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_Is(t *testing.T) {
	a := GuestFailure("double-text", -1, KindInsufficientCapacity)
	b := &Error{Phase: PhaseInvoke, Kind: KindInsufficientCapacity}
	c := &Error{Phase: PhaseInvoke, Kind: KindParseFailure}

	if !errors.Is(a, b) {
		t.Error("same phase and kind should match")
	}
	if errors.Is(a, c) {
		t.Error("different kind should not match")
	}
	if errors.Is(a, errors.New("plain")) {
		t.Error("plain error should not match")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseInvoke, KindUnknownCode).
		Function("transform").
		Code(-7).
		Detail("code %d unmapped", -7).
		Build()

	if err.Function != "transform" {
		t.Errorf("Function = %q", err.Function)
	}
	if err.Code != -7 || !err.HasCode {
		t.Errorf("Code = %d, HasCode = %v", err.Code, err.HasCode)
	}
	if err.Detail != "code -7 unmapped" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestEncodingMismatch_Preview(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = 0xff
	}
	err := EncodingMismatch(PhaseDecode, data)
	// Preview is capped at 32 bytes (64 hex chars).
	if strings.Count(err.Detail, "ff") > 32 {
		t.Errorf("preview too long: %q", err.Detail)
	}
}

func TestGuestFailure(t *testing.T) {
	err := GuestFailure("reverse-names", -2, KindSerializationFailure)
	msg := err.Error()
	for _, want := range []string{"reverse-names", "code -2", "serialization_failure"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
