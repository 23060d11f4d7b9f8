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
				Phase:  PhaseEncode,
				Kind:   KindOverflow,
				Packet: "LinkControl",
				Field:  "opcode",
				Detail: "value 300 exceeds maximum 255",
			},
			contains: []string{"[encode]", "overflow", "LinkControl.opcode", "300", "255"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindInsufficientInput,
			},
			contains: []string{"[decode]", "insufficient_input"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidInput,
				Detail: "bad snapshot",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "invalid_input", "bad snapshot", "caused by", "underlying error"},
		},
		{
			name: "field without packet",
			err: &Error{
				Phase: PhaseGenerate,
				Kind:  KindMisaligned,
				Field: "payload",
			},
			contains: []string{"[generate]", "misaligned", "at payload"},
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
		Phase: PhaseEncode,
		Kind:  KindInvalidInput,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	// Test with errors.Unwrap
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseEncode,
		Kind:   KindOverflow,
		Packet: "Foo",
	}

	// Same phase and kind
	if !err.Is(&Error{Phase: PhaseEncode, Kind: KindOverflow}) {
		t.Error("Is should match same phase and kind")
	}

	// Different phase
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindOverflow}) {
		t.Error("Is should not match different phase")
	}

	// Different kind
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindInvalidEnum}) {
		t.Error("Is should not match different kind")
	}

	// Test with errors.Is
	target := &Error{Phase: PhaseEncode, Kind: KindOverflow}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseGenerate, KindUnsupported).
		Packet("Ping").
		Field("tail").
		Value(uint64(42)).
		Cause(cause).
		Detail("cannot emit %s field", "padded").
		Build()

	if err.Phase != PhaseGenerate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseGenerate)
	}
	if err.Kind != KindUnsupported {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
	}
	if err.Packet != "Ping" || err.Field != "tail" {
		t.Errorf("Packet=%v Field=%v, want Ping tail", err.Packet, err.Field)
	}
	if err.Value != uint64(42) {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "cannot emit padded field" {
		t.Errorf("Detail = %v, want 'cannot emit padded field'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InsufficientInput", func(t *testing.T) {
		err := InsufficientInput("Ping", 6, 4)
		if err.Kind != KindInsufficientInput {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInsufficientInput)
		}
		if err.Phase != PhaseDecode {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
		}
		if !strings.Contains(err.Detail, "wanted 6 bytes, got 4") {
			t.Errorf("Detail = %v, should contain wanted/got", err.Detail)
		}
	})

	t.Run("ValueOverflow", func(t *testing.T) {
		err := ValueOverflow("Ping", "seq", 300, 255)
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != uint64(300) {
			t.Errorf("Value = %v, want 300", err.Value)
		}
		if err.Packet != "Ping" || err.Field != "seq" {
			t.Errorf("Packet=%v Field=%v", err.Packet, err.Field)
		}
	})

	t.Run("Misaligned", func(t *testing.T) {
		err := Misaligned("Ping", "body", "typedef field", 3)
		if err.Kind != KindMisaligned {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMisaligned)
		}
		if !strings.Contains(err.Detail, "octet boundary") {
			t.Errorf("Detail = %v, should mention octet boundary", err.Detail)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported("Ping", "payload", "shifted payload on little-endian packet")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("OpenChunk", func(t *testing.T) {
		err := OpenChunk("Ping", 5)
		if err.Kind != KindOpenChunk {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOpenChunk)
		}
		if !strings.Contains(err.Detail, "5 bits") {
			t.Errorf("Detail = %v, should contain bit count", err.Detail)
		}
	})

	t.Run("InvalidEnum", func(t *testing.T) {
		err := InvalidEnum("Ping", "status", 9)
		if err.Kind != KindInvalidEnum {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidEnum)
		}
		if err.Value != uint64(9) {
			t.Errorf("Value = %v, want 9", err.Value)
		}
	})

	t.Run("FieldMissing", func(t *testing.T) {
		err := FieldMissing("Ping", "seq")
		if err.Kind != KindFieldMissing {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldMissing)
		}
	})
}
