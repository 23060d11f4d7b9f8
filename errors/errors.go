package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseGenerate Phase = "generate" // operation-list generation
	PhaseEncode   Phase = "encode"   // values to bytes
	PhaseDecode   Phase = "decode"   // bytes to values
	PhaseLoad     Phase = "load"     // schema snapshot loading
)

// Kind categorizes the error
type Kind string

const (
	KindMisaligned        Kind = "misaligned"
	KindUnsupported       Kind = "unsupported"
	KindOverflow          Kind = "overflow"
	KindInsufficientInput Kind = "insufficient_input"
	KindOpenChunk         Kind = "open_chunk"
	KindInvalidEnum       Kind = "invalid_enum"
	KindInvalidSchema     Kind = "invalid_schema"
	KindInvalidInput      Kind = "invalid_input"
	KindFieldMissing      Kind = "field_missing"
)

// Error is the structured error type used throughout the backend
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Packet string
	Field  string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Packet != "" {
		b.WriteString(" in ")
		b.WriteString(e.Packet)
		if e.Field != "" {
			b.WriteByte('.')
			b.WriteString(e.Field)
		}
	} else if e.Field != "" {
		b.WriteString(" at ")
		b.WriteString(e.Field)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Packet sets the packet declaration name
func (b *Builder) Packet(name string) *Builder {
	b.err.Packet = name
	return b
}

// Field sets the field identifier
func (b *Builder) Field(name string) *Builder {
	b.err.Field = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InsufficientInput creates a decode error for input shorter than wanted
func InsufficientInput(packet string, wanted, got int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInsufficientInput,
		Packet: packet,
		Detail: fmt.Sprintf("wanted %d bytes, got %d", wanted, got),
		Value:  got,
	}
}

// ValueOverflow creates an encode error for a value exceeding its field width
func ValueOverflow(packet, field string, value, max uint64) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindOverflow,
		Packet: packet,
		Field:  field,
		Detail: fmt.Sprintf("value %d exceeds maximum %d", value, max),
		Value:  value,
	}
}

// Misaligned creates a generation error for a construct that must begin on
// an octet boundary but arrived with bits still open in the current chunk
func Misaligned(packet, field, what string, shift int) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindMisaligned,
		Packet: packet,
		Field:  field,
		Detail: fmt.Sprintf("%s not on an octet boundary (%d bits open)", what, shift),
	}
}

// Unsupported creates a generation error for a field kind or variant the
// generator cannot emit
func Unsupported(packet, field, what string) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindUnsupported,
		Packet: packet,
		Field:  field,
		Detail: what,
	}
}

// OpenChunk creates a generation error for a finish with a non-byte-aligned
// chunk still open
func OpenChunk(packet string, shift int) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindOpenChunk,
		Packet: packet,
		Detail: fmt.Sprintf("packet ends with %d bits not forming a whole byte", shift),
	}
}

// InvalidEnum creates an encode error for an enum value with no declared tag
func InvalidEnum(packet, field string, value uint64) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindInvalidEnum,
		Packet: packet,
		Field:  field,
		Detail: fmt.Sprintf("no tag declared for value %d", value),
		Value:  value,
	}
}

// FieldMissing creates an encode error for a bound value the caller did not
// supply
func FieldMissing(packet, field string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindFieldMissing,
		Packet: packet,
		Field:  field,
		Detail: "no value bound for field",
	}
}
