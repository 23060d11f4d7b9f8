package ir

import (
	"fmt"
	"strings"

	"github.com/wippyai/pdlgen/schema"
)

// Binding names a value produced by a decode operation. Field bindings carry
// the field identifier; transient chunk reads use generated names.
type Binding string

// Size is a byte quantity: either a static constant, a runtime value read
// earlier (optionally scaled by a static factor), or the remainder of the
// input.
type Size struct {
	Const int
	From  Binding
	Scale int // multiplier on From, 0 means 1
	Rest  bool
}

func (s Size) String() string {
	switch {
	case s.Rest:
		return "rest"
	case s.From != "":
		if s.Scale > 1 {
			return fmt.Sprintf("%s*%d", s.From, s.Scale)
		}
		return string(s.From)
	default:
		return fmt.Sprintf("%d", s.Const)
	}
}

// Count is an element count for repeated reads: a static constant, a runtime
// count binding, a size binding divided by a static element byte width, a
// size binding consumed as a byte budget (variable-width elements), or until
// the input is exhausted.
type Count struct {
	Const     int
	From      Binding
	ElemBytes int  // when > 0, From is a byte size and count = From/ElemBytes
	Bytes     bool // when set, From is a byte budget to consume
	Rest      bool
}

func (c Count) String() string {
	switch {
	case c.Rest:
		return "rest"
	case c.From != "" && c.ElemBytes > 0:
		return fmt.Sprintf("%s/%d", c.From, c.ElemBytes)
	case c.From != "" && c.Bytes:
		return fmt.Sprintf("%s bytes", c.From)
	case c.From != "":
		return string(c.From)
	default:
		return fmt.Sprintf("%d", c.Const)
	}
}

// Op is one decode or encode operation. The variant set is closed; renderers
// switch over it exhaustively.
type Op interface {
	op()
	String() string
}

// BoundsCheck fails decoding with an insufficient-input condition when fewer
// than Want bytes remain.
type BoundsCheck struct {
	Packet string
	Want   Size
}

// ReadInteger reads Width bits as an unsigned integer in the declared byte
// order, binding the result to Dst. With Repeat set it reads one integer per
// element into an array binding. Scratch reads bind transient chunk values
// consumed by later ShiftMask operations (or nothing, for reserved-only
// chunks).
type ReadInteger struct {
	Dst     Binding
	Width   int
	Endian  schema.Endian
	Repeat  *Count
	Scratch bool
}

// BindLiteral binds a compile-time constant. Decoding a fixed field binds
// its declared value directly: the wire bits are known a priori.
type BindLiteral struct {
	Dst   Binding
	Value uint64
}

// ShiftMask extracts one field from a transient chunk binding: shift right
// by Shift, mask to Width bits when Mask is set, narrow to the Narrow
// storage width when Narrow is nonzero.
type ShiftMask struct {
	Dst    Binding
	Src    Binding
	Shift  int
	Width  int
	Mask   bool
	Narrow int
}

// RangeCheck fails encoding when the value expression exceeds Max.
type RangeCheck struct {
	Packet string
	Field  string
	Value  Expr
	Max    uint64
}

// WriteInteger writes Width bits in the declared byte order. The terms are
// or-combined. Each, when set, names an array field: one write is emitted
// per element, with ElemRef terms referring to the current element.
type WriteInteger struct {
	Width  int
	Endian schema.Endian
	Terms  []Term
	Each   string
}

// WriteZeroRun writes Bytes zero bytes; emitted for chunks holding only
// reserved fields.
type WriteZeroRun struct {
	Bytes int
}

// WriteRaw appends the raw bytes of the value expression.
type WriteRaw struct {
	Src Expr
}

// DelegateWrite invokes the referenced declaration's own write routine on
// the bound value of Field; per element when Each is set.
type DelegateWrite struct {
	Field string
	Type  string
	Each  bool
}

// ReadRaw binds Size raw bytes to Dst; used for untyped payload tails.
type ReadRaw struct {
	Dst  Binding
	Size Size
}

// DelegateRead invokes the referenced declaration's own read routine,
// binding the structured result to Dst; Repeat reads a sequence of elements.
type DelegateRead struct {
	Dst    Binding
	Type   string
	Repeat *Count
}

// Variant is one alternative of a payload dispatch: a declared child type,
// the untyped raw fallback, or the explicit empty alternative.
type Variant struct {
	Child string
	Raw   bool
	None  bool
}

func (v Variant) String() string {
	switch {
	case v.Raw:
		return "raw"
	case v.None:
		return "none"
	default:
		return v.Child
	}
}

// Dispatch encodes or decodes the packet's trailing payload by selecting
// among the declared child types plus the raw and none alternatives. No
// discriminant byte is written: parent fields alone distinguish children.
// Size bounds the payload when a sibling size field constrains it; a Rest
// size consumes the remainder.
type Dispatch struct {
	Field    string
	Size     Size
	Variants []Variant
}

func (BoundsCheck) op()   {}
func (ReadInteger) op()   {}
func (BindLiteral) op()   {}
func (ShiftMask) op()     {}
func (RangeCheck) op()    {}
func (WriteInteger) op()  {}
func (WriteZeroRun) op()  {}
func (WriteRaw) op()      {}
func (DelegateWrite) op() {}
func (ReadRaw) op()       {}
func (DelegateRead) op()  {}
func (Dispatch) op()      {}

func (o BoundsCheck) String() string {
	return fmt.Sprintf("bounds_check %s want=%s", o.Packet, o.Want)
}

func (o ReadInteger) String() string {
	s := fmt.Sprintf("read_integer u%d", o.Width)
	if o.Width > 8 {
		s += " " + o.Endian.String()
	}
	if o.Repeat != nil {
		s += fmt.Sprintf(" x%s", o.Repeat)
	}
	return fmt.Sprintf("%s -> %s", s, o.Dst)
}

func (o BindLiteral) String() string {
	return fmt.Sprintf("bind_literal %d -> %s", o.Value, o.Dst)
}

func (o ShiftMask) String() string {
	s := string(o.Src)
	if o.Shift > 0 {
		s = fmt.Sprintf("(%s >> %d)", s, o.Shift)
	}
	if o.Mask {
		s = fmt.Sprintf("(%s & 0x%x)", s, uint64(1)<<o.Width-1)
	}
	if o.Narrow > 0 {
		s = fmt.Sprintf("%s as u%d", s, o.Narrow)
	}
	return fmt.Sprintf("shift_mask %s -> %s", s, o.Dst)
}

func (o RangeCheck) String() string {
	return fmt.Sprintf("range_check %s.%s %s <= %d", o.Packet, o.Field, o.Value, o.Max)
}

func (o WriteInteger) String() string {
	terms := make([]string, len(o.Terms))
	for i, t := range o.Terms {
		terms[i] = t.String()
	}
	s := fmt.Sprintf("write_integer u%d", o.Width)
	if o.Width > 8 {
		s += " " + o.Endian.String()
	}
	if o.Each != "" {
		s += fmt.Sprintf(" each %s", o.Each)
	}
	return fmt.Sprintf("%s %s", s, strings.Join(terms, " | "))
}

func (o WriteZeroRun) String() string {
	return fmt.Sprintf("write_zero_run %d", o.Bytes)
}

func (o WriteRaw) String() string {
	return fmt.Sprintf("write_raw %s", o.Src)
}

func (o DelegateWrite) String() string {
	if o.Each {
		return fmt.Sprintf("delegate_write each %s: %s", o.Field, o.Type)
	}
	return fmt.Sprintf("delegate_write %s: %s", o.Field, o.Type)
}

func (o ReadRaw) String() string {
	return fmt.Sprintf("read_raw %s -> %s", o.Size, o.Dst)
}

func (o DelegateRead) String() string {
	s := fmt.Sprintf("delegate_read %s", o.Type)
	if o.Repeat != nil {
		s += fmt.Sprintf(" x%s", o.Repeat)
	}
	return fmt.Sprintf("%s -> %s", s, o.Dst)
}

func (o Dispatch) String() string {
	vs := make([]string, len(o.Variants))
	for i, v := range o.Variants {
		vs[i] = v.String()
	}
	return fmt.Sprintf("dispatch %s {%s}", o.Field, strings.Join(vs, ", "))
}
