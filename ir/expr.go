package ir

import "fmt"

// Expr is an encode-side value expression: how a field's wire value is
// obtained from the bound values before packing. The variant set is closed.
type Expr interface {
	expr()
	String() string
}

// FieldRef reads the value bound to a field identifier.
type FieldRef struct {
	Name string
}

// Literal is a compile-time constant, used for fixed scalar and fixed enum
// tag fields.
type Literal struct {
	Value uint64
}

// EnumCode converts the bound enum value of a field into its numeric code.
// Conversion failure surfaces at runtime; it never defaults.
type EnumCode struct {
	Name string
	Enum string
}

// ElemRef is the current element inside a per-element iteration over an
// array field. Enum is set when elements convert through an enum's code.
type ElemRef struct {
	Name string
	Enum string
}

// SizeMode selects how a size-of field derives its value from its sibling.
type SizeMode uint8

const (
	// SizeChild is the total serialized size of the bound child packet.
	SizeChild SizeMode = iota
	// SizeRaw is the byte length of an untyped payload.
	SizeRaw
	// SizeScaled is element count times a static element byte width.
	SizeScaled
	// SizeSum is the sum of each element's own serialized size.
	SizeSum
)

var sizeModeNames = [...]string{
	SizeChild:  "child",
	SizeRaw:    "raw",
	SizeScaled: "scaled",
	SizeSum:    "sum",
}

func (m SizeMode) String() string {
	if int(m) < len(sizeModeNames) {
		return sizeModeNames[m]
	}
	return "unknown"
}

// SizeOf derives the serialized byte size of the sibling field Name.
type SizeOf struct {
	Name  string
	Mode  SizeMode
	Scale int    // element byte width for SizeScaled
	Elem  string // element declaration for SizeSum
}

// CountOf derives the element count of the sibling array field Name.
type CountOf struct {
	Name string
}

func (FieldRef) expr() {}
func (Literal) expr()  {}
func (EnumCode) expr() {}
func (ElemRef) expr()  {}
func (SizeOf) expr()   {}
func (CountOf) expr()  {}

func (e FieldRef) String() string { return e.Name }
func (e Literal) String() string  { return fmt.Sprintf("%d", e.Value) }
func (e EnumCode) String() string { return fmt.Sprintf("code(%s:%s)", e.Enum, e.Name) }

func (e ElemRef) String() string {
	if e.Enum != "" {
		return fmt.Sprintf("elem(%s as %s)", e.Name, e.Enum)
	}
	return fmt.Sprintf("elem(%s)", e.Name)
}

func (e SizeOf) String() string {
	if e.Mode == SizeScaled && e.Scale > 1 {
		return fmt.Sprintf("size_of(%s)*%d", e.Name, e.Scale)
	}
	return fmt.Sprintf("size_of(%s, %s)", e.Name, e.Mode)
}

func (e CountOf) String() string { return fmt.Sprintf("count_of(%s)", e.Name) }

// Term is one or-combined member of a chunk write: the value expression,
// an optional widening cast to the chunk's storage width, and the bit shift
// placing it inside the chunk.
type Term struct {
	Expr  Expr
	Cast  int // chunk storage width when a cast is required, 0 otherwise
	Shift int
}

func (t Term) String() string {
	s := t.Expr.String()
	if t.Cast > 0 {
		s = fmt.Sprintf("(%s as u%d)", s, t.Cast)
	}
	if t.Shift > 0 {
		s = fmt.Sprintf("(%s << %d)", s, t.Shift)
	}
	return s
}
