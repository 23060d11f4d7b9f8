package schema

// Endian is the byte order of multi-byte integer fields. It applies per
// declaration; 8-bit quantities have no byte order.
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) String() string {
	if e == BigEndian {
		return "be"
	}
	return "le"
}

// DeclKind distinguishes the three declaration forms the backend consumes.
type DeclKind uint8

const (
	DeclPacket DeclKind = iota
	DeclStruct
	DeclEnum
)

var declNames = [...]string{
	DeclPacket: "packet",
	DeclStruct: "struct",
	DeclEnum:   "enum",
}

func (k DeclKind) String() string {
	if int(k) < len(declNames) {
		return declNames[k]
	}
	return "unknown"
}

// Tag is one declared enum member.
type Tag struct {
	ID    string
	Value uint64
}

// Field is one declared packet element. Order within a declaration is
// load-bearing: it defines the byte layout.
type Field struct {
	// ID is the field identifier; empty for reserved padding and fixed
	// fields, which bind no value.
	ID string
	// Kind selects the field form.
	Kind FieldKind
	// Width is the declared bit width when statically known. Zero for
	// payload/body, struct typedefs, and struct-element arrays.
	Width int
	// Value is the literal for fixed scalar fields.
	Value uint64
	// EnumID and TagID identify the declared tag for fixed enum fields.
	EnumID string
	TagID  string
	// TypeID references another declaration for typedef fields and for
	// array element types.
	TypeID string
	// FieldID names the sibling a size or count field derives from.
	FieldID string
	// Count is the declared element count for fixed-length arrays; zero
	// when the length is determined at runtime.
	Count int
}

// Decl is one resolved declaration: a packet, a struct, or an enum.
// All declarations are immutable once the schema snapshot is built.
type Decl struct {
	ID     string
	Kind   DeclKind
	Parent string
	Endian Endian
	// Width is the bit width of enum declarations.
	Width  int
	Tags   []Tag
	Fields []Field
}

// Tag returns the declared tag with the given identifier.
func (d *Decl) Tag(id string) (Tag, bool) {
	for _, t := range d.Tags {
		if t.ID == id {
			return t, true
		}
	}
	return Tag{}, false
}

// HasTagValue reports whether value names a declared tag of an enum.
func (d *Decl) HasTagValue(value uint64) bool {
	for _, t := range d.Tags {
		if t.Value == value {
			return true
		}
	}
	return false
}

// Field returns the field with the given identifier, or the payload/body
// field when id names one of the reserved payload identifiers.
func (d *Decl) Field(id string) (*Field, bool) {
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.ID == id {
			return f, true
		}
		if (f.Kind == KindPayload || f.Kind == KindBody) &&
			(id == "_payload_" || id == "_body_") {
			return f, true
		}
	}
	return nil, false
}

// Scope is the read-only view of a resolved schema snapshot. It is safe for
// concurrent use: nothing mutates it after construction.
type Scope struct {
	decls    map[string]*Decl
	order    []string
	children map[string][]*Decl
}

// NewScope indexes a set of declarations. Declaration order is preserved.
func NewScope(decls []*Decl) *Scope {
	s := &Scope{
		decls:    make(map[string]*Decl, len(decls)),
		children: make(map[string][]*Decl),
	}
	for _, d := range decls {
		s.decls[d.ID] = d
		s.order = append(s.order, d.ID)
	}
	for _, d := range decls {
		if d.Parent != "" {
			s.children[d.Parent] = append(s.children[d.Parent], d)
		}
	}
	return s
}

// Decl returns the declaration with the given identifier.
func (s *Scope) Decl(id string) (*Decl, bool) {
	d, ok := s.decls[id]
	return d, ok
}

// Decls returns all declarations in snapshot order.
func (s *Scope) Decls() []*Decl {
	out := make([]*Decl, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.decls[id])
	}
	return out
}

// Children returns the declared child set of a packet, in snapshot order.
func (s *Scope) Children(id string) []*Decl {
	return s.children[id]
}

// IsBitField reports whether a field participates in bit chunk accumulation.
// Typedef fields count when the referenced declaration is an enum.
func (s *Scope) IsBitField(f *Field) bool {
	if f.Kind.IsBitPackable() {
		return true
	}
	if f.Kind == KindTypedef {
		if d, ok := s.decls[f.TypeID]; ok {
			return d.Kind == DeclEnum
		}
	}
	return false
}

// FieldWidth resolves a field's static bit width. For enum-typed typedef
// fields the width comes from the enum declaration. The second return is
// false when the width is not statically known.
func (s *Scope) FieldWidth(f *Field) (int, bool) {
	switch f.Kind {
	case KindTypedef:
		if d, ok := s.decls[f.TypeID]; ok && d.Kind == DeclEnum {
			return d.Width, true
		}
		return 0, false
	case KindPayload, KindBody:
		return 0, false
	case KindArray:
		w, ok := s.ElementWidth(f)
		if ok && f.Count > 0 {
			return w * f.Count, true
		}
		return 0, false
	default:
		if f.Width > 0 {
			return f.Width, true
		}
		return 0, false
	}
}

// ElementWidth resolves the static bit width of one array element: the
// declared element width, or the referenced enum's width. False for
// struct-element arrays.
func (s *Scope) ElementWidth(f *Field) (int, bool) {
	if f.Width > 0 {
		return f.Width, true
	}
	if f.TypeID != "" {
		if d, ok := s.decls[f.TypeID]; ok && d.Kind == DeclEnum {
			return d.Width, true
		}
	}
	return 0, false
}
