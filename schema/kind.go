package schema

// FieldKind enumerates every field kind a resolved declaration may contain.
// The set is closed: the generator switches over it exhaustively and treats
// anything else as a schema defect.
type FieldKind uint8

const (
	KindScalar FieldKind = iota
	KindFixedScalar
	KindFixedEnum
	KindSize
	KindCount
	KindReserved
	KindArray
	KindTypedef
	KindPayload
	KindBody
)

var kindNames = [...]string{
	KindScalar:      "scalar",
	KindFixedScalar: "fixed_scalar",
	KindFixedEnum:   "fixed_enum",
	KindSize:        "size",
	KindCount:       "count",
	KindReserved:    "reserved",
	KindArray:       "array",
	KindTypedef:     "typedef",
	KindPayload:     "payload",
	KindBody:        "body",
}

func (k FieldKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsBitPackable reports whether a field of this kind can live inside a bit
// chunk. Typedef fields are bit-packable only when they reference an enum;
// that resolution needs a Scope, see Scope.IsBitField.
func (k FieldKind) IsBitPackable() bool {
	switch k {
	case KindScalar, KindFixedScalar, KindFixedEnum, KindSize, KindCount, KindReserved:
		return true
	default:
		return false
	}
}
