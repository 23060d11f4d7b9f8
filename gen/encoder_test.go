package gen

import (
	"errors"
	"testing"

	pdlerrors "github.com/wippyai/pdlgen/errors"
	"github.com/wippyai/pdlgen/ir"
	"github.com/wippyai/pdlgen/schema"
)

func encodeOps(t *testing.T, scope *schema.Scope, decl *schema.Decl) []ir.Op {
	t.Helper()
	e := NewFieldEncoder(scope, decl)
	for i := range decl.Fields {
		if err := e.Add(&decl.Fields[i]); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	ops, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return ops
}

func TestFieldEncoder_MultiFieldChunk(t *testing.T) {
	decl := &schema.Decl{
		ID:     "Ping",
		Kind:   schema.DeclPacket,
		Endian: schema.BigEndian,
		Fields: []schema.Field{
			{ID: "a", Kind: schema.KindScalar, Width: 3},
			{ID: "b", Kind: schema.KindScalar, Width: 5},
			{ID: "c", Kind: schema.KindScalar, Width: 8},
		},
	}
	ops := encodeOps(t, declScope(decl), decl)

	if len(ops) != 4 {
		t.Fatalf("got %d ops: %v", len(ops), ops)
	}
	// Sub-storage scalars are range checked before packing.
	ra := ops[0].(ir.RangeCheck)
	if ra.Field != "a" || ra.Max != 0x7 {
		t.Errorf("ops[0] = %v, want range check a <= 7", ops[0])
	}
	rb := ops[1].(ir.RangeCheck)
	if rb.Field != "b" || rb.Max != 0x1f {
		t.Errorf("ops[1] = %v, want range check b <= 31", ops[1])
	}
	w := ops[2].(ir.WriteInteger)
	if w.Width != 8 || len(w.Terms) != 2 {
		t.Fatalf("ops[2] = %v, want two-term u8 write", ops[2])
	}
	// First declared field lands in the most significant bits.
	if w.Terms[0].Shift != 5 || w.Terms[1].Shift != 0 {
		t.Errorf("shifts = %d, %d, want 5, 0", w.Terms[0].Shift, w.Terms[1].Shift)
	}
	if w.Terms[0].Cast != 0 || w.Terms[1].Cast != 0 {
		t.Errorf("terms should not cast within same storage: %v", w.Terms)
	}
	// c fills its own byte: no range check, single term.
	wc := ops[3].(ir.WriteInteger)
	if len(wc.Terms) != 1 || wc.Terms[0].Shift != 0 {
		t.Errorf("ops[3] = %v, want plain u8 write of c", ops[3])
	}
}

func TestFieldEncoder_WideChunkCastsUp(t *testing.T) {
	decl := &schema.Decl{
		ID:     "Wide",
		Kind:   schema.DeclPacket,
		Endian: schema.BigEndian,
		Fields: []schema.Field{
			{ID: "hi", Kind: schema.KindScalar, Width: 8},
			{ID: "lo", Kind: schema.KindScalar, Width: 16},
		},
	}
	ops := encodeOps(t, declScope(decl), decl)

	// Both fields fill their storage: no range checks.
	if len(ops) != 1 {
		t.Fatalf("got %d ops: %v", len(ops), ops)
	}
	w := ops[0].(ir.WriteInteger)
	if w.Width != 24 {
		t.Errorf("width = %d, want 24", w.Width)
	}
	if w.Terms[0].Cast != 24 || w.Terms[0].Shift != 16 {
		t.Errorf("hi term = %+v, want cast to u24, shift 16", w.Terms[0])
	}
	if w.Terms[1].Cast != 24 || w.Terms[1].Shift != 0 {
		t.Errorf("lo term = %+v, want cast to u24, shift 0", w.Terms[1])
	}
}

func TestFieldEncoder_ReservedChunkWritesZeros(t *testing.T) {
	decl := &schema.Decl{
		ID:   "Pad",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{Kind: schema.KindReserved, Width: 16},
		},
	}
	ops := encodeOps(t, declScope(decl), decl)

	if len(ops) != 1 {
		t.Fatalf("got %d ops: %v", len(ops), ops)
	}
	if zr := ops[0].(ir.WriteZeroRun); zr.Bytes != 2 {
		t.Errorf("ops[0] = %v, want two zero bytes", ops[0])
	}
}

func TestFieldEncoder_ReservedGapInsideChunk(t *testing.T) {
	decl := &schema.Decl{
		ID:   "Gap",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{ID: "n", Kind: schema.KindScalar, Width: 3},
			{Kind: schema.KindReserved, Width: 5},
		},
	}
	ops := encodeOps(t, declScope(decl), decl)

	w := ops[len(ops)-1].(ir.WriteInteger)
	if len(w.Terms) != 1 || w.Terms[0].Shift != 5 {
		t.Errorf("write = %v, want single term shifted past the gap", w)
	}
}

func TestFieldEncoder_FixedFieldsPackLiterals(t *testing.T) {
	enum := &schema.Decl{
		ID:    "Op",
		Kind:  schema.DeclEnum,
		Width: 4,
		Tags:  []schema.Tag{{ID: "ack", Value: 3}},
	}
	decl := &schema.Decl{
		ID:   "Frame",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{Kind: schema.KindFixedScalar, Width: 4, Value: 9},
			{Kind: schema.KindFixedEnum, Width: 4, EnumID: "Op", TagID: "ack"},
		},
	}
	ops := encodeOps(t, declScope(enum, decl), decl)

	// Literals need no range check.
	if len(ops) != 1 {
		t.Fatalf("got %d ops: %v", len(ops), ops)
	}
	w := ops[0].(ir.WriteInteger)
	if lit := w.Terms[0].Expr.(ir.Literal); lit.Value != 9 {
		t.Errorf("terms[0] = %v, want literal 9", w.Terms[0])
	}
	if lit := w.Terms[1].Expr.(ir.Literal); lit.Value != 3 {
		t.Errorf("terms[1] = %v, want tag value 3", w.Terms[1])
	}
}

func TestFieldEncoder_EnumTypedefConverts(t *testing.T) {
	enum := &schema.Decl{
		ID:    "Status",
		Kind:  schema.DeclEnum,
		Width: 8,
		Tags:  []schema.Tag{{ID: "ok", Value: 0}},
	}
	decl := &schema.Decl{
		ID:   "Resp",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{ID: "status", Kind: schema.KindTypedef, TypeID: "Status"},
		},
	}
	ops := encodeOps(t, declScope(enum, decl), decl)

	w := ops[0].(ir.WriteInteger)
	ec := w.Terms[0].Expr.(ir.EnumCode)
	if ec.Name != "status" || ec.Enum != "Status" {
		t.Errorf("term = %v, want status through Status codes", w.Terms[0])
	}
}

func TestFieldEncoder_SizeDerivation(t *testing.T) {
	entry := &schema.Decl{
		ID:   "Entry",
		Kind: schema.DeclStruct,
		Fields: []schema.Field{
			{ID: "v", Kind: schema.KindScalar, Width: 8},
		},
	}

	tests := []struct {
		name string
		decl *schema.Decl
		want ir.SizeOf
	}{
		{
			name: "packet payload derives child size",
			decl: &schema.Decl{
				ID:   "Base",
				Kind: schema.DeclPacket,
				Fields: []schema.Field{
					{Kind: schema.KindSize, Width: 8, FieldID: "_payload_"},
					{Kind: schema.KindPayload},
				},
			},
			want: ir.SizeOf{Name: "payload", Mode: ir.SizeChild},
		},
		{
			name: "struct body derives raw length",
			decl: &schema.Decl{
				ID:   "Blob",
				Kind: schema.DeclStruct,
				Fields: []schema.Field{
					{Kind: schema.KindSize, Width: 8, FieldID: "_body_"},
					{Kind: schema.KindBody},
				},
			},
			want: ir.SizeOf{Name: "payload", Mode: ir.SizeRaw},
		},
		{
			name: "static array scales the count",
			decl: &schema.Decl{
				ID:   "Report",
				Kind: schema.DeclPacket,
				Fields: []schema.Field{
					{Kind: schema.KindSize, Width: 8, FieldID: "data"},
					{ID: "data", Kind: schema.KindArray, Width: 16},
				},
			},
			want: ir.SizeOf{Name: "data", Mode: ir.SizeScaled, Scale: 2},
		},
		{
			name: "struct array sums element sizes",
			decl: &schema.Decl{
				ID:   "Table",
				Kind: schema.DeclPacket,
				Fields: []schema.Field{
					{Kind: schema.KindSize, Width: 8, FieldID: "entries"},
					{ID: "entries", Kind: schema.KindArray, TypeID: "Entry"},
				},
			},
			want: ir.SizeOf{Name: "entries", Mode: ir.SizeSum, Elem: "Entry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := encodeOps(t, declScope(entry, tt.decl), tt.decl)

			// A size write is always preceded by its range check.
			rc, ok := ops[0].(ir.RangeCheck)
			if !ok || rc.Max != 0xff {
				t.Fatalf("ops[0] = %v, want range check against u8", ops[0])
			}
			w := ops[1].(ir.WriteInteger)
			got, ok := w.Terms[0].Expr.(ir.SizeOf)
			if !ok || got != tt.want {
				t.Errorf("size expr = %v, want %v", w.Terms[0].Expr, tt.want)
			}
		})
	}
}

func TestFieldEncoder_CountRangeCheckOnlyWhenNarrow(t *testing.T) {
	full := &schema.Decl{
		ID:   "Full",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{Kind: schema.KindCount, Width: 8, FieldID: "items"},
			{ID: "items", Kind: schema.KindArray, Width: 8},
		},
	}
	ops := encodeOps(t, declScope(full), full)
	if _, ok := ops[0].(ir.RangeCheck); ok {
		t.Errorf("full-width count should not range check: %v", ops[0])
	}

	narrow := &schema.Decl{
		ID:   "Narrow",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{Kind: schema.KindCount, Width: 4, FieldID: "items"},
			{Kind: schema.KindReserved, Width: 4},
			{ID: "items", Kind: schema.KindArray, Width: 8},
		},
	}
	ops = encodeOps(t, declScope(narrow), narrow)
	rc, ok := ops[0].(ir.RangeCheck)
	if !ok || rc.Max != 0xf {
		t.Errorf("ops[0] = %v, want range check count <= 15", ops[0])
	}
}

func TestFieldEncoder_StaticArrayWritesEachElement(t *testing.T) {
	decl := &schema.Decl{
		ID:     "List",
		Kind:   schema.DeclPacket,
		Endian: schema.LittleEndian,
		Fields: []schema.Field{
			{ID: "items", Kind: schema.KindArray, Width: 16},
		},
	}
	ops := encodeOps(t, declScope(decl), decl)

	w := ops[0].(ir.WriteInteger)
	if w.Each != "items" || w.Width != 16 || w.Endian != schema.LittleEndian {
		t.Fatalf("ops[0] = %v, want per-element le u16 write", ops[0])
	}
	if er := w.Terms[0].Expr.(ir.ElemRef); er.Name != "items" || er.Enum != "" {
		t.Errorf("term = %v, want plain element reference", w.Terms[0])
	}
}

func TestFieldEncoder_EnumArrayConvertsElements(t *testing.T) {
	enum := &schema.Decl{
		ID:    "Status",
		Kind:  schema.DeclEnum,
		Width: 8,
		Tags:  []schema.Tag{{ID: "ok", Value: 0}},
	}
	decl := &schema.Decl{
		ID:   "States",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{ID: "states", Kind: schema.KindArray, TypeID: "Status"},
		},
	}
	ops := encodeOps(t, declScope(enum, decl), decl)

	w := ops[0].(ir.WriteInteger)
	if er := w.Terms[0].Expr.(ir.ElemRef); er.Enum != "Status" {
		t.Errorf("term = %v, want elements through Status codes", w.Terms[0])
	}
}

func TestFieldEncoder_StructArrayDelegates(t *testing.T) {
	entry := &schema.Decl{
		ID:   "Entry",
		Kind: schema.DeclStruct,
		Fields: []schema.Field{
			{ID: "v", Kind: schema.KindScalar, Width: 8},
		},
	}
	decl := &schema.Decl{
		ID:   "Table",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{ID: "entries", Kind: schema.KindArray, TypeID: "Entry"},
		},
	}
	ops := encodeOps(t, declScope(entry, decl), decl)

	dw := ops[0].(ir.DelegateWrite)
	if dw.Field != "entries" || dw.Type != "Entry" || !dw.Each {
		t.Errorf("ops[0] = %v, want per-element Entry delegation", ops[0])
	}
}

func TestFieldEncoder_DerivedStructTypedefRejected(t *testing.T) {
	parent := &schema.Decl{ID: "BaseS", Kind: schema.DeclStruct}
	child := &schema.Decl{ID: "Derived", Kind: schema.DeclStruct, Parent: "BaseS"}
	decl := &schema.Decl{
		ID:   "Holder",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{ID: "d", Kind: schema.KindTypedef, TypeID: "Derived"},
		},
	}
	e := NewFieldEncoder(declScope(parent, child, decl), decl)
	err := e.Add(&decl.Fields[0])
	if !errors.Is(err, &pdlerrors.Error{Phase: pdlerrors.PhaseGenerate, Kind: pdlerrors.KindInvalidSchema}) {
		t.Fatalf("err = %v, want invalid_schema", err)
	}
}

func TestFieldEncoder_PayloadDispatch(t *testing.T) {
	parent := &schema.Decl{
		ID:   "Base",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{ID: "opcode", Kind: schema.KindScalar, Width: 8},
			{Kind: schema.KindPayload},
		},
	}
	child := &schema.Decl{ID: "A", Kind: schema.DeclPacket, Parent: "Base"}
	ops := encodeOps(t, declScope(parent, child), parent)

	disp := ops[len(ops)-1].(ir.Dispatch)
	if disp.Field != "payload" || len(disp.Variants) != 3 {
		t.Fatalf("dispatch = %v, want A, raw, none", disp)
	}
}

func TestFieldEncoder_StructBodyWritesRaw(t *testing.T) {
	decl := &schema.Decl{
		ID:   "Blob",
		Kind: schema.DeclStruct,
		Fields: []schema.Field{
			{Kind: schema.KindBody},
		},
	}
	ops := encodeOps(t, declScope(decl), decl)

	wr := ops[0].(ir.WriteRaw)
	if ref := wr.Src.(ir.FieldRef); ref.Name != "payload" {
		t.Errorf("ops[0] = %v, want raw write of payload", ops[0])
	}
}

func TestFieldEncoder_ShiftedPayload(t *testing.T) {
	build := func(endian schema.Endian) error {
		decl := &schema.Decl{
			ID:     "Shifted",
			Kind:   schema.DeclPacket,
			Endian: endian,
			Fields: []schema.Field{
				{ID: "n", Kind: schema.KindScalar, Width: 4},
				{Kind: schema.KindPayload},
			},
		}
		e := NewFieldEncoder(declScope(decl), decl)
		if err := e.Add(&decl.Fields[0]); err != nil {
			t.Fatal(err)
		}
		return e.Add(&decl.Fields[1])
	}

	if err := build(schema.BigEndian); !errors.Is(err, &pdlerrors.Error{Phase: pdlerrors.PhaseGenerate, Kind: pdlerrors.KindMisaligned}) {
		t.Errorf("big-endian err = %v, want misaligned", err)
	}
	if err := build(schema.LittleEndian); !errors.Is(err, &pdlerrors.Error{Phase: pdlerrors.PhaseGenerate, Kind: pdlerrors.KindUnsupported}) {
		t.Errorf("little-endian err = %v, want unsupported", err)
	}
}

func TestFieldEncoder_ChunkPast64Bits(t *testing.T) {
	decl := &schema.Decl{
		ID:   "Wide",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{ID: "a", Kind: schema.KindScalar, Width: 7},
			{ID: "b", Kind: schema.KindScalar, Width: 63},
		},
	}
	e := NewFieldEncoder(declScope(decl), decl)
	if err := e.Add(&decl.Fields[0]); err != nil {
		t.Fatal(err)
	}
	err := e.Add(&decl.Fields[1])
	if !errors.Is(err, &pdlerrors.Error{Phase: pdlerrors.PhaseGenerate, Kind: pdlerrors.KindUnsupported}) {
		t.Fatalf("err = %v, want unsupported", err)
	}
}

func TestFieldEncoder_OpenChunkAtFinish(t *testing.T) {
	decl := &schema.Decl{
		ID:   "Ragged",
		Kind: schema.DeclPacket,
		Fields: []schema.Field{
			{ID: "n", Kind: schema.KindScalar, Width: 5},
		},
	}
	e := NewFieldEncoder(declScope(decl), decl)
	if err := e.Add(&decl.Fields[0]); err != nil {
		t.Fatal(err)
	}
	_, err := e.Finish()
	if !errors.Is(err, &pdlerrors.Error{Phase: pdlerrors.PhaseGenerate, Kind: pdlerrors.KindOpenChunk}) {
		t.Fatalf("err = %v, want open_chunk", err)
	}
}

func TestFieldEncoder_FinishTwice(t *testing.T) {
	decl := &schema.Decl{ID: "Empty", Kind: schema.DeclPacket}
	e := NewFieldEncoder(declScope(decl), decl)
	if _, err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Finish(); err == nil {
		t.Fatal("second finish should fail")
	}
}
