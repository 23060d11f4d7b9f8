package gen

import (
	"fmt"

	"github.com/wippyai/pdlgen/errors"
	"github.com/wippyai/pdlgen/gen/internal/width"
	"github.com/wippyai/pdlgen/ir"
	"github.com/wippyai/pdlgen/schema"
)

// A single bit-field value awaiting packing: the expression producing it,
// its declared and storage widths, and its offset inside the open chunk.
type bitFieldValue struct {
	expr    ir.Expr
	width   int
	storage int
	shift   int
}

// FieldEncoder is the inverse of FieldDecoder: it consumes one declaration's
// fields in order and accumulates the encode operation list, deriving size
// and count values and packing sub-byte fields into chunk writes.
type FieldEncoder struct {
	scope    *schema.Scope
	decl     *schema.Decl
	chunk    []bitFieldValue
	ops      []ir.Op
	shift    int
	finished bool
}

func NewFieldEncoder(scope *schema.Scope, decl *schema.Decl) *FieldEncoder {
	return &FieldEncoder{
		scope: scope,
		decl:  decl,
	}
}

// Add appends the encode operations for one field. Fields must arrive in
// declaration order.
func (e *FieldEncoder) Add(f *schema.Field) error {
	if e.finished {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Packet(e.decl.ID).
			Detail("add after finish").
			Build()
	}
	if e.scope.IsBitField(f) {
		return e.addBitField(f)
	}
	switch f.Kind {
	case schema.KindArray:
		return e.addArrayField(f)
	case schema.KindTypedef:
		return e.addTypedefField(f)
	case schema.KindPayload, schema.KindBody:
		return e.addPayloadField(f)
	default:
		return errors.Unsupported(e.decl.ID, f.ID,
			fmt.Sprintf("cannot encode %s field", f.Kind))
	}
}

func (e *FieldEncoder) addBitField(f *schema.Field) error {
	w, ok := e.scope.FieldWidth(f)
	if !ok {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(e.decl.ID).
			Field(f.ID).
			Detail("bit-packed field has no static width").
			Build()
	}
	storage := width.Resolve(w)

	switch f.Kind {
	case schema.KindScalar:
		if storage > w {
			e.ops = append(e.ops, ir.RangeCheck{
				Packet: e.decl.ID,
				Field:  f.ID,
				Value:  ir.FieldRef{Name: f.ID},
				Max:    width.Mask(w),
			})
		}
		e.push(ir.FieldRef{Name: f.ID}, w, storage)

	case schema.KindFixedScalar:
		e.push(ir.Literal{Value: f.Value}, w, storage)

	case schema.KindFixedEnum:
		enum, ok := e.scope.Decl(f.EnumID)
		if !ok || enum.Kind != schema.DeclEnum {
			return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
				Packet(e.decl.ID).
				Field(f.ID).
				Detail("fixed field references unknown enum %q", f.EnumID).
				Build()
		}
		tag, ok := enum.Tag(f.TagID)
		if !ok {
			return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
				Packet(e.decl.ID).
				Field(f.ID).
				Detail("enum %q has no tag %q", f.EnumID, f.TagID).
				Build()
		}
		e.push(ir.Literal{Value: tag.Value}, w, storage)

	case schema.KindTypedef:
		// Enum-typed scalar: the value is the enum's numeric code.
		// Conversion failure surfaces at runtime, never defaults.
		e.push(ir.EnumCode{Name: f.ID, Enum: f.TypeID}, w, storage)

	case schema.KindReserved:
		// Nothing to pack; the chunk write zero-fills the gap.

	case schema.KindSize:
		expr, err := sizeOfExpr(e.scope, e.decl, f)
		if err != nil {
			return err
		}
		e.ops = append(e.ops, ir.RangeCheck{
			Packet: e.decl.ID,
			Field:  f.FieldID,
			Value:  expr,
			Max:    width.Mask(w),
		})
		e.push(expr, w, storage)

	case schema.KindCount:
		expr := ir.CountOf{Name: targetName(e.decl, f.FieldID)}
		if storage > w {
			e.ops = append(e.ops, ir.RangeCheck{
				Packet: e.decl.ID,
				Field:  f.FieldID,
				Value:  expr,
				Max:    width.Mask(w),
			})
		}
		e.push(expr, w, storage)

	default:
		return errors.Unsupported(e.decl.ID, f.ID,
			fmt.Sprintf("cannot pack %s field", f.Kind))
	}

	e.shift += w
	if e.shift > 64 {
		return errors.Unsupported(e.decl.ID, f.ID,
			fmt.Sprintf("bit chunk of %d bits exceeds 64-bit storage", e.shift))
	}
	if e.shift%8 == 0 {
		e.packBitFields()
	}
	return nil
}

func (e *FieldEncoder) push(expr ir.Expr, w, storage int) {
	e.chunk = append(e.chunk, bitFieldValue{
		expr:    expr,
		width:   w,
		storage: storage,
		shift:   e.shift,
	})
}

// packBitFields closes the open chunk: casts each value to the chunk's
// storage width, shifts it to its offset, and emits one or-combined write.
func (e *FieldEncoder) packBitFields() {
	chunkStorage := width.Resolve(e.shift)

	if len(e.chunk) == 0 {
		// Only reserved fields: a run of zero bytes.
		e.ops = append(e.ops, ir.WriteZeroRun{Bytes: e.shift / 8})
		e.shift = 0
		return
	}

	terms := make([]ir.Term, 0, len(e.chunk))
	for _, v := range e.chunk {
		t := ir.Term{
			Expr: v.expr,
			// Earlier fields sit in the more significant bits.
			Shift: e.shift - v.shift - v.width,
		}
		if v.storage != chunkStorage {
			// Values are or-combined, so they are cast up first.
			t.Cast = chunkStorage
		}
		terms = append(terms, t)
	}

	e.ops = append(e.ops, ir.WriteInteger{
		Width:  e.shift,
		Endian: e.decl.Endian,
		Terms:  terms,
	})
	e.chunk = e.chunk[:0]
	e.shift = 0
}

func (e *FieldEncoder) requireAligned(f *schema.Field, what string) error {
	if e.shift == 0 {
		return nil
	}
	return errors.Misaligned(e.decl.ID, f.ID, what, e.shift)
}

func (e *FieldEncoder) addArrayField(f *schema.Field) error {
	if err := e.requireAligned(f, "array field"); err != nil {
		return err
	}

	if elemW, ok := e.scope.ElementWidth(f); ok {
		elem := ir.ElemRef{Name: f.ID}
		if f.Width == 0 {
			// Enum-typed elements convert through the enum's code.
			elem.Enum = f.TypeID
		}
		e.ops = append(e.ops, ir.WriteInteger{
			Width:  elemW,
			Endian: e.decl.Endian,
			Terms:  []ir.Term{{Expr: elem}},
			Each:   f.ID,
		})
		return nil
	}

	if f.TypeID == "" {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(e.decl.ID).
			Field(f.ID).
			Detail("array has neither element width nor element type").
			Build()
	}
	e.ops = append(e.ops, ir.DelegateWrite{
		Field: f.ID,
		Type:  f.TypeID,
		Each:  true,
	})
	return nil
}

func (e *FieldEncoder) addTypedefField(f *schema.Field) error {
	if err := e.requireAligned(f, "typedef field"); err != nil {
		return err
	}
	ref, ok := e.scope.Decl(f.TypeID)
	if !ok {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(e.decl.ID).
			Field(f.ID).
			Detail("typedef references unknown declaration %q", f.TypeID).
			Build()
	}
	if ref.Parent != "" {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(e.decl.ID).
			Field(f.ID).
			Detail("derived struct %q used in typedef field", f.TypeID).
			Build()
	}
	e.ops = append(e.ops, ir.DelegateWrite{Field: f.ID, Type: f.TypeID})
	return nil
}

func (e *FieldEncoder) addPayloadField(f *schema.Field) error {
	if e.shift != 0 {
		if e.decl.Endian == schema.BigEndian {
			return errors.Misaligned(e.decl.ID, f.ID, "payload field", e.shift)
		}
		// Left unimplemented upstream; rejected rather than inventing a
		// packing convention.
		return errors.Unsupported(e.decl.ID, f.ID,
			"shifted payload on little-endian packet")
	}

	id := payloadID(f)
	if e.decl.Kind == schema.DeclPacket {
		// Encoding writes whatever the payload value holds; the sibling
		// size field is derived from it, so no bound applies here.
		e.ops = append(e.ops, ir.Dispatch{
			Field:    id,
			Size:     ir.Size{Rest: true},
			Variants: dispatchVariants(e.scope, e.decl),
		})
		return nil
	}
	e.ops = append(e.ops, ir.WriteRaw{Src: ir.FieldRef{Name: id}})
	return nil
}

// Finish closes the encoder and returns the operation list. An open chunk is
// a schema-consistency defect: packets pack into whole bytes.
func (e *FieldEncoder) Finish() ([]ir.Op, error) {
	if e.finished {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Packet(e.decl.ID).
			Detail("finish called twice").
			Build()
	}
	e.finished = true
	if e.shift != 0 {
		return nil, errors.OpenChunk(e.decl.ID, e.shift)
	}
	return e.ops, nil
}
