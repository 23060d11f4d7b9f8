package gen

import (
	"fmt"

	"github.com/wippyai/pdlgen/errors"
	"github.com/wippyai/pdlgen/gen/internal/width"
	"github.com/wippyai/pdlgen/ir"
	"github.com/wippyai/pdlgen/schema"
)

// A single bit-field with its offset inside the open chunk.
type bitField struct {
	shift int
	field *schema.Field
}

// FieldDecoder consumes one declaration's fields in order and accumulates
// the decode operation list: bounds-checked reads plus shift/mask extraction
// for sub-byte fields.
type FieldDecoder struct {
	scope    *schema.Scope
	decl     *schema.Decl
	chunk    []bitField
	ops      []ir.Op
	shift    int
	offset   int
	chunks   int
	consts   int
	finished bool
}

func NewFieldDecoder(scope *schema.Scope, decl *schema.Decl) *FieldDecoder {
	return &FieldDecoder{
		scope: scope,
		decl:  decl,
	}
}

// Add appends the decode operations for one field. Fields must arrive in
// declaration order.
func (d *FieldDecoder) Add(f *schema.Field) error {
	if d.finished {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Packet(d.decl.ID).
			Detail("add after finish").
			Build()
	}
	if d.scope.IsBitField(f) {
		return d.addBitField(f)
	}
	switch f.Kind {
	case schema.KindArray:
		return d.addArrayField(f)
	case schema.KindTypedef:
		return d.addTypedefField(f)
	case schema.KindPayload, schema.KindBody:
		return d.addPayloadField(f)
	default:
		return errors.Unsupported(d.decl.ID, f.ID,
			fmt.Sprintf("cannot decode %s field", f.Kind))
	}
}

func (d *FieldDecoder) addBitField(f *schema.Field) error {
	w, ok := d.scope.FieldWidth(f)
	if !ok {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(d.decl.ID).
			Field(f.ID).
			Detail("bit-packed field has no static width").
			Build()
	}

	d.chunk = append(d.chunk, bitField{shift: d.shift, field: f})
	d.shift += w
	if d.shift > 64 {
		return errors.Unsupported(d.decl.ID, f.ID,
			fmt.Sprintf("bit chunk of %d bits exceeds 64-bit storage", d.shift))
	}
	if d.shift%8 != 0 {
		// Wait for more fields to close the chunk.
		return nil
	}

	size := d.shift / 8
	d.ops = append(d.ops, ir.BoundsCheck{
		Packet: d.decl.ID,
		Want:   ir.Size{Const: size},
	})

	chunkStorage := width.Resolve(d.shift)
	single := len(d.chunk) == 1

	src := ir.Binding(fmt.Sprintf("chunk%d", d.chunks))
	if single {
		// Single field: bind the read directly, no transient chunk.
		bf := d.chunk[0]
		dst, bound := d.fieldBinding(bf.field)
		switch bf.field.Kind {
		case schema.KindFixedScalar, schema.KindFixedEnum:
			d.ops = append(d.ops, ir.ReadInteger{
				Dst:     "_",
				Width:   d.shift,
				Endian:  d.decl.Endian,
				Scratch: true,
			})
			if err := d.bindFixed(bf.field); err != nil {
				return err
			}
		default:
			d.ops = append(d.ops, ir.ReadInteger{
				Dst:     dst,
				Width:   d.shift,
				Endian:  d.decl.Endian,
				Scratch: !bound,
			})
		}
	} else {
		d.chunks++
		d.ops = append(d.ops, ir.ReadInteger{
			Dst:     src,
			Width:   d.shift,
			Endian:  d.decl.Endian,
			Scratch: true,
		})
		for _, bf := range d.chunk {
			if bf.field.Kind == schema.KindReserved {
				continue
			}
			if bf.field.Kind == schema.KindFixedScalar || bf.field.Kind == schema.KindFixedEnum {
				if err := d.bindFixed(bf.field); err != nil {
					return err
				}
				continue
			}
			fw, _ := d.scope.FieldWidth(bf.field)
			storage := width.Resolve(fw)
			dst, _ := d.fieldBinding(bf.field)
			op := ir.ShiftMask{
				Dst: dst,
				Src: src,
				// Earlier fields sit in the more significant bits.
				Shift: size*8 - bf.shift - fw,
				Width: fw,
				// Mask only if the narrowing cast does not already
				// discard the upper bits.
				Mask: fw < storage,
			}
			if storage < chunkStorage {
				op.Narrow = storage
			}
			d.ops = append(d.ops, op)
		}
	}

	d.offset += size
	d.shift = 0
	d.chunk = d.chunk[:0]
	return nil
}

// fieldBinding names the value a bit-packed field binds, if any. Derived
// fields bind under their target's name so later operations can reference
// them.
func (d *FieldDecoder) fieldBinding(f *schema.Field) (ir.Binding, bool) {
	switch f.Kind {
	case schema.KindSize:
		return ir.Binding(targetName(d.decl, f.FieldID) + "_size"), true
	case schema.KindCount:
		return ir.Binding(targetName(d.decl, f.FieldID) + "_count"), true
	case schema.KindReserved:
		return "_", false
	default:
		return ir.Binding(f.ID), true
	}
}

// targetName normalizes a size/count reference: payload references resolve
// to the payload binding name regardless of the reserved identifier used.
func targetName(decl *schema.Decl, fieldID string) string {
	if target, ok := decl.Field(fieldID); ok {
		if target.Kind == schema.KindPayload || target.Kind == schema.KindBody {
			return payloadID(target)
		}
	}
	return fieldID
}

// bindFixed binds a fixed field's declared constant. The wire bits are known
// a priori, so no extraction is emitted.
func (d *FieldDecoder) bindFixed(f *schema.Field) error {
	value := f.Value
	if f.Kind == schema.KindFixedEnum {
		enum, ok := d.scope.Decl(f.EnumID)
		if !ok || enum.Kind != schema.DeclEnum {
			return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
				Packet(d.decl.ID).
				Field(f.ID).
				Detail("fixed field references unknown enum %q", f.EnumID).
				Build()
		}
		tag, ok := enum.Tag(f.TagID)
		if !ok {
			return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
				Packet(d.decl.ID).
				Field(f.ID).
				Detail("enum %q has no tag %q", f.EnumID, f.TagID).
				Build()
		}
		value = tag.Value
	}
	dst := ir.Binding(fmt.Sprintf("const%d", d.consts))
	d.consts++
	d.ops = append(d.ops, ir.BindLiteral{Dst: dst, Value: value})
	return nil
}

// requireAligned rejects non-bitfield constructs arriving before the open
// chunk has closed. The schema resolver guarantees alignment; a violation
// here is a consistency defect, not a runtime case.
func (d *FieldDecoder) requireAligned(f *schema.Field, what string) error {
	if d.shift == 0 {
		return nil
	}
	return errors.Misaligned(d.decl.ID, f.ID, what, d.shift)
}

func (d *FieldDecoder) addArrayField(f *schema.Field) error {
	if err := d.requireAligned(f, "array field"); err != nil {
		return err
	}

	count, sized := d.arrayCount(f)
	elemW, static := d.scope.ElementWidth(f)

	if static {
		elemBytes := width.Bytes(elemW)
		switch {
		case count.Const > 0:
			d.ops = append(d.ops, ir.BoundsCheck{
				Packet: d.decl.ID,
				Want:   ir.Size{Const: count.Const * elemBytes},
			})
		case count.From != "" && sized:
			d.ops = append(d.ops, ir.BoundsCheck{
				Packet: d.decl.ID,
				Want:   ir.Size{From: count.From},
			})
		case count.From != "":
			d.ops = append(d.ops, ir.BoundsCheck{
				Packet: d.decl.ID,
				Want:   ir.Size{From: count.From, Scale: elemBytes},
			})
		}
		d.ops = append(d.ops, ir.ReadInteger{
			Dst:    ir.Binding(f.ID),
			Width:  elemW,
			Endian: d.decl.Endian,
			Repeat: &count,
		})
		return nil
	}

	if f.TypeID == "" {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(d.decl.ID).
			Field(f.ID).
			Detail("array has neither element width nor element type").
			Build()
	}
	if count.From != "" && sized {
		d.ops = append(d.ops, ir.BoundsCheck{
			Packet: d.decl.ID,
			Want:   ir.Size{From: count.From},
		})
	}
	d.ops = append(d.ops, ir.DelegateRead{
		Dst:    ir.Binding(f.ID),
		Type:   f.TypeID,
		Repeat: &count,
	})
	return nil
}

// arrayCount resolves where an array's element count comes from: the
// declared length, a sibling count field, a sibling size field, or the rest
// of the input. The second return reports a size-field source, whose binding
// carries bytes rather than elements.
func (d *FieldDecoder) arrayCount(f *schema.Field) (ir.Count, bool) {
	if f.Count > 0 {
		return ir.Count{Const: f.Count}, false
	}
	for i := range d.decl.Fields {
		sib := &d.decl.Fields[i]
		if sib.FieldID != f.ID {
			continue
		}
		switch sib.Kind {
		case schema.KindCount:
			return ir.Count{From: ir.Binding(f.ID + "_count")}, false
		case schema.KindSize:
			src := ir.Binding(f.ID + "_size")
			if elemW, ok := d.scope.ElementWidth(f); ok {
				return ir.Count{From: src, ElemBytes: width.Bytes(elemW)}, true
			}
			return ir.Count{From: src, Bytes: true}, true
		}
	}
	return ir.Count{Rest: true}, false
}

func (d *FieldDecoder) addTypedefField(f *schema.Field) error {
	if err := d.requireAligned(f, "typedef field"); err != nil {
		return err
	}
	ref, ok := d.scope.Decl(f.TypeID)
	if !ok {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(d.decl.ID).
			Field(f.ID).
			Detail("typedef references unknown declaration %q", f.TypeID).
			Build()
	}
	if ref.Parent != "" {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(d.decl.ID).
			Field(f.ID).
			Detail("derived struct %q used in typedef field", f.TypeID).
			Build()
	}
	d.ops = append(d.ops, ir.DelegateRead{
		Dst:  ir.Binding(f.ID),
		Type: f.TypeID,
	})
	return nil
}

func (d *FieldDecoder) addPayloadField(f *schema.Field) error {
	if d.shift != 0 {
		if d.decl.Endian == schema.BigEndian {
			return errors.Misaligned(d.decl.ID, f.ID, "payload field", d.shift)
		}
		return errors.Unsupported(d.decl.ID, f.ID,
			"shifted payload on little-endian packet")
	}

	id := payloadID(f)
	size := ir.Size{Rest: true}
	if src, ok := d.payloadSizeBinding(f); ok {
		size = ir.Size{From: src}
		d.ops = append(d.ops, ir.BoundsCheck{Packet: d.decl.ID, Want: size})
	}

	if d.decl.Kind == schema.DeclPacket {
		d.ops = append(d.ops, ir.Dispatch{
			Field:    id,
			Size:     size,
			Variants: dispatchVariants(d.scope, d.decl),
		})
		return nil
	}
	d.ops = append(d.ops, ir.ReadRaw{Dst: ir.Binding(id), Size: size})
	return nil
}

// payloadSizeBinding finds the sibling size field constraining the payload,
// if one was declared.
func (d *FieldDecoder) payloadSizeBinding(f *schema.Field) (ir.Binding, bool) {
	for i := range d.decl.Fields {
		sib := &d.decl.Fields[i]
		if sib.Kind != schema.KindSize {
			continue
		}
		if sib.FieldID == f.ID || sib.FieldID == "_payload_" || sib.FieldID == "_body_" {
			return ir.Binding(payloadID(f) + "_size"), true
		}
	}
	return "", false
}

// Finish closes the decoder and returns the operation list. It is an error
// to finish with a chunk still open: the schema guarantees whole-byte
// packets.
func (d *FieldDecoder) Finish() ([]ir.Op, error) {
	if d.finished {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Packet(d.decl.ID).
			Detail("finish called twice").
			Build()
	}
	d.finished = true
	if d.shift != 0 {
		return nil, errors.OpenChunk(d.decl.ID, d.shift)
	}
	return d.ops, nil
}

// payloadID names the binding of a payload or body field.
func payloadID(f *schema.Field) string {
	if f.ID != "" {
		return f.ID
	}
	return "payload"
}

// dispatchVariants builds the closed alternative set of a packet's payload:
// every declared child, the raw fallback, and the explicit empty tail.
func dispatchVariants(scope *schema.Scope, decl *schema.Decl) []ir.Variant {
	children := scope.Children(decl.ID)
	variants := make([]ir.Variant, 0, len(children)+2)
	for _, c := range children {
		variants = append(variants, ir.Variant{Child: c.ID})
	}
	variants = append(variants, ir.Variant{Raw: true}, ir.Variant{None: true})
	return variants
}
