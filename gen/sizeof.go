package gen

import (
	"github.com/wippyai/pdlgen/errors"
	"github.com/wippyai/pdlgen/gen/internal/width"
	"github.com/wippyai/pdlgen/ir"
	"github.com/wippyai/pdlgen/schema"
)

// sizeOfExpr is the size derivation decision table: how a size field obtains
// its value from the sibling it references, by sibling kind.
//
//	payload/body of a packet      -> total serialized size of the bound child
//	payload/body of a struct      -> raw byte count
//	array, static element width w -> element count * w/8
//	array, enum elements          -> element count * enum width / 8
//	array, struct elements        -> sum of each element's own size
//
// Anything else a size field points at is a schema defect.
func sizeOfExpr(scope *schema.Scope, decl *schema.Decl, f *schema.Field) (ir.Expr, error) {
	target, ok := decl.Field(f.FieldID)
	if !ok {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidSchema).
			Packet(decl.ID).
			Field(f.FieldID).
			Detail("size field references unknown sibling").
			Build()
	}

	switch target.Kind {
	case schema.KindPayload, schema.KindBody:
		mode := ir.SizeRaw
		if decl.Kind == schema.DeclPacket {
			mode = ir.SizeChild
		}
		return ir.SizeOf{Name: payloadID(target), Mode: mode}, nil

	case schema.KindArray:
		if elemW, ok := scope.ElementWidth(target); ok {
			return ir.SizeOf{
				Name:  target.ID,
				Mode:  ir.SizeScaled,
				Scale: width.Bytes(elemW),
			}, nil
		}
		return ir.SizeOf{Name: target.ID, Mode: ir.SizeSum, Elem: target.TypeID}, nil

	default:
		return nil, errors.Unsupported(decl.ID, f.FieldID,
			"size field must reference a payload, body, or array sibling")
	}
}
