package interp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/wippyai/pdlgen/errors"
	"github.com/wippyai/pdlgen/ir"
	"github.com/wippyai/pdlgen/schema"
)

func (r *Runtime) encodeDecl(id string, v Values, buf *bytes.Buffer) error {
	ops, err := r.opsFor(id)
	if err != nil {
		return err
	}
	decl, _ := r.scope.Decl(id)
	for _, op := range ops.Encode {
		if err := r.execEncode(decl, op, v, buf); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) execEncode(decl *schema.Decl, op ir.Op, v Values, buf *bytes.Buffer) error {
	switch o := op.(type) {
	case ir.RangeCheck:
		val, err := r.evalUint(decl, o.Value, v)
		if err != nil {
			return err
		}
		if val > o.Max {
			return errors.ValueOverflow(o.Packet, o.Field, val, o.Max)
		}
		return nil

	case ir.WriteInteger:
		if o.Each != "" {
			return r.writeEach(decl, o, v, buf)
		}
		var val uint64
		for _, t := range o.Terms {
			tv, err := r.evalUint(decl, t.Expr, v)
			if err != nil {
				return err
			}
			if t.Cast > 0 {
				tv &= mask(t.Cast)
			}
			val |= tv << t.Shift
		}
		writeUint(buf, val, o.Width, o.Endian)
		return nil

	case ir.WriteZeroRun:
		buf.Write(make([]byte, o.Bytes))
		return nil

	case ir.WriteRaw:
		raw, err := r.rawBytes(decl, o.Src, v)
		if err != nil {
			return err
		}
		buf.Write(raw)
		return nil

	case ir.DelegateWrite:
		bound, ok := v[o.Field]
		if !ok {
			return errors.FieldMissing(decl.ID, o.Field)
		}
		if o.Each {
			elems, ok := bound.([]Values)
			if !ok {
				return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
					Packet(decl.ID).
					Field(o.Field).
					Detail("expected []Values, got %T", bound).
					Build()
			}
			for _, elem := range elems {
				if err := r.encodeDecl(o.Type, elem, buf); err != nil {
					return err
				}
			}
			return nil
		}
		sub, ok := bound.(Values)
		if !ok {
			return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Packet(decl.ID).
				Field(o.Field).
				Detail("expected Values, got %T", bound).
				Build()
		}
		return r.encodeDecl(o.Type, sub, buf)

	case ir.Dispatch:
		return r.execDispatch(decl, o, v, buf)

	default:
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Packet(decl.ID).
			Detail("unexpected operation %T in encode list", op).
			Build()
	}
}

func (r *Runtime) writeEach(decl *schema.Decl, o ir.WriteInteger, v Values, buf *bytes.Buffer) error {
	bound, ok := v[o.Each]
	if !ok {
		return errors.FieldMissing(decl.ID, o.Each)
	}
	elems, err := uintSlice(bound)
	if err != nil {
		return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Packet(decl.ID).
			Field(o.Each).
			Cause(err).
			Build()
	}
	var enum *schema.Decl
	if len(o.Terms) == 1 {
		if el, ok := o.Terms[0].Expr.(ir.ElemRef); ok && el.Enum != "" {
			enum, _ = r.scope.Decl(el.Enum)
		}
	}
	for _, elem := range elems {
		if enum != nil && !enum.HasTagValue(elem) {
			return errors.InvalidEnum(decl.ID, o.Each, elem)
		}
		writeUint(buf, elem, o.Width, o.Endian)
	}
	return nil
}

func (r *Runtime) execDispatch(decl *schema.Decl, o ir.Dispatch, v Values, buf *bytes.Buffer) error {
	bound, ok := v[o.Field]
	if !ok || bound == nil {
		// Explicit empty alternative.
		return nil
	}
	switch pv := bound.(type) {
	case Child:
		for _, variant := range o.Variants {
			if variant.Child == pv.Type {
				return r.encodeDecl(pv.Type, pv.Values, buf)
			}
		}
		return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Packet(decl.ID).
			Field(o.Field).
			Detail("%q is not a declared child", pv.Type).
			Build()
	case []byte:
		buf.Write(pv)
		return nil
	default:
		return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Packet(decl.ID).
			Field(o.Field).
			Detail("expected Child or []byte, got %T", bound).
			Build()
	}
}

func (r *Runtime) evalUint(decl *schema.Decl, expr ir.Expr, v Values) (uint64, error) {
	switch e := expr.(type) {
	case ir.Literal:
		return e.Value, nil

	case ir.FieldRef:
		bound, ok := v[e.Name]
		if !ok {
			return 0, errors.FieldMissing(decl.ID, e.Name)
		}
		val, ok := toUint64(bound)
		if !ok {
			return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Packet(decl.ID).
				Field(e.Name).
				Detail("expected unsigned integer, got %T", bound).
				Build()
		}
		return val, nil

	case ir.EnumCode:
		bound, ok := v[e.Name]
		if !ok {
			return 0, errors.FieldMissing(decl.ID, e.Name)
		}
		code, ok := toUint64(bound)
		if !ok {
			return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Packet(decl.ID).
				Field(e.Name).
				Detail("expected enum code, got %T", bound).
				Build()
		}
		enum, ok := r.scope.Decl(e.Enum)
		if !ok || !enum.HasTagValue(code) {
			return 0, errors.InvalidEnum(decl.ID, e.Name, code)
		}
		return code, nil

	case ir.CountOf:
		n, err := r.countOf(decl, e.Name, v)
		return uint64(n), err

	case ir.SizeOf:
		n, err := r.sizeOf(decl, e, v)
		return uint64(n), err

	default:
		return 0, errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Packet(decl.ID).
			Detail("unexpected value expression %T", expr).
			Build()
	}
}

func (r *Runtime) countOf(decl *schema.Decl, field string, v Values) (int, error) {
	bound, ok := v[field]
	if !ok {
		return 0, errors.FieldMissing(decl.ID, field)
	}
	switch b := bound.(type) {
	case []uint64:
		return len(b), nil
	case []Values:
		return len(b), nil
	case []byte:
		return len(b), nil
	case []any:
		return len(b), nil
	default:
		return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Packet(decl.ID).
			Field(field).
			Detail("expected sequence, got %T", bound).
			Build()
	}
}

// sizeOf computes a size field's derived value from its sibling, following
// the generation-time decision table.
func (r *Runtime) sizeOf(decl *schema.Decl, e ir.SizeOf, v Values) (int, error) {
	switch e.Mode {
	case ir.SizeChild:
		bound, ok := v[e.Name]
		if !ok || bound == nil {
			return 0, nil
		}
		switch pv := bound.(type) {
		case Child:
			var tmp bytes.Buffer
			if err := r.encodeDecl(pv.Type, pv.Values, &tmp); err != nil {
				return 0, err
			}
			return tmp.Len(), nil
		case []byte:
			return len(pv), nil
		default:
			return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Packet(decl.ID).
				Field(e.Name).
				Detail("expected Child or []byte, got %T", bound).
				Build()
		}

	case ir.SizeRaw:
		bound, ok := v[e.Name]
		if !ok || bound == nil {
			return 0, nil
		}
		raw, ok := bound.([]byte)
		if !ok {
			return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Packet(decl.ID).
				Field(e.Name).
				Detail("expected []byte, got %T", bound).
				Build()
		}
		return len(raw), nil

	case ir.SizeScaled:
		n, err := r.countOf(decl, e.Name, v)
		if err != nil {
			return 0, err
		}
		scale := e.Scale
		if scale == 0 {
			scale = 1
		}
		return n * scale, nil

	case ir.SizeSum:
		bound, ok := v[e.Name]
		if !ok {
			return 0, errors.FieldMissing(decl.ID, e.Name)
		}
		elems, ok := bound.([]Values)
		if !ok {
			return 0, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Packet(decl.ID).
				Field(e.Name).
				Detail("expected []Values, got %T", bound).
				Build()
		}
		var total int
		for _, elem := range elems {
			var tmp bytes.Buffer
			if err := r.encodeDecl(e.Elem, elem, &tmp); err != nil {
				return 0, err
			}
			total += tmp.Len()
		}
		return total, nil

	default:
		return 0, errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Packet(decl.ID).
			Detail("unknown size mode %d", e.Mode).
			Build()
	}
}

func (r *Runtime) rawBytes(decl *schema.Decl, expr ir.Expr, v Values) ([]byte, error) {
	ref, ok := expr.(ir.FieldRef)
	if !ok {
		return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Packet(decl.ID).
			Detail("unexpected raw source %T", expr).
			Build()
	}
	bound, ok := v[ref.Name]
	if !ok || bound == nil {
		return nil, nil
	}
	raw, ok := bound.([]byte)
	if !ok {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Packet(decl.ID).
			Field(ref.Name).
			Detail("expected []byte, got %T", bound).
			Build()
	}
	return raw, nil
}

func uintSlice(bound any) ([]uint64, error) {
	switch b := bound.(type) {
	case []uint64:
		return b, nil
	case []any:
		out := make([]uint64, len(b))
		for i, e := range b {
			val, ok := toUint64(e)
			if !ok {
				return nil, fmt.Errorf("element %d: expected unsigned integer, got %T", i, e)
			}
			out[i] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected []uint64, got %T", bound)
	}
}

func mask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<bits - 1
}

// writeUint appends width/8 bytes of val in the given byte order.
func writeUint(buf *bytes.Buffer, val uint64, width int, endian schema.Endian) {
	n := width / 8
	var tmp [8]byte
	if endian == schema.BigEndian {
		binary.BigEndian.PutUint64(tmp[:], val)
		buf.Write(tmp[8-n:])
	} else {
		binary.LittleEndian.PutUint64(tmp[:], val)
		buf.Write(tmp[:n])
	}
}
