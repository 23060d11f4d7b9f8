package interp

import (
	"encoding/binary"

	"github.com/wippyai/pdlgen/errors"
	"github.com/wippyai/pdlgen/ir"
	"github.com/wippyai/pdlgen/schema"
)

// reader is a cursor over the input; delegated reads share it.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) take(n int) []byte {
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Runtime) decodeDecl(id string, rd *reader) (Values, error) {
	ops, err := r.opsFor(id)
	if err != nil {
		return nil, err
	}
	decl, _ := r.scope.Decl(id)

	env := make(map[ir.Binding]uint64)
	out := Values{}
	for _, op := range ops.Decode {
		if err := r.execDecode(decl, op, env, out, rd); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Runtime) execDecode(decl *schema.Decl, op ir.Op, env map[ir.Binding]uint64, out Values, rd *reader) error {
	switch o := op.(type) {
	case ir.BoundsCheck:
		want, err := byteSize(decl, o.Want, env, rd)
		if err != nil {
			return err
		}
		if want > rd.remaining() {
			return errors.InsufficientInput(o.Packet, want, rd.remaining())
		}
		return nil

	case ir.ReadInteger:
		return r.readInteger(decl, o, env, out, rd)

	case ir.BindLiteral:
		env[o.Dst] = o.Value
		return nil

	case ir.ShiftMask:
		val, ok := env[o.Src]
		if !ok {
			return unbound(decl, o.Src)
		}
		val >>= o.Shift
		if o.Mask {
			val &= mask(o.Width)
		}
		if o.Narrow > 0 {
			val &= mask(o.Narrow)
		}
		env[o.Dst] = val
		out[string(o.Dst)] = val
		return nil

	case ir.ReadRaw:
		n := rd.remaining()
		if !o.Size.Rest {
			var err error
			n, err = byteSize(decl, o.Size, env, rd)
			if err != nil {
				return err
			}
			if n > rd.remaining() {
				return errors.InsufficientInput(decl.ID, n, rd.remaining())
			}
		}
		raw := make([]byte, n)
		copy(raw, rd.take(n))
		out[string(o.Dst)] = raw
		return nil

	case ir.DelegateRead:
		return r.delegateRead(decl, o, env, out, rd)

	case ir.Dispatch:
		// Child selection is decided by the parent's constant fields in
		// rendered code; the reference interpreter surfaces the raw
		// alternative, bounded by the size binding when one exists.
		n := rd.remaining()
		if !o.Size.Rest {
			var err error
			n, err = byteSize(decl, o.Size, env, rd)
			if err != nil {
				return err
			}
			if n > rd.remaining() {
				return errors.InsufficientInput(decl.ID, n, rd.remaining())
			}
		}
		raw := make([]byte, n)
		copy(raw, rd.take(n))
		out[o.Field] = raw
		return nil

	default:
		return errors.New(errors.PhaseDecode, errors.KindUnsupported).
			Packet(decl.ID).
			Detail("unexpected operation %T in decode list", op).
			Build()
	}
}

func (r *Runtime) readInteger(decl *schema.Decl, o ir.ReadInteger, env map[ir.Binding]uint64, out Values, rd *reader) error {
	n := o.Width / 8

	if o.Repeat == nil {
		if n > rd.remaining() {
			return errors.InsufficientInput(decl.ID, n, rd.remaining())
		}
		val := readUint(rd.take(n), o.Endian)
		env[o.Dst] = val
		if !o.Scratch && o.Dst != "_" {
			out[string(o.Dst)] = val
		}
		return nil
	}

	count, err := resolveCount(decl, *o.Repeat, env, rd, n)
	if err != nil {
		return err
	}
	if count*n > rd.remaining() {
		return errors.InsufficientInput(decl.ID, count*n, rd.remaining())
	}
	elems := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		elems = append(elems, readUint(rd.take(n), o.Endian))
	}
	out[string(o.Dst)] = elems
	return nil
}

func (r *Runtime) delegateRead(decl *schema.Decl, o ir.DelegateRead, env map[ir.Binding]uint64, out Values, rd *reader) error {
	if o.Repeat == nil {
		sub, err := r.decodeDecl(o.Type, rd)
		if err != nil {
			return err
		}
		out[string(o.Dst)] = sub
		return nil
	}

	var elems []Values
	switch {
	case o.Repeat.Bytes:
		budget, ok := env[o.Repeat.From]
		if !ok {
			return unbound(decl, o.Repeat.From)
		}
		if int(budget) > rd.remaining() {
			return errors.InsufficientInput(decl.ID, int(budget), rd.remaining())
		}
		stop := rd.pos + int(budget)
		for rd.pos < stop {
			sub, err := r.decodeDecl(o.Type, rd)
			if err != nil {
				return err
			}
			elems = append(elems, sub)
		}
	case o.Repeat.Rest:
		for rd.remaining() > 0 {
			sub, err := r.decodeDecl(o.Type, rd)
			if err != nil {
				return err
			}
			elems = append(elems, sub)
		}
	default:
		count, err := resolveCount(decl, *o.Repeat, env, rd, 0)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			sub, err := r.decodeDecl(o.Type, rd)
			if err != nil {
				return err
			}
			elems = append(elems, sub)
		}
	}
	out[string(o.Dst)] = elems
	return nil
}

func resolveCount(decl *schema.Decl, c ir.Count, env map[ir.Binding]uint64, rd *reader, elemBytes int) (int, error) {
	switch {
	case c.Rest:
		if elemBytes == 0 {
			return 0, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
				Packet(decl.ID).
				Detail("open-ended count without element width").
				Build()
		}
		return rd.remaining() / elemBytes, nil
	case c.From != "" && c.ElemBytes > 0:
		size, ok := env[c.From]
		if !ok {
			return 0, unbound(decl, c.From)
		}
		return int(size) / c.ElemBytes, nil
	case c.From != "":
		count, ok := env[c.From]
		if !ok {
			return 0, unbound(decl, c.From)
		}
		return int(count), nil
	default:
		return c.Const, nil
	}
}

func byteSize(decl *schema.Decl, s ir.Size, env map[ir.Binding]uint64, rd *reader) (int, error) {
	switch {
	case s.Rest:
		return rd.remaining(), nil
	case s.From != "":
		val, ok := env[s.From]
		if !ok {
			return 0, unbound(decl, s.From)
		}
		scale := s.Scale
		if scale == 0 {
			scale = 1
		}
		return int(val) * scale, nil
	default:
		return s.Const, nil
	}
}

func unbound(decl *schema.Decl, b ir.Binding) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidInput).
		Packet(decl.ID).
		Detail("reference to unbound value %q", string(b)).
		Build()
}

// readUint folds width/8 bytes into an unsigned integer in the given byte
// order.
func readUint(b []byte, endian schema.Endian) uint64 {
	var tmp [8]byte
	if endian == schema.BigEndian {
		copy(tmp[8-len(b):], b)
		return binary.BigEndian.Uint64(tmp[:])
	}
	copy(tmp[:], b)
	return binary.LittleEndian.Uint64(tmp[:])
}
