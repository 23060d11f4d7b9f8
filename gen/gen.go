// Package gen holds the bit-field accumulation engines: the decode-side
// field extractor and the encode-side field packer. Each consumes one
// declaration's fields in schema order and emits the ordered operation list
// realizing the declaration's exact bit layout.
package gen

import (
	"github.com/wippyai/pdlgen/errors"
	"github.com/wippyai/pdlgen/ir"
	"github.com/wippyai/pdlgen/schema"
)

// PacketOps is the finished output for one declaration: its decode and
// encode operation lists.
type PacketOps struct {
	Packet string
	Decode []ir.Op
	Encode []ir.Op
}

// Generator builds operation lists from a resolved schema snapshot. It holds
// no mutable state between packets; declarations may be generated in any
// order or in parallel.
type Generator struct {
	scope *schema.Scope
}

func NewGenerator(scope *schema.Scope) *Generator {
	return &Generator{scope: scope}
}

// Generate builds both operation lists for one packet or struct
// declaration. Each list covers the declaration's own ordered fields;
// parents reach children through payload dispatch delegation.
func (g *Generator) Generate(id string) (*PacketOps, error) {
	decl, ok := g.scope.Decl(id)
	if !ok {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Packet(id).
			Detail("unknown declaration").
			Build()
	}
	if decl.Kind == schema.DeclEnum {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Packet(id).
			Detail("enum declarations have no operation lists").
			Build()
	}

	dec := NewFieldDecoder(g.scope, decl)
	enc := NewFieldEncoder(g.scope, decl)
	for i := range decl.Fields {
		f := &decl.Fields[i]
		if err := dec.Add(f); err != nil {
			return nil, err
		}
		if err := enc.Add(f); err != nil {
			return nil, err
		}
	}

	decodeOps, err := dec.Finish()
	if err != nil {
		return nil, err
	}
	encodeOps, err := enc.Finish()
	if err != nil {
		return nil, err
	}

	debugf("generated %s: %d decode ops, %d encode ops",
		id, len(decodeOps), len(encodeOps))

	return &PacketOps{
		Packet: id,
		Decode: decodeOps,
		Encode: encodeOps,
	}, nil
}

// GenerateAll builds operation lists for every packet and struct in the
// snapshot, in snapshot order.
func (g *Generator) GenerateAll() ([]*PacketOps, error) {
	var out []*PacketOps
	for _, decl := range g.scope.Decls() {
		if decl.Kind == schema.DeclEnum {
			continue
		}
		ops, err := g.Generate(decl.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ops)
	}
	return out, nil
}
