package interp

import (
	"bytes"
	"sync"

	"github.com/wippyai/pdlgen/gen"
	"github.com/wippyai/pdlgen/schema"
)

// Values holds the bound values of one declaration, keyed by field
// identifier (or binding name for derived fields on decode).
type Values map[string]any

// Child selects a typed child packet for a payload dispatch.
type Child struct {
	Type   string
	Values Values
}

// Runtime interprets operation lists for every declaration of one schema
// snapshot. Generated lists are cached; the runtime is safe for concurrent
// use since the snapshot never changes.
type Runtime struct {
	scope *schema.Scope
	gen   *gen.Generator
	cache sync.Map // declaration id -> *gen.PacketOps
}

func New(scope *schema.Scope) *Runtime {
	return &Runtime{
		scope: scope,
		gen:   gen.NewGenerator(scope),
	}
}

func (r *Runtime) opsFor(id string) (*gen.PacketOps, error) {
	if cached, ok := r.cache.Load(id); ok {
		return cached.(*gen.PacketOps), nil
	}
	ops, err := r.gen.Generate(id)
	if err != nil {
		return nil, err
	}
	r.cache.Store(id, ops)
	return ops, nil
}

// Encode runs the declaration's encode operation list over the bound values
// and returns the wire bytes.
func (r *Runtime) Encode(id string, v Values) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encodeDecl(id, v, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode runs the declaration's decode operation list over the wire bytes
// and returns the bound values.
func (r *Runtime) Decode(id string, data []byte) (Values, error) {
	rd := &reader{data: data}
	return r.decodeDecl(id, rd)
}
