package pdlgen

import (
	"github.com/wippyai/pdlgen/gen"
)

// Renderer turns one declaration's generated operation lists into
// target-language source. The bit-packing logic lives entirely in the
// operation lists; a renderer is a per-language serialization strategy and
// adds no layout decisions of its own. Package interp takes the runtime
// route instead: it executes the same lists directly rather than
// rendering them to source.
type Renderer interface {
	// Render emits the decode and encode routines for one declaration.
	Render(ops *gen.PacketOps) ([]byte, error)
}
