// Package interp executes generated operation lists directly: bound values
// in, wire bytes out, and back. The same op sequences a target-language
// emitter would turn into source are interpreted here against byte buffers
// and value maps, which makes every generated layout testable without
// emitting code.
//
// Values are loosely typed:
//
//	scalar fields        uint64 (or any unsigned/non-negative integer)
//	integer arrays       []uint64
//	struct arrays        []Values
//	struct typedefs      Values
//	raw payloads         []byte
//	typed child payloads Child{Type, Values}
//
// An absent payload entry selects the explicit empty alternative.
package interp
