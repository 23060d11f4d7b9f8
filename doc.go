// Package pdlgen is the bit-packing backend of a packet-description-language
// (PDL) compiler.
//
// Given a pre-resolved schema describing a binary packet's fields (bit
// widths, arrays, inter-field size and count dependencies, nested and
// polymorphic sub-packets), it produces, per packet declaration, an ordered
// sequence of decode operations (bytes to structured values) and encode
// operations (structured values to bytes) that reproduce the packet's exact
// bit layout.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	pdlgen/              Root package with the Renderer strategy interface
//	├── schema/          Resolved declarations: packets, structs, enums
//	├── gen/             The bit-field accumulation engines (the core)
//	├── ir/              Language-neutral operation lists the engines emit
//	├── interp/          Reference renderer: executes operation lists
//	└── errors/          Structured error types for diagnostics
//
// # Quick Start
//
// Load a resolved-schema snapshot and generate one packet's operation lists:
//
//	scope, err := schema.Load(file)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	g := gen.NewGenerator(scope)
//	ops, err := g.Generate("LinkControl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, op := range ops.Decode {
//	    fmt.Println(op)
//	}
//
// # Scope
//
// The PDL lexer, parser, and semantic analysis run upstream and hand this
// backend an already-resolved schema; target-language source emission runs
// downstream, consuming the operation lists through a Renderer. Neither is
// part of this module. Schema validity is assumed, not checked: a
// contradiction discovered during generation is reported as a fatal
// schema-consistency error for the offending packet, never papered over
// with a mis-packed layout.
//
// # Thread Safety
//
// A schema Scope is immutable after construction and safe to share. Each
// FieldDecoder and FieldEncoder processes a single declaration and is not
// safe for concurrent use; distinct declarations may be generated in
// parallel.
package pdlgen
