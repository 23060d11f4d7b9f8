// Package ir defines the language-neutral operation lists produced by the
// bit-packing engines.
//
// One packet declaration yields two ordered op sequences: decode operations
// (bytes to bound values) and encode operations (bound values to bytes).
// Renderers turn these sequences into target-language source; the reference
// interpreter in package interp executes them directly.
//
// The Op and Expr variant sets are closed. A renderer that switches over
// them exhaustively covers everything the engines can ever emit.
package ir
