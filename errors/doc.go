// Package errors provides structured error types for the pdlgen backend.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: packet name, field name,
// offending value, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseGenerate, errors.KindMisaligned).
//		Packet("LinkControl").
//		Field("payload").
//		Detail("payload field not on an octet boundary").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InsufficientInput("LinkControl", 6, 4)
//	err := errors.ValueOverflow("LinkControl", "opcode", 300, 255)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
