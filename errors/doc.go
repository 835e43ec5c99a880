// Package errors provides structured error types for the wasm-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: the guest function name,
// the raw result code it returned, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindInsufficientCapacity).
//		Function("double-text").
//		Detail("need %d bytes, capacity %d", 34, 33).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InsufficientCapacity(errors.PhaseEncode, 34, 33)
//	err := errors.GuestFailure("double-text", -1, errors.KindInsufficientCapacity)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
