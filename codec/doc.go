// Package codec converts host values to and from their linear memory
// representation.
//
// Text values travel as UTF-8 bytes; structured values as JSON text. The
// memory itself carries no type information, so callers must know which
// decode matches the bytes a region holds: the calling convention alone
// determines interpretation.
//
// Both encoders check the destination capacity before writing anything.
// A value that does not fit fails with an insufficient-capacity error and
// leaves memory untouched; partial writes never occur.
//
// Byte counts, not host lengths, flow into capacity checks: a string's
// encoded length differs from its rune count whenever it leaves ASCII.
package codec
