package bridge

import (
	"go.bytecodealliance.org/wit"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// OpKind selects the calling convention of an operation.
type OpKind int

const (
	// OpNumeric passes flat scalar parameters and results on the stack.
	OpNumeric OpKind = iota
	// OpText exchanges a UTF-8 string through a memory region.
	OpText
	// OpStructured exchanges a JSON document through a memory region.
	OpStructured
)

func (k OpKind) String() string {
	switch k {
	case OpNumeric:
		return "numeric"
	case OpText:
		return "text"
	case OpStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// CodeSpace maps the negative result codes a guest function may return to
// error kinds. Codes are per-function; the same value can mean different
// failures in different operations.
type CodeSpace map[wasmbridge.ResultCode]errors.Kind

// DefaultTextCodes is the conventional code space for text operations.
func DefaultTextCodes() CodeSpace {
	return CodeSpace{
		-1: errors.KindInsufficientCapacity,
	}
}

// DefaultStructuredCodes is the conventional code space for structured
// operations.
func DefaultStructuredCodes() CodeSpace {
	return CodeSpace{
		-1: errors.KindParseFailure,
		-2: errors.KindSerializationFailure,
		-3: errors.KindInsufficientCapacity,
	}
}

// Signature declares one guest operation.
type Signature struct {
	// Name is the guest export to call.
	Name string

	// Kind selects the calling convention.
	Kind OpKind

	// Params and Results describe the flat scalars of a numeric operation.
	// Region operations ignore them; their shape is fixed to
	// (i32, i32, i32) -> i32.
	Params  []wit.Type
	Results []wit.Type

	// Codes maps negative return values to error kinds. Only used by
	// region operations. A code outside the map reports as unknown_code.
	Codes CodeSpace
}

// NumericSignature declares a flat scalar operation.
func NumericSignature(name string, params, results []wit.Type) Signature {
	return Signature{Name: name, Kind: OpNumeric, Params: params, Results: results}
}

// TextSignature declares a text operation with the default code space.
func TextSignature(name string) Signature {
	return Signature{Name: name, Kind: OpText, Codes: DefaultTextCodes()}
}

// StructuredSignature declares a structured operation with the default code
// space.
func StructuredSignature(name string) Signature {
	return Signature{Name: name, Kind: OpStructured, Codes: DefaultStructuredCodes()}
}

// WithCodes returns a copy of the signature using the given code space.
func (s Signature) WithCodes(codes CodeSpace) Signature {
	s.Codes = codes
	return s
}

func (s Signature) validate() error {
	if s.Name == "" {
		return errors.InvalidInput(errors.PhaseConfig, "operation name is empty")
	}
	switch s.Kind {
	case OpNumeric:
		for _, t := range append(append([]wit.Type{}, s.Params...), s.Results...) {
			if !flatScalar(t) {
				return errors.InvalidInput(errors.PhaseConfig,
					"numeric operation %q uses non-scalar type %T", s.Name, t)
			}
		}
	case OpText, OpStructured:
		if len(s.Params) != 0 || len(s.Results) != 0 {
			return errors.InvalidInput(errors.PhaseConfig,
				"region operation %q must not declare flat params or results", s.Name)
		}
	default:
		return errors.InvalidInput(errors.PhaseConfig, "operation %q has unknown kind %d", s.Name, s.Kind)
	}
	for code := range s.Codes {
		if !code.IsError() {
			return errors.InvalidInput(errors.PhaseConfig,
				"operation %q declares non-negative code %d in its code space", s.Name, code)
		}
	}
	return nil
}

// errorFor maps a negative guest code through the signature's code space.
func (s Signature) errorFor(code wasmbridge.ResultCode) error {
	if kind, ok := s.Codes[code]; ok {
		return errors.GuestFailure(s.Name, int32(code), kind)
	}
	return errors.UnknownCode(s.Name, int32(code))
}

func flatScalar(t wit.Type) bool {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32,
		wit.U64, wit.S64, wit.F32, wit.F64, wit.Char:
		return true
	default:
		return false
	}
}
