package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode Phase = "encode" // host value to linear memory
	PhaseDecode Phase = "decode" // linear memory to host value
	PhaseInvoke Phase = "invoke" // guest function call
	PhaseLoad   Phase = "load"   // module loading
	PhaseHost   Phase = "host"   // host function registration
	PhaseConfig Phase = "config" // configuration loading
	PhaseGrow   Phase = "grow"   // linear memory growth
)

// Kind categorizes the error
type Kind string

const (
	KindInsufficientCapacity Kind = "insufficient_capacity"
	KindParseFailure         Kind = "parse_failure"
	KindSerializationFailure Kind = "serialization_failure"
	KindEncodingMismatch     Kind = "encoding_mismatch"
	KindOutOfBounds          Kind = "out_of_bounds"
	KindInvalidRegion        Kind = "invalid_region"
	KindInvalidInput         Kind = "invalid_input"
	KindNotFound             Kind = "not_found"
	KindNotInitialized       Kind = "not_initialized"
	KindRegistration         Kind = "registration"
	KindInstantiation        Kind = "instantiation"
	KindGrowthFailed         Kind = "growth_failed"
	KindSizeLimit            Kind = "size_limit"
	KindUnknownCode          Kind = "unknown_code"
	KindStateViolation       Kind = "state_violation"
	KindTrap                 Kind = "trap"
)

var knownKinds = map[Kind]bool{
	KindInsufficientCapacity: true,
	KindParseFailure:         true,
	KindSerializationFailure: true,
	KindEncodingMismatch:     true,
	KindOutOfBounds:          true,
	KindInvalidRegion:        true,
	KindInvalidInput:         true,
	KindNotFound:             true,
	KindNotInitialized:       true,
	KindRegistration:         true,
	KindInstantiation:        true,
	KindGrowthFailed:         true,
	KindSizeLimit:            true,
	KindUnknownCode:          true,
	KindStateViolation:       true,
	KindTrap:                 true,
}

// KnownKind reports whether k is one of the declared kinds. Config loaders
// use it to catch misspelled kind names before they reach callers.
func KnownKind(k Kind) bool {
	return knownKinds[k]
}

// Error is the structured error type used throughout the library
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Function string
	Detail   string
	Code     int32
	HasCode  bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Function)
	}

	if e.HasCode {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Function sets the guest function name
func (b *Builder) Function(name string) *Builder {
	b.err.Function = name
	return b
}

// Code sets the raw result code the guest returned
func (b *Builder) Code(code int32) *Builder {
	b.err.Code = code
	b.err.HasCode = true
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InsufficientCapacity creates a capacity error: the value needs more bytes
// than the region provides. Raised before any byte is written.
func InsufficientCapacity(phase Phase, needed, capacity uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInsufficientCapacity,
		Detail: fmt.Sprintf("need %d bytes, capacity %d", needed, capacity),
	}
}

// ParseFailure creates a malformed structured-encoding error
func ParseFailure(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindParseFailure,
		Detail: detail,
	}
}

// SerializationFailure creates an error for values with no representable encoding
func SerializationFailure(phase Phase, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSerializationFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// EncodingMismatch creates an invalid text encoding error
func EncodingMismatch(phase Phase, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindEncodingMismatch,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access [%d, %d) outside memory of %d bytes", offset, uint64(offset)+uint64(length), size),
	}
}

// InvalidRegion creates an error for regions violating their invariants
func InvalidRegion(phase Phase, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindInvalidRegion,
		Cause: cause,
	}
}

// SizeLimit creates an error for values exceeding the configured encode limit
func SizeLimit(phase Phase, size, limit uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSizeLimit,
		Detail: fmt.Sprintf("encoded size %d exceeds limit %d", size, limit),
	}
}

// GuestFailure creates the error surfaced for a negative result code: the
// function name, the raw code, and its interpreted meaning travel together.
func GuestFailure(function string, code int32, kind Kind) *Error {
	return &Error{
		Phase:    PhaseInvoke,
		Kind:     kind,
		Function: function,
		Code:     code,
		HasCode:  true,
	}
}

// UnknownCode creates the error for a negative code outside the function's
// declared sentinel space.
func UnknownCode(function string, code int32) *Error {
	return &Error{
		Phase:    PhaseInvoke,
		Kind:     KindUnknownCode,
		Function: function,
		Code:     code,
		HasCode:  true,
		Detail:   "code not in the function's declared error space",
	}
}

// NotInitialized creates a not-initialized error for missing module/instance
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a host function registration error
func Registration(namespace, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// GrowthFailed creates an error for linear memory growth hitting its maximum
func GrowthFailed(deltaPages, currentPages uint32) *Error {
	return &Error{
		Phase:  PhaseGrow,
		Kind:   KindGrowthFailed,
		Detail: fmt.Sprintf("grow by %d pages refused at %d pages", deltaPages, currentPages),
	}
}

// Trap creates an error for a guest function that aborted instead of
// returning
func Trap(function string, cause error) *Error {
	return &Error{
		Phase:    PhaseInvoke,
		Kind:     KindTrap,
		Function: function,
		Cause:    cause,
		Detail:   "guest aborted execution",
	}
}

// StateViolation creates an error for out-of-order call session transitions
func StateViolation(function, detail string) *Error {
	return &Error{
		Phase:    PhaseInvoke,
		Kind:     KindStateViolation,
		Function: function,
		Detail:   detail,
	}
}
