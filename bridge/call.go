package bridge

import (
	"context"

	"github.com/wippyai/wasm-bridge/errors"
)

// CallNumeric invokes a numeric operation with raw stack values. Integers
// are passed as-is; floats must be pre-converted with math.Float64bits or
// math.Float32bits.
func (b *Bridge) CallNumeric(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	op, err := b.operation(name)
	if err != nil {
		return nil, err
	}
	if op.sig.Kind != OpNumeric {
		return nil, errors.InvalidInput(errors.PhaseInvoke,
			"operation %q is %s, not numeric", name, op.sig.Kind)
	}
	if len(args) != len(op.sig.Params) {
		return nil, errors.InvalidInput(errors.PhaseInvoke,
			"operation %q takes %d arguments, got %d", name, len(op.sig.Params), len(args))
	}

	b.callMu.Lock()
	defer b.callMu.Unlock()

	results, err := op.fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.Trap(name, err)
	}
	if len(results) != len(op.sig.Results) {
		return nil, errors.InvalidInput(errors.PhaseInvoke,
			"operation %q declares %d results, guest returned %d",
			name, len(op.sig.Results), len(results))
	}
	return results, nil
}

// CallText runs a full text exchange: encode input, invoke, decode output.
//
// The region capacity defaults to the scratch window size, or to the encoded
// input size when the bridge allocates per call. Operations whose output is
// larger than their input need an explicit capacity in allocator mode; use
// Session with Reserve for those.
func (b *Bridge) CallText(ctx context.Context, name, input string) (string, error) {
	s, err := b.Session(name)
	if err != nil {
		return "", err
	}
	defer s.Close()

	if err := s.EncodeText(input); err != nil {
		return "", err
	}
	if err := s.Invoke(ctx); err != nil {
		return "", err
	}
	return s.DecodeText()
}

// CallStructured runs a full structured exchange, parsing the guest output
// into out. Capacity defaults follow CallText; output-expanding operations
// under an allocator need Session with Reserve.
func (b *Bridge) CallStructured(ctx context.Context, name string, in, out any) error {
	s, err := b.Session(name)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.EncodeStructured(in); err != nil {
		return err
	}
	if err := s.Invoke(ctx); err != nil {
		return err
	}
	return s.DecodeStructured(out)
}

// CallStructuredAny is CallStructured with a generic value tree result.
func (b *Bridge) CallStructuredAny(ctx context.Context, name string, in any) (any, error) {
	s, err := b.Session(name)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := s.EncodeStructured(in); err != nil {
		return nil, err
	}
	if err := s.Invoke(ctx); err != nil {
		return nil, err
	}
	return s.DecodeStructuredAny()
}
