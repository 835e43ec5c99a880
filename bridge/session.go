package bridge

import (
	"context"

	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateEncoded
	stateInvoked
	stateFailed
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateEncoded:
		return "encoded"
	case stateInvoked:
		return "invoked"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CallSession is one region-protocol exchange, split into explicit encode,
// invoke and decode steps. Steps must run in order; any failing step moves
// the session to a terminal failed state and later steps report a state
// violation. A session holds the bridge's call lock from creation until
// Close, so at most one session is live per bridge.
type CallSession struct {
	bridge *Bridge
	op     operation
	state  sessionState

	requested uint32
	region    wasmbridge.Region
	result    wasmbridge.ResultCode
}

// Session starts an exchange for a defined region operation. It blocks
// while another call is in flight. Close must be called regardless of
// outcome.
func (b *Bridge) Session(name string) (*CallSession, error) {
	op, err := b.operation(name)
	if err != nil {
		return nil, err
	}
	if op.sig.Kind == OpNumeric {
		return nil, errors.InvalidInput(errors.PhaseInvoke,
			"operation %q is numeric; use CallNumeric", name)
	}
	b.callMu.Lock()
	return &CallSession{bridge: b, op: op}, nil
}

// Close releases the session. Safe to call more than once.
func (s *CallSession) Close() {
	if s.state == stateClosed {
		return
	}
	if s.region.Capacity != 0 {
		s.bridge.release(s.region)
		s.region = wasmbridge.Region{}
	}
	s.state = stateClosed
	s.bridge.callMu.Unlock()
}

// State reports the session state name, mainly for logging.
func (s *CallSession) State() string {
	return s.state.String()
}

// Result returns the raw guest code once Invoke has completed.
func (s *CallSession) Result() wasmbridge.ResultCode {
	return s.result
}

// Region returns the memory window of the current exchange.
func (s *CallSession) Region() wasmbridge.Region {
	return s.region
}

// Reserve requests an exact region capacity for this exchange. Without it
// the session uses the scratch window size, or the encoded input size when
// the bridge allocates per call.
func (s *CallSession) Reserve(capacity uint32) error {
	if s.state != stateIdle {
		return s.violation("Reserve is only valid before encoding")
	}
	s.requested = capacity
	return nil
}

func (s *CallSession) violation(detail string) error {
	if s.state != stateFailed && s.state != stateClosed {
		s.state = stateFailed
	}
	return errors.StateViolation(s.op.sig.Name, detail)
}

func (s *CallSession) fail(err error) error {
	s.state = stateFailed
	return err
}

// acquire swaps in a fresh region of the given capacity. The region from
// the previous exchange, if any, is released first so a reused session
// holds at most one guest allocation.
func (s *CallSession) acquire(capacity uint32) error {
	if s.region.Capacity != 0 {
		s.bridge.release(s.region)
		s.region = wasmbridge.Region{}
	}
	region, err := s.bridge.region(capacity)
	if err != nil {
		return err
	}
	s.region = region
	return nil
}

func (s *CallSession) capacityFor(need uint32) uint32 {
	if s.requested != 0 {
		return s.requested
	}
	if s.bridge.alloc != nil {
		return need
	}
	return s.bridge.scratchCapacity
}

// EncodeText writes the input string into the call region.
func (s *CallSession) EncodeText(input string) error {
	if s.state != stateIdle {
		return s.violation("encode requires an idle session, state is " + s.state.String())
	}
	if s.op.sig.Kind != OpText {
		return s.violation("EncodeText on a " + s.op.sig.Kind.String() + " operation")
	}
	if err := s.acquire(s.capacityFor(uint32(len(input)))); err != nil {
		return s.fail(err)
	}
	written, err := s.bridge.codec.EncodeText(
		s.bridge.guest.Memory(), s.region.Offset, s.region.Capacity, input)
	if err != nil {
		return s.fail(err)
	}
	s.region = written
	s.state = stateEncoded
	return nil
}

// EncodeStructured writes the JSON encoding of v into the call region.
func (s *CallSession) EncodeStructured(v any) error {
	if s.state != stateIdle {
		return s.violation("encode requires an idle session, state is " + s.state.String())
	}
	if s.op.sig.Kind != OpStructured {
		return s.violation("EncodeStructured on a " + s.op.sig.Kind.String() + " operation")
	}
	if err := s.acquire(s.capacityFor(s.bridge.codec.EncodedSize(v))); err != nil {
		return s.fail(err)
	}
	written, err := s.bridge.codec.EncodeStructured(
		s.bridge.guest.Memory(), s.region.Offset, s.region.Capacity, v)
	if err != nil {
		return s.fail(err)
	}
	s.region = written
	s.state = stateEncoded
	return nil
}

// Invoke calls the guest with the region triple and interprets the signed
// result. A negative code is mapped through the operation's code space and
// fails the session; a non-negative code becomes the output length.
func (s *CallSession) Invoke(ctx context.Context) error {
	if s.state != stateEncoded {
		return s.violation("invoke requires an encoded session, state is " + s.state.String())
	}
	results, err := s.op.fn.Call(ctx,
		uint64(s.region.Offset), uint64(s.region.Length), uint64(s.region.Capacity))
	if err != nil {
		return s.fail(errors.Trap(s.op.sig.Name, err))
	}
	if len(results) != 1 {
		return s.fail(errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Function(s.op.sig.Name).
			Detail("expected one result, guest returned %d", len(results)).
			Build())
	}
	code := wasmbridge.ResultCode(int32(results[0]))
	s.result = code
	if code.IsError() {
		return s.fail(s.op.sig.errorFor(code))
	}
	if code.Length() > s.region.Capacity {
		return s.fail(errors.New(errors.PhaseDecode, errors.KindInvalidRegion).
			Function(s.op.sig.Name).
			Code(int32(code)).
			Detail("guest claims %d output bytes in a %d byte region",
				code.Length(), s.region.Capacity).
			Build())
	}
	s.region = s.region.WithLength(code.Length())
	s.state = stateInvoked

	s.bridge.log.Debug("guest call completed",
		zap.String("operation", s.op.sig.Name),
		zap.Int32("code", int32(code)),
		zap.Stringer("region", s.region))
	return nil
}

// DecodeText reads the guest output as a UTF-8 string.
func (s *CallSession) DecodeText() (string, error) {
	if s.state != stateInvoked {
		return "", s.violation("decode requires an invoked session, state is " + s.state.String())
	}
	out, err := s.bridge.codec.DecodeText(s.bridge.guest.Memory(), s.region)
	if err != nil {
		return "", s.fail(err)
	}
	s.state = stateIdle
	return out, nil
}

// DecodeStructured parses the guest output into out.
func (s *CallSession) DecodeStructured(out any) error {
	if s.state != stateInvoked {
		return s.violation("decode requires an invoked session, state is " + s.state.String())
	}
	if err := s.bridge.codec.DecodeStructured(s.bridge.guest.Memory(), s.region, out); err != nil {
		return s.fail(err)
	}
	s.state = stateIdle
	return nil
}

// DecodeStructuredAny parses the guest output into a generic value tree.
func (s *CallSession) DecodeStructuredAny() (any, error) {
	if s.state != stateInvoked {
		return nil, s.violation("decode requires an invoked session, state is " + s.state.String())
	}
	out, err := s.bridge.codec.DecodeStructuredAny(s.bridge.guest.Memory(), s.region)
	if err != nil {
		return nil, s.fail(err)
	}
	s.state = stateIdle
	return out, nil
}
