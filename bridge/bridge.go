package bridge

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/codec"
	"github.com/wippyai/wasm-bridge/errors"
)

// DefaultScratchCapacity is the size of the region used for encode and
// decode when no allocator is configured.
const DefaultScratchCapacity = 4096

type operation struct {
	sig Signature
	fn  wasmbridge.Function
}

// Bridge dispatches typed calls to a guest over the region protocol.
// A Bridge serializes calls; concurrent callers block until the in-flight
// call completes.
type Bridge struct {
	guest wasmbridge.Guest
	codec *codec.Codec
	log   *zap.Logger

	scratchOffset   uint32
	scratchCapacity uint32
	alloc           wasmbridge.Allocator

	callMu sync.Mutex

	opMu sync.RWMutex
	ops  map[string]operation
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithScratchRegion sets the fixed memory window used for region traffic.
// The window must not overlap memory the guest uses between calls.
func WithScratchRegion(offset, capacity uint32) Option {
	return func(b *Bridge) {
		b.scratchOffset = offset
		b.scratchCapacity = capacity
	}
}

// WithAllocator makes the bridge obtain a fresh region from the guest
// allocator for every call instead of reusing the scratch window.
func WithAllocator(a wasmbridge.Allocator) Option {
	return func(b *Bridge) { b.alloc = a }
}

// WithCodec replaces the default codec.
func WithCodec(c *codec.Codec) Option {
	return func(b *Bridge) { b.codec = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// New creates a bridge over the guest.
func New(guest wasmbridge.Guest, opts ...Option) (*Bridge, error) {
	if guest == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "nil guest")
	}
	b := &Bridge{
		guest:           guest,
		codec:           codec.New(),
		log:             zap.NewNop(),
		scratchCapacity: DefaultScratchCapacity,
		ops:             make(map[string]operation),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Define declares an operation. The guest export is resolved eagerly so a
// missing function surfaces here rather than on first call.
func (b *Bridge) Define(sig Signature) error {
	if err := sig.validate(); err != nil {
		return err
	}
	fn, err := b.guest.Function(sig.Name)
	if err != nil {
		return err
	}

	b.opMu.Lock()
	defer b.opMu.Unlock()
	if _, exists := b.ops[sig.Name]; exists {
		return errors.InvalidInput(errors.PhaseConfig, "operation %q already defined", sig.Name)
	}
	b.ops[sig.Name] = operation{sig: sig, fn: fn}

	b.log.Debug("operation defined",
		zap.String("name", sig.Name),
		zap.String("kind", sig.Kind.String()))
	return nil
}

// Operations returns the defined operation names in sorted order.
func (b *Bridge) Operations() []string {
	b.opMu.RLock()
	defer b.opMu.RUnlock()
	names := make([]string, 0, len(b.ops))
	for name := range b.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the signature of a defined operation.
func (b *Bridge) Lookup(name string) (Signature, bool) {
	b.opMu.RLock()
	defer b.opMu.RUnlock()
	op, ok := b.ops[name]
	return op.sig, ok
}

func (b *Bridge) operation(name string) (operation, error) {
	b.opMu.RLock()
	defer b.opMu.RUnlock()
	op, ok := b.ops[name]
	if !ok {
		return operation{}, errors.NotFound(errors.PhaseInvoke, "operation", name)
	}
	return op, nil
}

// region reserves the memory window for one call. With an allocator it
// claims a fresh block of the given capacity; otherwise it hands out the
// shared scratch window. release undoes an allocator claim.
func (b *Bridge) region(capacity uint32) (wasmbridge.Region, error) {
	if b.alloc == nil {
		if capacity > b.scratchCapacity {
			return wasmbridge.Region{}, errors.InsufficientCapacity(
				errors.PhaseEncode, capacity, b.scratchCapacity)
		}
		return wasmbridge.Region{Offset: b.scratchOffset, Capacity: capacity}, nil
	}
	ptr, err := b.alloc.Alloc(capacity, 1)
	if err != nil {
		return wasmbridge.Region{}, err
	}
	return wasmbridge.Region{Offset: ptr, Capacity: capacity}, nil
}

func (b *Bridge) release(r wasmbridge.Region) {
	if b.alloc != nil {
		b.alloc.Free(r.Offset, r.Capacity, 1)
	}
}
