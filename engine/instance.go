package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// Instance is a running WASM instance.
// It is NOT safe for concurrent use from multiple goroutines.
// Each goroutine should have its own Instance, or access must be
// synchronized externally.
type Instance struct {
	instance     api.Module
	memory       *wazeroMemory
	allocFn      api.Function
	freeFn       api.Function
	alloc        *guestAllocator
	funcCache    map[string]api.Function
	stackBuf     []uint64
	reallocStyle bool
	cacheMu      sync.RWMutex
}

// Function returns an exported guest function by name.
func (i *Instance) Function(name string) (wasmbridge.Function, error) {
	if i.instance == nil {
		return nil, errors.NotInitialized(errors.PhaseInvoke, "instance")
	}

	i.cacheMu.RLock()
	fn, ok := i.funcCache[name]
	i.cacheMu.RUnlock()

	if !ok {
		fn = i.instance.ExportedFunction(name)
		if fn == nil {
			return nil, errors.NotFound(errors.PhaseInvoke, "function", name)
		}
		i.cacheMu.Lock()
		i.funcCache[name] = fn
		i.cacheMu.Unlock()
	}
	return fn, nil
}

// Memory returns the accessor over the instance's linear memory, or nil if
// the module declares none.
func (i *Instance) Memory() wasmbridge.Memory {
	if i.memory == nil {
		return nil
	}
	return i.memory
}

// MemorySize returns the current linear memory size in bytes, or 0 if no memory.
func (i *Instance) MemorySize() uint32 {
	if i.memory == nil {
		return 0
	}
	return i.memory.Size()
}

// Allocator returns the guest-exported allocator, or nil when the guest
// exports none and callers must use the fixed region convention.
func (i *Instance) Allocator() wasmbridge.Allocator {
	if i.alloc == nil {
		return nil
	}
	return i.alloc
}

// Grow grows linear memory by delta pages and returns the previous size in
// pages. Growth refused at the configured maximum is a structured error,
// not a panic.
func (i *Instance) Grow(deltaPages uint32) (uint32, error) {
	if i.memory == nil {
		return 0, errors.NotInitialized(errors.PhaseGrow, "memory")
	}
	return i.memory.Grow(deltaPages)
}

func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if i.instance != nil {
		if err := i.instance.Close(ctx); err != nil {
			firstErr = err
		}
		i.instance = nil
	}
	// Clear references to help GC
	i.funcCache = nil
	i.memory = nil
	i.allocFn = nil
	i.freeFn = nil
	i.alloc = nil
	i.stackBuf = nil
	return firstErr
}

// guestAllocator implements wasmbridge.Allocator over the guest's exported
// alloc/free functions. reallocStyle allocators take (old_ptr, old_size,
// align, new_size); simple ones take (size). The Allocator interface carries
// no context; guest allocator calls run on a background context.
type guestAllocator struct {
	allocFn      api.Function
	freeFn       api.Function
	stackBuf     []uint64
	reallocStyle bool
	stackMu      sync.Mutex
}

func (a *guestAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, fmt.Errorf("no allocator available")
	}

	a.stackMu.Lock()
	defer a.stackMu.Unlock()

	ctx := context.Background()

	if !a.reallocStyle {
		a.stackBuf[0] = uint64(size)
		if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:1]); err != nil {
			return 0, err
		}
		return uint32(a.stackBuf[0]), nil
	}

	a.stackBuf[0] = 0
	a.stackBuf[1] = 0
	a.stackBuf[2] = uint64(align)
	a.stackBuf[3] = uint64(size)
	if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:4]); err != nil {
		return 0, err
	}
	return uint32(a.stackBuf[0]), nil
}

func (a *guestAllocator) Free(ptr, size, align uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}

	a.stackMu.Lock()
	defer a.stackMu.Unlock()

	ctx := context.Background()

	a.stackBuf[0] = uint64(ptr)
	a.stackBuf[1] = uint64(size)
	a.stackBuf[2] = uint64(align)
	if err := a.freeFn.CallWithStack(ctx, a.stackBuf[:3]); err != nil {
		Logger().Warn("guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// Compile-time checks
var _ wasmbridge.Guest = (*Instance)(nil)
var _ wasmbridge.Allocator = (*guestAllocator)(nil)
