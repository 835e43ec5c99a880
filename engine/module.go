package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-bridge/errors"
)

// Conventional allocator export names, tried in order.
const (
	cabiRealloc   = "cabi_realloc"
	cabiFree      = "cabi_free"
	legacyRealloc = "canonical_abi_realloc"
	legacyAlloc   = "allocate"
	simpleAlloc   = "alloc"
	legacyDealloc = "deallocate"
	simpleFree    = "free"
)

// Module is a compiled WASM module
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

// Instantiate creates a running instance. Instances are anonymous so the
// same module can be instantiated in parallel.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	return m.InstantiateNamed(ctx, "")
}

// InstantiateNamed creates an instance registered under the given name.
func (m *Module) InstantiateNamed(ctx context.Context, name string) (*Instance, error) {
	if err := m.engine.initHosts(ctx); err != nil {
		return nil, err
	}

	instance, err := m.engine.runtime.InstantiateModule(ctx, m.compiled,
		wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst := &Instance{
		instance:  instance,
		funcCache: make(map[string]api.Function),
		stackBuf:  make([]uint64, 8),
	}

	if mem := instance.Memory(); mem != nil {
		inst.memory = &wazeroMemory{mem: mem}
	} else if m.engine.cfg.HostMemory {
		// Guest imports the host-provided memory; route the accessor to it.
		if host := m.engine.runtime.Module(m.engine.cfg.HostMemoryModule); host != nil {
			if mem := host.Memory(); mem != nil {
				inst.memory = &wazeroMemory{mem: mem}
			}
		}
	}

	// Allocator is optional: try the conventional export names in order.
	allocDefs := instance.ExportedFunctionDefinitions()
	for _, name := range []string{cabiRealloc, legacyRealloc, legacyAlloc, simpleAlloc} {
		if def, ok := allocDefs[name]; ok {
			inst.allocFn = instance.ExportedFunction(name)
			inst.reallocStyle = len(def.ParamTypes()) >= 4
			break
		}
	}
	for _, name := range []string{cabiFree, legacyDealloc, simpleFree} {
		if fn := instance.ExportedFunction(name); fn != nil {
			inst.freeFn = fn
			break
		}
	}

	if inst.allocFn != nil {
		inst.alloc = &guestAllocator{
			allocFn:      inst.allocFn,
			freeFn:       inst.freeFn,
			stackBuf:     inst.stackBuf,
			reallocStyle: inst.reallocStyle,
		}
	}

	return inst, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
