package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages caps memory per instance in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// HostMemory makes the engine provide the linear memory instead of the
	// guest exporting it. The memory is exported from a synthesized module
	// named HostMemoryModule so guests can import it.
	HostMemory bool

	// HostMemoryModule is the module name the host-provided memory is
	// exported under. Defaults to "env". Host functions must use a
	// different namespace when host memory is enabled.
	HostMemoryModule string

	// HostMemoryMin and HostMemoryMax are the initial and maximum page
	// counts for host-provided memory. Min defaults to 1.
	HostMemoryMin uint32
	HostMemoryMax uint32
}

// Engine wraps a wazero runtime plus the host modules guests import.
type Engine struct {
	runtime      wazero.Runtime
	hosts        *HostRegistry
	cfg          Config
	hostInitMu   sync.Mutex
	hostInitDone atomic.Bool
}

// New creates an engine with default configuration.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	if c.HostMemoryModule == "" {
		c.HostMemoryModule = "env"
	}
	if c.HostMemoryMin == 0 {
		c.HostMemoryMin = 1
	}

	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		hosts:   NewHostRegistry(),
		cfg:     c,
	}, nil
}

// Close releases all engine resources.
// All instances must be closed before calling this.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// RegisterHostFunc registers a Go function the guest can import.
// Must be called before the first instantiation.
func (e *Engine) RegisterHostFunc(namespace, name string, fn HostGoFunc, params, results []ValueType) error {
	if e.hostInitDone.Load() {
		return errors.Registration(namespace, name,
			errors.InvalidInput(errors.PhaseHost, "host functions must be registered before instantiation"))
	}
	return e.hosts.Register(namespace, name, fn, params, results)
}

// LoadModule compiles a core WebAssembly module binary.
func (e *Engine) LoadModule(ctx context.Context, wasmBytes []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	return &Module{
		engine:   e,
		compiled: compiled,
	}, nil
}

// initHosts instantiates host modules exactly once per engine.
// Safe for concurrent calls from multiple modules sharing the engine.
func (e *Engine) initHosts(ctx context.Context) error {
	if e.hostInitDone.Load() {
		return nil
	}

	e.hostInitMu.Lock()
	defer e.hostInitMu.Unlock()

	if e.hostInitDone.Load() {
		return nil
	}

	if e.cfg.HostMemory {
		if err := e.instantiateHostMemory(ctx); err != nil {
			return err
		}
	}

	if err := e.hosts.instantiate(ctx, e.runtime); err != nil {
		return err
	}

	e.hostInitDone.Store(true)
	return nil
}

// instantiateHostMemory builds and instantiates a module whose only export
// is the shared memory, so guests can import it instead of exporting their
// own. wazero host modules cannot export memory, hence the synthesized
// binary.
func (e *Engine) instantiateHostMemory(ctx context.Context) error {
	bin := memoryOnlyModule(e.cfg.HostMemoryMin, e.cfg.HostMemoryMax)

	compiled, err := e.runtime.CompileModule(ctx, bin)
	if err != nil {
		return errors.Load("compile host memory module", err)
	}

	_, err = e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(e.cfg.HostMemoryModule))
	if err != nil {
		return errors.Instantiation(err)
	}

	Logger().Debug("host memory instantiated",
		zap.String("module", e.cfg.HostMemoryModule),
		zap.Uint32("min_pages", e.cfg.HostMemoryMin),
		zap.Uint32("max_pages", e.cfg.HostMemoryMax))
	return nil
}

// memoryOnlyModule emits a wasm binary declaring a single exported memory
// named "memory" with the given page limits (max 0 means no maximum).
func memoryOnlyModule(minPages, maxPages uint32) []byte {
	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// Memory section: one memory with limits.
	var limits []byte
	if maxPages > 0 {
		limits = append([]byte{0x01}, uleb(minPages)...)
		limits = append(limits, uleb(maxPages)...)
	} else {
		limits = append([]byte{0x00}, uleb(minPages)...)
	}
	mem := append([]byte{0x01}, limits...)
	bin = append(bin, 0x05)
	bin = append(bin, uleb(uint32(len(mem)))...)
	bin = append(bin, mem...)

	// Export section: "memory" as memory index 0.
	exp := []byte{0x01, 0x06}
	exp = append(exp, []byte("memory")...)
	exp = append(exp, 0x02, 0x00)
	bin = append(bin, 0x07)
	bin = append(bin, uleb(uint32(len(exp)))...)
	bin = append(bin, exp...)

	return bin
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}
