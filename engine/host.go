package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
)

// ValueType describes a core wasm value type in host function signatures.
type ValueType = api.ValueType

const (
	ValueTypeI32 = api.ValueTypeI32
	ValueTypeI64 = api.ValueTypeI64
	ValueTypeF32 = api.ValueTypeF32
	ValueTypeF64 = api.ValueTypeF64
)

// HostGoFunc is a raw host function operating on the integer stack.
// Params and results travel in the stack slice, one slot per value.
type HostGoFunc = api.GoModuleFunc

// HostFunc is a registered host function
type HostFunc struct {
	Fn        HostGoFunc
	Namespace string
	Name      string
	Params    []ValueType
	Results   []ValueType
}

// HostRegistry collects host functions until the engine instantiates them.
type HostRegistry struct {
	mu    sync.RWMutex
	funcs map[string]HostFunc
	order []string
}

func NewHostRegistry() *HostRegistry {
	return &HostRegistry{funcs: make(map[string]HostFunc)}
}

// Register adds a host function under namespace#name.
func (r *HostRegistry) Register(namespace, name string, fn HostGoFunc, params, results []ValueType) error {
	if namespace == "" || name == "" {
		return errors.Registration(namespace, name,
			errors.InvalidInput(errors.PhaseHost, "namespace and name are required"))
	}
	if fn == nil {
		return errors.Registration(namespace, name,
			errors.InvalidInput(errors.PhaseHost, "nil function"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := namespace + "::" + name
	if _, exists := r.funcs[key]; exists {
		return errors.Registration(namespace, name,
			errors.InvalidInput(errors.PhaseHost, "already registered"))
	}

	r.funcs[key] = HostFunc{
		Namespace: namespace,
		Name:      name,
		Fn:        fn,
		Params:    params,
		Results:   results,
	}
	r.order = append(r.order, key)
	return nil
}

// Len returns the number of registered host functions.
func (r *HostRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}

// instantiate builds one wazero host module per namespace, in registration
// order, and instantiates each into the runtime.
func (r *HostRegistry) instantiate(ctx context.Context, rt wazero.Runtime) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	builders := make(map[string]wazero.HostModuleBuilder)
	var nsOrder []string

	for _, key := range r.order {
		hf := r.funcs[key]
		builder, ok := builders[hf.Namespace]
		if !ok {
			builder = rt.NewHostModuleBuilder(hf.Namespace)
			builders[hf.Namespace] = builder
			nsOrder = append(nsOrder, hf.Namespace)
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(hf.Fn, hf.Params, hf.Results).
			Export(hf.Name)
	}

	for _, ns := range nsOrder {
		if _, err := builders[ns].Instantiate(ctx); err != nil {
			return errors.Registration(ns, "", err)
		}
		Logger().Debug("host module instantiated", zap.String("namespace", ns))
	}
	return nil
}
