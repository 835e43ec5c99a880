// Package wasmbridge provides a host-side marshaling layer for WebAssembly
// modules that exchange values through linear memory with a raw integer
// calling convention.
//
// Guest functions in this convention take a (offset, length, capacity) triple
// describing a region of linear memory and return a signed result code: a
// non-negative code is the output byte length written in place, a negative
// code is a per-function error sentinel. The library turns that convention
// into typed Go calls.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	wasmbridge/          Root package with Memory, Guest, Region, ResultCode
//	├── bridge/          Call bridge: typed calls, code spaces, call sessions
//	├── codec/           Text and structured (JSON) value encoding
//	├── engine/          wazero integration: modules, instances, memory access
//	├── config/          Configuration loading for hosts and the CLI
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Load a module and call a text-transforming export:
//
//	eng, _ := engine.New(ctx, nil)
//	defer eng.Close(ctx)
//
//	mod, _ := eng.LoadModule(ctx, wasmBytes)
//	inst, _ := mod.Instantiate(ctx)
//	defer inst.Close(ctx)
//
//	b, _ := bridge.New(inst)
//	b.Define(bridge.TextSignature("double-text"))
//
//	out, err := b.CallText(ctx, "double-text", "Hello")
//
// # Memory Model
//
// WASM linear memory is a single growable byte array. Growth invalidates any
// byte slice previously obtained from it, so views are never cached across a
// call into the guest: the accessor re-derives a live view on every access,
// and the bridge re-reads results only after the guest call returns.
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use. Instance and Bridge are tied
// to one linear memory with no isolation between callers; the bridge allows a
// single in-flight call at a time and callers needing parallelism should use
// one Instance per goroutine.
package wasmbridge
