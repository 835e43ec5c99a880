// Package engine provides the low-level wazero integration.
//
// # Architecture
//
// The engine package provides three main types:
//
//	Engine   - Creates and manages the wazero runtime and host modules
//	Module   - A compiled WebAssembly module, can create instances
//	Instance - A running instance with exports and a memory accessor
//
// # Instantiation Flow
//
//  1. Engine.LoadModule() compiles the module binary
//  2. Engine.RegisterHostFunc() supplies the guest's imports (done before
//     the first instantiation)
//  3. Module.Instantiate() creates an Instance
//  4. Instance.Function() / Instance.Memory() feed the call bridge
//
// # Memory Access
//
// Instance.Memory() returns an accessor over the live linear memory. The
// accessor re-derives its view from the instance on every access, because
// growth invalidates any previously obtained byte slice. Never hold a slice
// returned by Read across a call into the guest.
//
// # Allocator Discovery
//
// Guests may export an allocator for callers that need regions beyond the
// fixed scratch convention. Discovery follows the conventional export names
// in order: cabi_realloc, canonical_abi_realloc, allocate, alloc; free
// lookup: cabi_free, deallocate, free. Instances without these exports
// simply report no allocator.
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use.
// Instance is NOT thread-safe and should be used by a single goroutine.
package engine
