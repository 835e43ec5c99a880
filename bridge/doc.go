// Package bridge implements typed calls into guest functions that exchange
// data through linear memory regions.
//
// A Bridge wraps a Guest and a set of declared operations (Signature).
// Each operation is one of three shapes:
//
//   - numeric: flat integer/float parameters and results, no memory traffic
//   - text: a UTF-8 string is written into a region, the guest returns a
//     signed code that is either the output byte length or an error sentinel
//   - structured: same region protocol with JSON-encoded values
//
// The region protocol passes (offset, length, capacity) as three i32
// parameters. The guest writes its output into the same region and returns
// the output byte length, or a negative code from the operation's declared
// code space.
//
// Calls are serialized: a Bridge allows one in-flight call at a time, which
// matches the single-threaded execution model of the guest. CallText,
// CallStructured and CallNumeric handle the whole exchange; CallSession
// exposes the individual encode, invoke and decode steps for callers that
// need to inspect intermediate state.
package bridge
