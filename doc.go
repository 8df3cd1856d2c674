// Package gckit is the object model and type registry for an Immix-style,
// stop-the-world tracing garbage collector. The collector itself lives in
// the heap subpackage; this package owns everything both the embedder and
// the collector must agree on.
//
// # Objects and refs
//
// Every heap object is a contiguous cell: an 8-byte header followed by the
// payload. A Ref is the address of the header and is the only handle the
// API trades in. Embedders store Ref values (plain machine words) inside
// object payloads and hand them to trace callbacks; the heap never sees or
// cares about the payload's interpretation beyond those words.
//
// # The GCInfo table
//
// Each object type registers a GCInfo once (a trace callback, an optional
// finalize callback, and an opaque tag) and receives a small stable
// GCInfoIndex recorded in every header. The table is process-global,
// append-only, and must be initialized with Init before any heap exists.
// Registration is safe alongside mutator allocation; entries never move
// once assigned, so the marker reads the table without locks.
//
// # Tracing
//
// During a collection cycle the heap passes a Visitor to constraint and
// trace callbacks. Callbacks report outgoing references with Trace, or hand
// ranges of untyped words (an interpreter stack, a register file) to
// TraceConservatively. Both are valid only for the duration of the cycle
// that supplied the Visitor.
package gckit
