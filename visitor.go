package gckit

// Visitor records object references discovered during a collection cycle.
// The heap hands one to every constraint and trace callback; it is only
// valid for the duration of that cycle.
type Visitor interface {
	// Trace reports ref as reachable. Nil refs and addresses that do not
	// resolve to a live heap object are ignored, so callbacks may pass
	// fields through without checking.
	Trace(ref Ref)

	// TraceConservatively scans every pointer-aligned word in [from, to)
	// and traces each word that equals the start address of a live object.
	// Used for root ranges without exact pointer maps: interpreter value
	// stacks, saved register areas, foreign frames.
	TraceConservatively(from, to uintptr)
}

// TraceCallback reports an object's outgoing references to the visitor.
// Registered per type in a GCInfo; invoked once per reachable object per
// cycle during marking.
type TraceCallback func(v Visitor, obj Ref)

// FinalizeCallback runs after the collector proves obj unreachable and
// before its memory is reused. It must not allocate from, or mutate, the
// collected heap.
type FinalizeCallback func(obj Ref)
