package heap

import "github.com/joshuapare/gckit"

// Constraint supplies roots at the start of each collection cycle. The heap
// invokes every registered constraint, in registration order, with the
// cycle's visitor; whatever the constraint traces is treated as reachable.
// Constraints must not allocate or mutate the object graph.
type Constraint interface {
	// Execute reports this constraint's roots to the cycle's visitor.
	Execute(v gckit.Visitor)
}

// ConstraintFunc adapts a plain function to the Constraint interface, for
// embedders whose root sources are closures rather than types.
type ConstraintFunc func(v gckit.Visitor)

// Execute calls f.
func (f ConstraintFunc) Execute(v gckit.Visitor) { f(v) }
