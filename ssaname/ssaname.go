// Package ssaname implements the SSA name generator: a monotonic
// counter producing fresh, never-reused name identifiers.
package ssaname

import "fmt"

// Name is an opaque identifier assigned to an expression result or
// binding occurrence. The zero Name is never produced by a Generator,
// so it is safe to use as a "not yet assigned" sentinel.
type Name uint64

// String renders n the way dump/debug printers and error messages
// refer to it: as a virtual register, "%N".
func (n Name) String() string {
	return fmt.Sprintf("%%%d", uint64(n))
}

// IsZero reports whether n is the unassigned sentinel value.
func (n Name) IsZero() bool { return n == 0 }

// Generator produces fresh Names. It is not safe for concurrent use;
// callers needing concurrent allocation must supply their own
// synchronization, but the compile pipeline is sequential throughout.
type Generator struct {
	next uint64
}

// NewGenerator returns a Generator whose first New call yields Name(1).
func NewGenerator() *Generator {
	return &Generator{}
}

// New returns a Name not equal to any previously returned by g.
func (g *Generator) New() Name {
	g.next++
	return Name(g.next)
}

// Count reports how many names g has produced so far.
func (g *Generator) Count() uint64 {
	return g.next
}
