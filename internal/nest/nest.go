// Package nest holds the data model spec.md §3 describes: array
// accesses expressed as affine coefficient vectors, and the
// read/write sets a loop-dependence decision is made from.
package nest

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"

	"github.com/sentra-lang/polytope/internal/hostir"
	"github.com/sentra-lang/polytope/internal/intmat"
)

// Access is one array read or write: an ordered sequence of affine
// coefficient vectors, one per subscript dimension.
type Access struct {
	Subscripts []intmat.Vector
	IsWrite    bool
	Inst       ir.Instruction // carried for diagnostics only
}

// key renders an access's subscripts into a string unique up to
// structural equality, used to de-duplicate accesses the way the
// original C++ used a std::set keyed on the subscript vectors.
func (a Access) key() string {
	var sb strings.Builder
	for _, v := range a.Subscripts {
		fmt.Fprintf(&sb, "%v|", []int64(v))
	}
	return sb.String()
}

// Dependencies is the loop-dependence set of spec.md §3: two
// de-duplicated multisets of array accesses, writes and reads.
type Dependencies struct {
	Writes []Access
	Reads  []Access
}

// NewDependencies builds a Dependencies set, de-duplicating each side
// on structural equality of the subscript vectors.
func NewDependencies(writes, reads []Access) Dependencies {
	return Dependencies{Writes: dedup(writes), Reads: dedup(reads)}
}

func dedup(accesses []Access) []Access {
	seen := make(map[string]bool, len(accesses))
	out := make([]Access, 0, len(accesses))
	for _, a := range accesses {
		k := a.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	return out
}

// Nest is the populated result of the Loop Recognizer: the ordered
// induction-variable sequence (outermost first) plus the outer/inner
// loop handles the Code Synthesizer rewrites.
type Nest struct {
	Outer   *hostir.Loop
	Inner   *hostir.Loop
	OuterIV *hostir.InductionVar
	InnerIV *hostir.InductionVar
}

// Depth returns the number of induction-variable levels this nest
// carries - always 2, since deeper nests are declined by the Loop
// Recognizer (spec.md §1 Non-goals).
func (n *Nest) Depth() int { return 2 }
