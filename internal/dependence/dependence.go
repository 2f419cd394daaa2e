// Package dependence decides whether a loop-dependence set carries a
// data dependence, by posing one linear Diophantine system per
// read/write pair and testing it for an integer solution.
package dependence

import (
	"github.com/sentra-lang/polytope/internal/intmat"
	"github.com/sentra-lang/polytope/internal/nest"
)

// equationSystem stores a linear system of equations Ax = b.
type equationSystem struct {
	lhs intmat.Matrix
	rhs intmat.Vector
}

// HasLoopCarrierDependencies reports whether deps carries a
// dependence: for every write w and every other access a (a write or a
// read), the outermost induction variable is held equal across the two
// iterations (i_0 = j_0, since we are searching for dependences
// carried by the inner dimension) and one equation is built per
// subscript dimension. If any of these systems has an integer
// solution, the nest carries a dependence.
func HasLoopCarrierDependencies(deps nest.Dependencies) bool {
	for _, eqs := range equations(deps) {
		if _, ok := intmat.SolveSystem(eqs.lhs, eqs.rhs); ok {
			return true
		}
	}
	return false
}

// equations builds one equationSystem per (write, access) pair with
// access != write.
func equations(deps nest.Dependencies) []equationSystem {
	accesses := make([]nest.Access, 0, len(deps.Writes)+len(deps.Reads))
	accesses = append(accesses, deps.Reads...)
	accesses = append(accesses, deps.Writes...)

	var systems []equationSystem
	for _, w := range deps.Writes {
		for _, a := range accesses {
			if sameAccess(w, a) {
				continue
			}
			systems = append(systems, buildSystem(w, a))
		}
	}
	return systems
}

func sameAccess(a, b nest.Access) bool {
	if len(a.Subscripts) != len(b.Subscripts) {
		return false
	}
	for i := range a.Subscripts {
		if !a.Subscripts[i].Equal(b.Subscripts[i]) {
			return false
		}
	}
	return true
}

// buildSystem builds the per-subscript equations of spec.md §4.3 for
// a write w and another access a.
func buildSystem(w, a nest.Access) equationSystem {
	lhs := make(intmat.Matrix, 0, len(w.Subscripts))
	rhs := make(intmat.Vector, 0, len(w.Subscripts))

	for s := range w.Subscripts {
		writeIdx := w.Subscripts[s]
		accessIdx := a.Subscripts[s]
		d := len(writeIdx) - 1 // induction-variable count for this nest

		eq := make(intmat.Vector, 2*d-1)
		eq[0] = writeIdx[0] - accessIdx[0]
		for k := 1; k < d; k++ {
			eq[k] = writeIdx[k]
		}
		for k := 1; k < d; k++ {
			eq[d-1+k] = -accessIdx[k]
		}
		lhs = append(lhs, eq)
		rhs = append(rhs, accessIdx[d]-writeIdx[d])
	}

	return equationSystem{lhs: lhs, rhs: rhs}
}
