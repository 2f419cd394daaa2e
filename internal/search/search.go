// Package search implements the generator-walk transformation search
// of spec.md §4.4: enumerate unimodular matrices as products of a
// fixed generator pair until one both breaks the nest's inner-loop
// dependence and preserves every existing dependence's direction.
package search

import (
	"github.com/sentra-lang/polytope/internal/dependence"
	"github.com/sentra-lang/polytope/internal/intmat"
	"github.com/sentra-lang/polytope/internal/nest"
)

// DefaultDepth is the recommended search-tree depth bound from
// spec.md §4.4.
const DefaultDepth = 5

// Find searches for a unimodular transform under which deps no longer
// carries a dependence and which does not reverse the direction of any
// existing write/read dependence. It returns ok=false if the search
// exhausts depth without success.
func Find(deps nest.Dependencies, depth int) (intmat.Matrix, bool) {
	if !dependence.HasLoopCarrierDependencies(deps) {
		return nil, false
	}
	dim := ivCount(deps)
	genA, genB := intmat.GetGenerators(dim)
	return search(deps, genA, genB, intmat.Identity(dim), depth)
}

func search(deps nest.Dependencies, genA, genB, t intmat.Matrix, depth int) (intmat.Matrix, bool) {
	transformed := transformDependencies(deps, t)
	if !dependence.HasLoopCarrierDependencies(transformed) && preservesDirections(deps, t) {
		return t, true
	}
	if depth == 0 {
		return nil, false
	}
	depth--

	if found, ok := search(deps, genA, genB, intmat.Multiply(genA, t), depth); ok {
		return found, true
	}
	return search(deps, genA, genB, intmat.Multiply(genB, t), depth)
}

// transformDependencies applies t to every access vector in deps,
// extending t to a (d+1)x(d+1) matrix that leaves the constant term
// untouched (a zero row/column plus a 1 in the new diagonal slot).
func transformDependencies(deps nest.Dependencies, t intmat.Matrix) nest.Dependencies {
	ext := extend(t)
	tx := func(accesses []nest.Access) []nest.Access {
		out := make([]nest.Access, len(accesses))
		for i, a := range accesses {
			subs := make([]intmat.Vector, len(a.Subscripts))
			for j, v := range a.Subscripts {
				subs[j] = intmat.LinearTransform(ext, v)
			}
			out[i] = nest.Access{Subscripts: subs, IsWrite: a.IsWrite, Inst: a.Inst}
		}
		return out
	}
	return nest.Dependencies{Writes: tx(deps.Writes), Reads: tx(deps.Reads)}
}

func extend(t intmat.Matrix) intmat.Matrix {
	dim := t.Rows()
	ext := intmat.Zeros(dim+1, dim+1)
	for i := 0; i < dim; i++ {
		copy(ext[i], t[i])
	}
	ext[dim][dim] = 1
	return ext
}

// preservesDirections implements spec.md §4.4 step 3: for every write
// and read, forms the per-subscript difference of constant terms and
// applies t (the un-extended d x d transform); if any component's sign
// flips (strictly positive to strictly negative or the reverse), the
// candidate is rejected. Design Note "Open question - direction
// preservation" applies: this only compares constant terms of each
// write against each read and under-approximates true dependence
// vectors when subscripts carry more than one non-zero coefficient.
func preservesDirections(deps nest.Dependencies, t intmat.Matrix) bool {
	for _, w := range deps.Writes {
		for _, r := range deps.Reads {
			diff := make(intmat.Vector, len(w.Subscripts))
			for i := range w.Subscripts {
				wc := w.Subscripts[i][len(w.Subscripts[i])-1]
				rc := r.Subscripts[i][len(r.Subscripts[i])-1]
				diff[i] = wc - rc
			}
			transformed := intmat.LinearTransform(t, diff)
			for i := range diff {
				if (diff[i] > 0 && transformed[i] < 0) || (diff[i] < 0 && transformed[i] > 0) {
					return false
				}
			}
		}
	}
	return true
}

func ivCount(deps nest.Dependencies) int {
	for _, w := range deps.Writes {
		if len(w.Subscripts) > 0 {
			return len(w.Subscripts[0]) - 1
		}
	}
	for _, r := range deps.Reads {
		if len(r.Subscripts) > 0 {
			return len(r.Subscripts[0]) - 1
		}
	}
	return 0
}
