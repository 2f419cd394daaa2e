// Package declerr defines the sentinel "decline" errors a pass stage
// returns when it chooses not to transform a loop. A decline is not a
// bug: it means the original IR is left untouched and control returns
// to the host.
package declerr

import "errors"

var (
	// ErrUnsupportedNest means the loop is not a depth-2 perfect nest
	// with unit-step, analyzable bounds.
	ErrUnsupportedNest = errors.New("polytope: unsupported loop nest")

	// ErrNonAffine means a bound or subscript expression fell outside
	// the affine grammar the lifter recognizes.
	ErrNonAffine = errors.New("polytope: non-affine expression")

	// ErrNoDependence means the nest is already parallel along the
	// inner dimension.
	ErrNoDependence = errors.New("polytope: no loop-carried dependence")

	// ErrNoTransformation means the generator walk exhausted its depth
	// budget without finding an admissible unimodular transform.
	ErrNoTransformation = errors.New("polytope: no transformation found")

	// ErrSynthesisPreconditionMissing means an expected IR structural
	// handle (latch comparison, terminator, increment) was absent when
	// the synthesizer went to rewrite the nest.
	ErrSynthesisPreconditionMissing = errors.New("polytope: synthesis precondition missing")
)
