package dependence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentra-lang/polytope/internal/intmat"
	"github.com/sentra-lang/polytope/internal/nest"
)

// vec builds a two-induction-variable affine coefficient vector
// [outerCoeff, innerCoeff, constant].
func vec(outer, inner, k int64) intmat.Vector { return intmat.Vector{outer, inner, k} }

func TestHasLoopCarrierDependencies_CarriedOnInner(t *testing.T) {
	// A[i][j] = A[i][j-1]: write subscript j, read subscript j-1, same
	// row i. The inner dimension is trivially carried since i_0 = j_0
	// (outer held equal) and j - (j-1) = 1 is solvable.
	write := nest.Access{Subscripts: []intmat.Vector{vec(1, 0, 0), vec(0, 1, 0)}, IsWrite: true}
	read := nest.Access{Subscripts: []intmat.Vector{vec(1, 0, 0), vec(0, 1, -1)}, IsWrite: false}

	deps := nest.NewDependencies([]nest.Access{write}, []nest.Access{read})
	require.True(t, HasLoopCarrierDependencies(deps), "expected a loop-carried dependence between A[i][j] and A[i][j-1]")
}

func TestHasLoopCarrierDependencies_Independent(t *testing.T) {
	// A[i][2*j] = A[i][2*j+1]: a write and a read that can never
	// produce an integer solution because the constant offset is never
	// reachable (2*j and 2*j+1 never coincide for any integer j).
	write := nest.Access{Subscripts: []intmat.Vector{vec(1, 0, 0), vec(0, 2, 0)}, IsWrite: true}
	read := nest.Access{Subscripts: []intmat.Vector{vec(1, 0, 0), vec(0, 2, 1)}, IsWrite: false}

	deps := nest.NewDependencies([]nest.Access{write}, []nest.Access{read})
	require.False(t, HasLoopCarrierDependencies(deps), "2*j and 2*j+1 never coincide")
}

func TestHasLoopCarrierDependencies_SameAccessSkipped(t *testing.T) {
	access := nest.Access{Subscripts: []intmat.Vector{vec(1, 0, 0), vec(0, 1, 0)}, IsWrite: true}
	deps := nest.NewDependencies([]nest.Access{access}, nil)
	require.False(t, HasLoopCarrierDependencies(deps), "a single write should never be tested against itself")
}
