package nest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentra-lang/polytope/internal/intmat"
)

func vec(outer, inner, k int64) intmat.Vector { return intmat.Vector{outer, inner, k} }

func TestNewDependencies_DedupsStructurallyEqualAccesses(t *testing.T) {
	a := Access{Subscripts: []intmat.Vector{vec(1, 0, 0), vec(0, 1, 0)}, IsWrite: true}
	b := Access{Subscripts: []intmat.Vector{vec(1, 0, 0), vec(0, 1, 0)}, IsWrite: true}
	c := Access{Subscripts: []intmat.Vector{vec(1, 0, 0), vec(0, 1, -1)}, IsWrite: false}

	deps := NewDependencies([]Access{a, b}, []Access{c, c, c})

	require.Len(t, deps.Writes, 1, "a and b have identical subscripts and must collapse to one write")
	require.Len(t, deps.Reads, 1, "three identical reads must collapse to one")
}

func TestDepth_AlwaysTwo(t *testing.T) {
	n := &Nest{}
	require.Equal(t, 2, n.Depth())
}
