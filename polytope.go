// Package polytope implements the loop-nest polytope optimization pass:
// given a depth-2 perfect loop nest with an inner-dimension loop-carried
// dependence, search for a unimodular coordinate transform that removes
// it, and resynthesize the nest's induction-variable arithmetic under
// that transform. Unchanged nests are returned exactly as given - a
// decline is a normal, expected outcome, not a failure.
package polytope

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/sentra-lang/polytope/internal/affine"
	"github.com/sentra-lang/polytope/internal/declerr"
	"github.com/sentra-lang/polytope/internal/dependence"
	"github.com/sentra-lang/polytope/internal/diag"
	"github.com/sentra-lang/polytope/internal/hostir"
	"github.com/sentra-lang/polytope/internal/intmat"
	"github.com/sentra-lang/polytope/internal/nest"
	"github.com/sentra-lang/polytope/internal/recognizer"
	"github.com/sentra-lang/polytope/internal/search"
	"github.com/sentra-lang/polytope/internal/synth"
)

// Option configures a Pass, following the functional-options pattern
// katalvlaran/lvlath uses for its GraphOption family.
type Option func(*Pass)

// WithSearchDepth overrides the transformation searcher's recursion
// bound (search.DefaultDepth otherwise).
func WithSearchDepth(depth int) Option {
	return func(p *Pass) { p.searchDepth = depth }
}

// WithLogger attaches a diagnostics sink; declining pass stages log to
// it at debug level, acceptances at info level.
func WithLogger(w io.Writer) Option {
	return func(p *Pass) { p.log = diag.New(w) }
}

// Pass is one configured instance of the loop-nest optimization pass.
// A Pass carries no state across invocations beyond its configuration:
// spec.md §5 requires per-loop scratch to be cleared at the start of
// each Run.
type Pass struct {
	searchDepth int
	log         diag.Logger
}

// New builds a Pass with opts applied over the defaults.
func New(opts ...Option) *Pass {
	p := &Pass{searchDepth: search.DefaultDepth, log: diag.New(nil)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry is the plugin-registration convention spec.md §6 describes:
// a host loop-pass manager looks passes up by name before constructing
// one.
var Registry = map[string]func(opts ...Option) *Pass{
	"polytope": New,
}

// Run executes the pass over every depth-2 perfect loop nest it can
// find in fn, applying spec.md §2's Loop Recognizer -> Affine Lifter ->
// Dependence Analyzer -> Transformation Searcher -> Code Synthesizer
// pipeline to each one. changed reports whether any nest was rewritten.
func (p *Pass) Run(mod *ir.Module, fn *ir.Func) (changed bool, err error) {
	cfg, err := hostir.BuildCFG(fn)
	if err != nil {
		return false, fmt.Errorf("polytope: %w", err)
	}

	for _, loop := range hostir.FindNaturalLoops(cfg) {
		if len(loop.SubLoops) != 1 {
			continue // not an outer loop of a depth-2 nest
		}
		ok, err := p.runOnNest(mod, cfg, loop)
		if err != nil {
			p.log.Decline(fn.Ident(), "pass", err)
			continue
		}
		changed = changed || ok
	}
	return changed, nil
}

func (p *Pass) runOnNest(mod *ir.Module, cfg *hostir.CFG, outer *hostir.Loop) (bool, error) {
	n, err := recognizer.Recognize(cfg, outer)
	if err != nil {
		return false, err
	}

	deps, err := collectDependencies(cfg, n)
	if err != nil {
		return false, err
	}

	if !dependence.HasLoopCarrierDependencies(deps) {
		return false, declerr.ErrNoDependence
	}

	t, ok := search.Find(deps, p.searchDepth)
	if !ok {
		return false, declerr.ErrNoTransformation
	}

	if err := synth.Transform(mod, n, t); err != nil {
		return false, err
	}

	p.log.Accept(cfg.Func.Ident(), t)
	return true, nil
}

// collectDependencies scans the inner loop's body for load/store
// instructions through a GetElementPtr whose indices are affine in the
// nest's two induction variables, building the nest.Dependencies set
// the Dependence Analyzer and Transformation Searcher both operate
// over.
func collectDependencies(cfg *hostir.CFG, n *nest.Nest) (nest.Dependencies, error) {
	ivs := []*hostir.InductionVar{n.OuterIV, n.InnerIV}
	var writes, reads []nest.Access

	for id := range n.Inner.Body {
		b := cfg.Block(id)
		for _, inst := range b.Insts {
			switch in := inst.(type) {
			case *ir.InstStore:
				gep, ok := in.Dst.(*ir.InstGetElementPtr)
				if !ok {
					continue
				}
				subs, ok := liftIndices(gep, ivs)
				if !ok {
					return nest.Dependencies{}, declerr.ErrNonAffine
				}
				writes = append(writes, nest.Access{Subscripts: subs, IsWrite: true, Inst: in})
			case *ir.InstLoad:
				gep, ok := in.Src.(*ir.InstGetElementPtr)
				if !ok {
					continue
				}
				subs, ok := liftIndices(gep, ivs)
				if !ok {
					return nest.Dependencies{}, declerr.ErrNonAffine
				}
				reads = append(reads, nest.Access{Subscripts: subs, IsWrite: false, Inst: in})
			}
		}
	}

	return nest.NewDependencies(writes, reads), nil
}

// liftIndices lifts a GetElementPtr's dimension indices into affine
// coefficient vectors, dropping the leading pointer-dereference index a
// multi-dimensional-array GEP carries (e.g. `getelementptr [N x [N x
// i32]], ptr %A, i64 0, i64 %i, i64 %j`): that first index always walks
// through the pointer itself, not a true array dimension, and is only
// present when the indexed type is an aggregate. A flattened pointer
// GEP (scalar element type, one combined offset index) has no such
// index to drop.
func liftIndices(gep *ir.InstGetElementPtr, ivs []*hostir.InductionVar) ([]intmat.Vector, bool) {
	indices := gep.Indices
	if isAggregate(gep.ElemType) && len(indices) > 0 {
		indices = indices[1:]
	}

	subs := make([]intmat.Vector, 0, len(indices))
	for _, idx := range indices {
		v, ok := affine.Lift(idx, ivs)
		if !ok {
			return nil, false
		}
		subs = append(subs, v)
	}
	return subs, true
}

func isAggregate(t types.Type) bool {
	switch t.(type) {
	case *types.ArrayType, *types.StructType:
		return true
	default:
		return false
	}
}
