// Package recognizer implements the perfect-nest acceptance test of
// spec.md §4.5, grounded on PolytopePass::IsPerfectNest/RunAnalysis:
// given a candidate outer loop it verifies the structural and
// induction-variable requirements and, on acceptance, returns a
// populated nest.Nest.
package recognizer

import (
	"github.com/llir/llvm/ir"

	"github.com/sentra-lang/polytope/internal/declerr"
	"github.com/sentra-lang/polytope/internal/hostir"
	"github.com/sentra-lang/polytope/internal/nest"
)

// Recognize applies spec.md §4.5's acceptance rules to the candidate
// outer loop l within cfg. It fails with declerr.ErrUnsupportedNest
// both when the structural shape is wrong and when either loop's
// induction variable or bounds cannot be analyzed.
func Recognize(cfg *hostir.CFG, l *hostir.Loop) (*nest.Nest, error) {
	outerIV, ok := hostir.RecognizeInductionVariable(l)
	if !ok {
		return nil, declerr.ErrUnsupportedNest
	}
	if outerIV.Init == nil || outerIV.Final == nil {
		return nil, declerr.ErrUnsupportedNest
	}
	if !cfg.IsLoopInvariant(l, outerIV.Init) || !cfg.IsLoopInvariant(l, outerIV.Final) {
		return nil, declerr.ErrUnsupportedNest
	}

	if len(l.SubLoops) != 1 {
		return nil, declerr.ErrUnsupportedNest
	}
	inner := l.SubLoops[0]
	if len(inner.SubLoops) != 0 {
		return nil, declerr.ErrUnsupportedNest
	}

	if !isPerfectNest(cfg, l, inner) {
		return nil, declerr.ErrUnsupportedNest
	}

	innerIV, ok := hostir.RecognizeInductionVariable(inner)
	if !ok {
		return nil, declerr.ErrUnsupportedNest
	}
	if innerIV.Init == nil || innerIV.Final == nil {
		return nil, declerr.ErrUnsupportedNest
	}
	if !cfg.IsLoopInvariant(l, innerIV.Init) || !cfg.IsLoopInvariant(l, innerIV.Final) {
		return nil, declerr.ErrUnsupportedNest
	}

	return &nest.Nest{Outer: l, Inner: inner, OuterIV: outerIV, InnerIV: innerIV}, nil
}

// isPerfectNest checks spec.md §4.5's layout rule: the inner loop's
// header, or its preheader when one exists as a trivial block, follows
// directly after the outer header, and the inner loop's exit is the
// outer loop's latch.
func isPerfectNest(cfg *hostir.CFG, outer, inner *hostir.Loop) bool {
	entry := inner.Header
	if inner.Preheader != nil {
		entry = inner.Preheader
	}
	if !immediatelyFollows(cfg, outer.Header, entry) {
		return false
	}
	return inner.Exit == outer.Latch
}

// immediatelyFollows reports whether to is the outer header's sole
// successor in the control-flow graph - "immediately follows" read
// structurally rather than by textual block order.
func immediatelyFollows(cfg *hostir.CFG, from, to *ir.Block) bool {
	succs := cfg.Succs(cfg.ID(from))
	if len(succs) != 1 {
		return false
	}
	return succs[0] == cfg.ID(to)
}
