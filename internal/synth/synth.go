// Package synth rewrites an accepted loop nest in place under a chosen
// unimodular transformation, grounded line-for-line on the second half
// of PolytopePass::run. All new arithmetic is emitted through
// llir/llvm/ir's block builder methods rather than LLVM's IRBuilder.
package synth

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sentra-lang/polytope/internal/declerr"
	"github.com/sentra-lang/polytope/internal/hostir"
	"github.com/sentra-lang/polytope/internal/intmat"
	"github.com/sentra-lang/polytope/internal/nest"
)

// corner is one vertex of the original iteration rectangle: the
// outer-loop value paired with the inner-loop value.
type corner struct {
	outer value.Value
	inner value.Value
}

// Transform rewrites n's blocks to iterate in the space T maps the
// original (i, j) induction pair into, per spec.md §4.6. mod supplies
// the module the smin.i32/smax.i32 intrinsics are declared on. It
// returns intmat.ErrOverflow, before changing any IR, if an entry of T,
// its determinant or its Hermite form does not fit in an int32.
func Transform(mod *ir.Module, n *nest.Nest, t intmat.Matrix) error {
	if n.Outer.Preheader == nil || n.Outer.Latch == nil ||
		n.Inner.Preheader == nil || n.Inner.Latch == nil {
		return declerr.ErrSynthesisPreconditionMissing
	}
	outerCmp, ok := hostir.LatchComparison(n.Outer)
	if !ok {
		return declerr.ErrSynthesisPreconditionMissing
	}
	innerCmp, ok := hostir.LatchComparison(n.Inner)
	if !ok {
		return declerr.ErrSynthesisPreconditionMissing
	}

	a, b := t[0][0], t[0][1]
	c, d := t[1][0], t[1][1]
	det := a*d - b*c
	if det == 0 {
		return declerr.ErrSynthesisPreconditionMissing
	}
	h := intmat.HermiteNormal(t)

	// Every coefficient below is emitted as an i32 constant.
	for _, v := range []int64{a, b, c, d, det, h[0][0], h[1][0], h[1][1]} {
		if err := intmat.CheckInt32(v); err != nil {
			return err
		}
	}

	ll := corner{n.OuterIV.Init, n.InnerIV.Init}
	lr := corner{n.OuterIV.Init, n.InnerIV.Final}
	ul := corner{n.OuterIV.Final, n.InnerIV.Init}
	ur := corner{n.OuterIV.Final, n.InnerIV.Final}

	outerLo, outerHi, innerLo, innerHi := selectCorners(a, b, det, ll, lr, ul, ur)

	i32 := types.I32
	pre := n.Outer.Preheader
	header := n.Outer.Header
	latch := n.Outer.Latch
	innerPre := n.Inner.Preheader
	innerHeader := n.Inner.Header
	innerLatch := n.Inner.Latch

	// p_lower is loop-invariant: computed once in the preheader.
	pLower := linComb(pre, i32, a, outerLo.outer, b, outerLo.inner)

	p := ir.NewPhi(ir.NewIncoming(pLower, pre))
	prependPhi(header, p)

	// Outer latch: p_inc, p_upper, cond, conditional branch.
	pInc := latch.NewAdd(p, constI32(h[0][0]))
	pUpper := linComb(latch, i32, a, outerHi.outer, b, outerHi.inner)
	cond := latch.NewICmp(enum.IPredSLE, pInc, pUpper)
	p.Incs = append(p.Incs, ir.NewIncoming(pInc, latch))
	hostir.ReplaceAllUsesWith(ownerFunc(n), value.Value(outerCmp), cond)

	// Inner preheader: l1, l1_ceil, l3, q_upper, offset, q_lower.
	l1 := linCombSub(innerPre, i32, p, a, innerLo.outer, b, innerLo.inner)
	l1Ceil := ceilBound(mod, innerPre, i32, t, l1, innerLo, true)
	l3 := linCombSub(innerPre, i32, p, a, innerHi.outer, b, innerHi.inner)
	qUpper := ceilBound(mod, innerPre, i32, t, l3, innerHi, false)
	pDivH := innerPre.NewSDiv(p, constI32(h[0][0]))
	offsetBase := innerPre.NewSub(innerPre.NewMul(constI32(h[1][0]), pDivH), l1Ceil)
	offset := innerPre.NewSRem(offsetBase, constI32(h[1][1]))
	qLower := innerPre.NewAdd(l1Ceil, offset)

	q := ir.NewPhi(ir.NewIncoming(qLower, innerPre))
	prependPhi(innerHeader, q)

	qInc := innerLatch.NewAdd(q, constI32(1))
	innerCond := innerLatch.NewICmp(enum.IPredSLE, qInc, qUpper)
	q.Incs = append(q.Incs, ir.NewIncoming(qInc, innerLatch))
	hostir.ReplaceAllUsesWith(ownerFunc(n), value.Value(innerCmp), innerCond)

	// Recovered original induction values, computed just after q.
	iNew := innerHeader.NewSDiv(innerHeader.NewSub(innerHeader.NewMul(constI32(d), p), innerHeader.NewMul(constI32(b), q)), constI32(det))
	jNew := innerHeader.NewSDiv(innerHeader.NewSub(innerHeader.NewMul(constI32(a), q), innerHeader.NewMul(constI32(c), p)), constI32(det))

	fn := ownerFunc(n)
	hostir.ReplaceAllUsesWith(fn, value.Value(n.OuterIV.Phi), iNew)
	hostir.ReplaceAllUsesWith(fn, value.Value(n.InnerIV.Phi), jNew)

	hostir.EraseInstruction(header, n.OuterIV.Phi)
	hostir.EraseInstruction(innerHeader, n.InnerIV.Phi)

	return nil
}

// ownerFunc recovers the enclosing function of the nest. nest.Nest does
// not itself carry a *ir.Func, so this walks back through the outer
// header block's parent, the only structural link llir/llvm keeps.
func ownerFunc(n *nest.Nest) *ir.Func { return n.Outer.Header.Parent }

func constI32(v int64) *constant.Int { return constant.NewInt(types.I32, v) }

// linComb emits a·x.0 + b·y.0 into block, where x.0/y.0 are the
// corner's own outer/inner coordinates (used for loop-invariant bound
// expressions).
func linComb(block *ir.Block, ty *types.IntType, a int64, x value.Value, b int64, y value.Value) value.Value {
	ax := scaled(block, a, x)
	by := scaled(block, b, y)
	return block.NewAdd(ax, by)
}

// linCombSub emits p - a·x - b·y, the l1/l3 bound-recovery expressions.
func linCombSub(block *ir.Block, ty *types.IntType, p value.Value, a int64, x value.Value, b int64, y value.Value) value.Value {
	sum := linComb(block, ty, a, x, b, y)
	return block.NewSub(p, sum)
}

func scaled(block *ir.Block, k int64, v value.Value) value.Value {
	if k == 1 {
		return v
	}
	if k == 0 {
		return constI32(0)
	}
	return block.NewMul(constI32(k), v)
}

// ceilBound implements the two-piece ceil/floor bound-recovery
// expression from spec.md §4.6. upper selects the l1_ceil variant
// (missing column treated as -inf, take max) versus the q_upper
// variant (missing column treated as +inf, take min); both fall back
// to the smin.i32/smax.i32 host intrinsics spec.md §6 names when both
// columns of T's first row are non-zero.
func ceilBound(mod *ir.Module, block *ir.Block, ty *types.IntType, t intmat.Matrix, l value.Value, corner corner, upper bool) value.Value {
	var pieces []value.Value
	for x := 0; x < 2; x++ {
		t0x := t[0][x]
		if t0x == 0 {
			continue
		}
		floorDiv := block.NewSDiv(l, constI32(t0x))
		rem := block.NewSRem(l, constI32(t0x))
		minRemOne := minOfConstOne(mod, block, rem)
		term := block.NewAdd(block.NewMul(constI32(t[1][x]), floorDiv), minRemOne)
		pieces = append(pieces, term)
	}

	var combined value.Value
	switch len(pieces) {
	case 0:
		combined = constI32(0)
	case 1:
		combined = pieces[0]
	default:
		name := "llvm.smin.i32"
		if upper {
			name = "llvm.smax.i32"
		}
		combined = block.NewCall(intrinsic(mod, name), pieces[0], pieces[1])
	}

	var base value.Value = constI32(0)
	for x := 0; x < 2; x++ {
		var coord value.Value
		if x == 0 {
			coord = corner.outer
		} else {
			coord = corner.inner
		}
		base = block.NewAdd(base, scaled(block, t[1][x], coord))
	}
	return block.NewAdd(combined, base)
}

func minOfConstOne(mod *ir.Module, block *ir.Block, rem value.Value) value.Value {
	return block.NewCall(intrinsic(mod, "llvm.smin.i32"), rem, constI32(1))
}

// intrinsic looks up name on mod, declaring it as an external function
// taking two i32s and returning an i32 the first time it is needed so
// repeated pass invocations over the same module reuse one
// declaration - the C++ source's "if not already present" intent,
// supplemented here since the original does not actually check.
func intrinsic(mod *ir.Module, name string) *ir.Func {
	for _, f := range mod.Funcs {
		if f.Name() == name {
			return f
		}
	}
	fn := mod.NewFunc(name, types.I32, ir.NewParam("a", types.I32), ir.NewParam("b", types.I32))
	return fn
}

// prependPhi inserts phi as the block's first instruction, keeping the
// rest of the instruction list intact.
func prependPhi(block *ir.Block, phi *ir.InstPhi) {
	block.Insts = append([]ir.Instruction{phi}, block.Insts...)
}

// selectCorners applies spec.md §4.6's sign-pattern table.
func selectCorners(a, b, det int64, ll, lr, ul, ur corner) (outerLo, outerHi, innerLo, innerHi corner) {
	aPos := a > 0
	bPos := b > 0
	detPos := det > 0

	switch {
	case aPos && bPos:
		outerLo, outerHi = ll, ur
		if detPos {
			innerLo, innerHi = lr, ul
		} else {
			innerLo, innerHi = ul, lr
		}
	case !aPos && bPos:
		outerLo, outerHi = lr, ul
		if detPos {
			innerLo, innerHi = ur, ll
		} else {
			innerLo, innerHi = ll, ur
		}
	case aPos && !bPos:
		outerLo, outerHi = ul, lr
		if detPos {
			innerLo, innerHi = ll, ur
		} else {
			innerLo, innerHi = ur, ll
		}
	default:
		outerLo, outerHi = ur, ll
		if detPos {
			innerLo, innerHi = ul, lr
		} else {
			innerLo, innerHi = lr, ul
		}
	}
	return
}
