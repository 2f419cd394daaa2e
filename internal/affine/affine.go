// Package affine lifts IR scalar values into the affine coefficient
// vectors spec.md §3/§4.2 describe: a pure, read-only recognizer that
// never mutates IR and never recurses into an unrecognized phi.
package affine

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"

	"github.com/sentra-lang/polytope/internal/hostir"
	"github.com/sentra-lang/polytope/internal/intmat"
)

// smaxIntrinsic is the host integer-max intrinsic spec.md §4.2/§6
// names; treating it as element-wise max of its lifted arguments is
// only sound when both are themselves non-negative linear
// combinations (Design Note "Max-intrinsic in bounds") - this package
// does not re-verify that, matching the original source.
const smaxIntrinsic = "llvm.smax.i32"

// Lift recognizes whether v is an affine function of the induction
// variables in ivs (outermost first) and, if so, returns its
// coefficient vector of length len(ivs)+1.
func Lift(v value.Value, ivs []*hostir.InductionVar) (intmat.Vector, bool) {
	if c, ok := v.(*constant.Int); ok {
		res := make(intmat.Vector, len(ivs)+1)
		res[len(ivs)] = c.X.Int64()
		return res, true
	}

	if phi, ok := v.(*ir.InstPhi); ok {
		for k, iv := range ivs {
			if iv.Phi == phi {
				res := make(intmat.Vector, len(ivs)+1)
				res[k] = 1
				return res, true
			}
		}
		// An unrecognized phi is opaque: never recurse into its
		// incoming values, since they may cycle back through itself
		// (Design Note "Cyclic IR references").
		return nil, false
	}

	switch inst := v.(type) {
	case *ir.InstAdd:
		return combine(inst.X, inst.Y, ivs, add)
	case *ir.InstSub:
		return combine(inst.X, inst.Y, ivs, sub)
	case *ir.InstMul:
		return liftScaled(inst.X, inst.Y, ivs)
	case *ir.InstShl:
		shift, ok := constInt(inst.Y)
		if !ok {
			return nil, false
		}
		base, ok := Lift(inst.X, ivs)
		if !ok {
			return nil, false
		}
		return scale(base, int64(1)<<uint(shift)), true
	case *ir.InstXor:
		k, ok := constInt(inst.Y)
		if !ok || k != -1 {
			return nil, false
		}
		base, ok := Lift(inst.X, ivs)
		if !ok {
			return nil, false
		}
		res := scale(base, -1)
		res[len(res)-1]--
		return res, true
	case *ir.InstCall:
		callee, ok := inst.Callee.(*ir.Func)
		if !ok || callee.Name() != smaxIntrinsic {
			return nil, false
		}
		if len(inst.Args) != 2 {
			return nil, false
		}
		return combine(inst.Args[0], inst.Args[1], ivs, maxElem)
	case *ir.InstTrunc:
		return Lift(inst.From, ivs)
	case *ir.InstSExt:
		return Lift(inst.From, ivs)
	case *ir.InstZExt:
		return Lift(inst.From, ivs)
	default:
		return nil, false
	}
}

func constInt(v value.Value) (int64, bool) {
	c, ok := v.(*constant.Int)
	if !ok {
		return 0, false
	}
	return c.X.Int64(), true
}

func combine(x, y value.Value, ivs []*hostir.InductionVar, op func(a, b int64) int64) (intmat.Vector, bool) {
	fst, ok := Lift(x, ivs)
	if !ok {
		return nil, false
	}
	snd, ok := Lift(y, ivs)
	if !ok {
		return nil, false
	}
	res := make(intmat.Vector, len(fst))
	for i := range fst {
		res[i] = op(fst[i], snd[i])
	}
	return res, true
}

// liftScaled handles multiplication, which requires at least one
// operand to be a constant.
func liftScaled(x, y value.Value, ivs []*hostir.InductionVar) (intmat.Vector, bool) {
	if k, ok := constInt(x); ok {
		base, ok := Lift(y, ivs)
		if !ok {
			return nil, false
		}
		return scale(base, k), true
	}
	if k, ok := constInt(y); ok {
		base, ok := Lift(x, ivs)
		if !ok {
			return nil, false
		}
		return scale(base, k), true
	}
	return nil, false
}

func scale(v intmat.Vector, k int64) intmat.Vector {
	res := make(intmat.Vector, len(v))
	for i, e := range v {
		res[i] = e * k
	}
	return res
}

func add(a, b int64) int64 { return a + b }
func sub(a, b int64) int64 { return a - b }
func maxElem(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
