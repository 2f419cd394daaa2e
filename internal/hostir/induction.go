package hostir

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// InductionVar is the triple spec.md §3 calls an induction-variable
// record: the phi naming the variable, and the loop-invariant
// expressions used to initialise and bound it.
type InductionVar struct {
	Phi   *ir.InstPhi
	Init  value.Value
	Final value.Value
}

// RecognizeInductionVariable looks for the loop's single phi with one
// incoming value from the preheader (the initial value) and one from
// the latch that increments the phi by a constant step of exactly one,
// per spec.md §1's "does not... handle non-unit strides".
func RecognizeInductionVariable(l *Loop) (*InductionVar, bool) {
	if l.Preheader == nil || l.Latch == nil {
		return nil, false
	}
	for _, inst := range l.Header.Insts {
		phi, ok := inst.(*ir.InstPhi)
		if !ok {
			continue
		}
		var init value.Value
		var latchValue value.Value
		for _, inc := range phi.Incs {
			switch inc.Pred {
			case l.Preheader:
				init = inc.X
			case l.Latch:
				latchValue = inc.X
			}
		}
		if init == nil || latchValue == nil {
			continue
		}
		add, ok := latchValue.(*ir.InstAdd)
		if !ok {
			continue
		}
		step, stepOk := stepOperand(add, phi)
		if !stepOk || !isConstantOne(step) {
			continue
		}
		iv := &InductionVar{Phi: phi}
		if init, final, ok := GetBounds(l, iv); ok {
			iv.Init, iv.Final = init, final
		}
		return iv, true
	}
	return nil, false
}

// stepOperand returns the non-phi operand of an increment add, the
// "step" the induction variable advances by each iteration.
func stepOperand(add *ir.InstAdd, phi *ir.InstPhi) (value.Value, bool) {
	if add.X == value.Value(phi) {
		return add.Y, true
	}
	if add.Y == value.Value(phi) {
		return add.X, true
	}
	return nil, false
}

func isConstantOne(v value.Value) bool {
	n, ok := asConstantInt(v)
	return ok && n == 1
}

// GetBounds reads the latch's comparison to recover the loop's initial
// and final induction-variable values: the initial value is the phi's
// incoming value from the preheader, and the final value is the other
// operand of the latch's icmp (the value the incremented variable is
// compared against).
func GetBounds(l *Loop, iv *InductionVar) (init, final value.Value, ok bool) {
	for _, inc := range iv.Phi.Incs {
		if inc.Pred == l.Preheader {
			init = inc.X
		}
	}
	if init == nil {
		return nil, nil, false
	}

	cmp, ok := latchComparison(l)
	if !ok {
		return nil, nil, false
	}
	if _, isInductionSide := cmp.X.(*ir.InstAdd); isInductionSide {
		return init, cmp.Y, true
	}
	if _, isInductionSide := cmp.Y.(*ir.InstAdd); isInductionSide {
		return init, cmp.X, true
	}
	return nil, nil, false
}

// latchComparison returns the icmp instruction feeding the latch's
// conditional branch, if any.
func latchComparison(l *Loop) (*ir.InstICmp, bool) {
	condBr, ok := l.Latch.Term.(*ir.TermCondBr)
	if !ok {
		return nil, false
	}
	cmp, ok := condBr.Cond.(*ir.InstICmp)
	return cmp, ok
}

// LatchComparison exposes latchComparison to the synthesizer, which
// needs to erase the old comparison when rewriting the loop.
func LatchComparison(l *Loop) (*ir.InstICmp, bool) { return latchComparison(l) }

// IsLoopInvariant reports whether v is unaffected by executing the
// loop: true for constants, and for any instruction defined outside
// the loop's body. No deeper alias or dominance analysis is attempted
// - sufficient for the reducible, simplified-form CFGs this pass
// accepts.
func (cfg *CFG) IsLoopInvariant(l *Loop, v value.Value) bool {
	if _, ok := asConstantInt(v); ok {
		return true
	}
	inst, ok := v.(ir.Instruction)
	if !ok {
		return true
	}
	owner := instructionBlock(cfg, inst)
	if owner == "" {
		return true
	}
	return !l.Body[owner]
}

// instructionBlock finds the block that contains inst by linear scan -
// loop nests here hold a handful of instructions, so this is cheap
// enough to avoid maintaining a separate inst->block index.
func instructionBlock(cfg *CFG, inst ir.Instruction) string {
	for id, b := range cfg.blocks {
		for _, i := range b.Insts {
			if i == inst {
				return id
			}
		}
	}
	return ""
}
