package hostir

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// ReplaceAllUsesWith rewrites every operand of every instruction and
// terminator in fn that points at old to instead point at newVal. The
// llir/llvm IR model keeps no use-def chains (unlike LLVM's C++
// Value::replaceAllUsesWith), so this package supplies the structural
// walk spec.md §6 lists as a host "Mutation" capability.
func ReplaceAllUsesWith(fn *ir.Func, old, newVal value.Value) {
	swap := func(v *value.Value) {
		if *v == old {
			*v = newVal
		}
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			rewriteOperands(inst, swap)
		}
		rewriteTerminator(b.Term, swap)
	}
}

func rewriteOperands(inst ir.Instruction, swap func(*value.Value)) {
	switch i := inst.(type) {
	case *ir.InstAdd:
		swap(&i.X)
		swap(&i.Y)
	case *ir.InstSub:
		swap(&i.X)
		swap(&i.Y)
	case *ir.InstMul:
		swap(&i.X)
		swap(&i.Y)
	case *ir.InstShl:
		swap(&i.X)
		swap(&i.Y)
	case *ir.InstXor:
		swap(&i.X)
		swap(&i.Y)
	case *ir.InstSDiv:
		swap(&i.X)
		swap(&i.Y)
	case *ir.InstSRem:
		swap(&i.X)
		swap(&i.Y)
	case *ir.InstICmp:
		swap(&i.X)
		swap(&i.Y)
	case *ir.InstCall:
		swap(&i.Callee)
		for j := range i.Args {
			swap(&i.Args[j])
		}
	case *ir.InstGetElementPtr:
		swap(&i.Src)
		for j := range i.Indices {
			swap(&i.Indices[j])
		}
	case *ir.InstLoad:
		swap(&i.Src)
	case *ir.InstStore:
		swap(&i.Src)
		swap(&i.Dst)
	case *ir.InstPhi:
		for _, inc := range i.Incs {
			swap(&inc.X)
		}
	case *ir.InstTrunc:
		swap(&i.From)
	case *ir.InstSExt:
		swap(&i.From)
	case *ir.InstZExt:
		swap(&i.From)
	}
}

func rewriteTerminator(term ir.Terminator, swap func(*value.Value)) {
	switch t := term.(type) {
	case *ir.TermCondBr:
		swap(&t.Cond)
	case *ir.TermRet:
		if t.X != nil {
			swap(&t.X)
		}
	}
}

// EraseInstruction removes inst from its block's instruction list.
func EraseInstruction(b *ir.Block, inst ir.Instruction) {
	for i, cur := range b.Insts {
		if cur == inst {
			b.Insts = append(b.Insts[:i], b.Insts[i+1:]...)
			return
		}
	}
}

// FindIncoming returns the value a phi receives from a given
// predecessor block, or nil if pred is not one of its incoming edges.
func FindIncoming(phi *ir.InstPhi, pred *ir.Block) value.Value {
	for _, inc := range phi.Incs {
		if inc.Pred == pred {
			return inc.X
		}
	}
	return nil
}
