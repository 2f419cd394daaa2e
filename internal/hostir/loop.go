package hostir

import "github.com/llir/llvm/ir"

// Loop is a single natural loop: a header dominating every block in
// its body, reached by at least one back edge from a latch.
type Loop struct {
	Header    *ir.Block
	Latch     *ir.Block
	Preheader *ir.Block // nil if the header has more than one non-latch predecessor
	Exit      *ir.Block // nil if the latch's terminator doesn't leave the loop
	Body      map[string]bool
	SubLoops  []*Loop

	cfg *CFG
}

// dominators computes, for every block reachable from entry, the set
// of blocks that dominate it, by the standard iterative data-flow
// fixpoint: Dom(entry) = {entry}; Dom(n) = {n} u intersection over
// preds(n) of Dom(p). Loop nests here are two blocks deep at most, so
// a fixpoint over an unordered worklist is simple and fast enough;
// there is no need for a reverse-postorder schedule.
func dominators(cfg *CFG, entry string) map[string]map[string]bool {
	all := make(map[string]bool)
	for id := range cfg.blocks {
		all[id] = true
	}

	dom := make(map[string]map[string]bool, len(cfg.blocks))
	for id := range cfg.blocks {
		if id == entry {
			dom[id] = map[string]bool{entry: true}
		} else {
			dom[id] = cloneSet(all)
		}
	}

	changed := true
	for changed {
		changed = false
		for id := range cfg.blocks {
			if id == entry {
				continue
			}
			preds := cfg.Preds(id)
			if len(preds) == 0 {
				continue
			}
			next := cloneSet(dom[preds[0]])
			for _, p := range preds[1:] {
				intersect(next, dom[p])
			}
			next[id] = true
			if !setEqual(next, dom[id]) {
				dom[id] = next
				changed = true
			}
		}
	}
	return dom
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersect(dst, src map[string]bool) {
	for k := range dst {
		if !src[k] {
			delete(dst, k)
		}
	}
}

func setEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// FindNaturalLoops finds every back edge (an edge n -> h where h
// dominates n) reachable from the function's entry block and
// materializes one Loop per distinct header, with Preheader/Latch/Exit
// recovered under the simplified-loop-form assumption this package
// documents at its top.
func FindNaturalLoops(cfg *CFG) []*Loop {
	if len(cfg.Func.Blocks) == 0 {
		return nil
	}
	entry := cfg.ID(cfg.Func.Blocks[0])
	dom := dominators(cfg, entry)

	headerOrder := make([]string, 0)
	latchByHeader := make(map[string]string)
	for n := range cfg.blocks {
		for _, h := range cfg.Succs(n) {
			if dom[n][h] {
				if _, seen := latchByHeader[h]; !seen {
					headerOrder = append(headerOrder, h)
				}
				latchByHeader[h] = n
			}
		}
	}

	loops := make(map[string]*Loop, len(headerOrder))
	for _, h := range headerOrder {
		latch := latchByHeader[h]
		body := loopBody(cfg, h, latch)

		loop := &Loop{
			Header: cfg.Block(h),
			Latch:  cfg.Block(latch),
			Body:   body,
			cfg:    cfg,
		}

		if pre := singlePreheader(cfg, h, body); pre != "" {
			loop.Preheader = cfg.Block(pre)
		}
		if exit := latchExit(cfg, latch, h); exit != "" {
			loop.Exit = cfg.Block(exit)
		}
		loops[h] = loop
	}

	for h, loop := range loops {
		for otherHeader, other := range loops {
			if otherHeader == h {
				continue
			}
			if loop.Body[otherHeader] {
				loop.SubLoops = append(loop.SubLoops, other)
			}
		}
	}

	result := make([]*Loop, 0, len(headerOrder))
	for _, h := range headerOrder {
		result = append(result, loops[h])
	}
	return result
}

// loopBody grows the loop's block set upward from the latch until it
// reaches the header, which is the standard natural-loop body
// construction for a single back edge.
func loopBody(cfg *CFG, header, latch string) map[string]bool {
	body := map[string]bool{header: true}
	if header == latch {
		return body
	}
	stack := []string{latch}
	body[latch] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range cfg.Preds(n) {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	return body
}

// singlePreheader returns the header's unique predecessor outside the
// loop body, or "" if there isn't exactly one.
func singlePreheader(cfg *CFG, header string, body map[string]bool) string {
	candidate := ""
	for _, p := range cfg.Preds(header) {
		if body[p] {
			continue
		}
		if candidate != "" {
			return ""
		}
		candidate = p
	}
	return candidate
}

// latchExit returns the target of the latch's terminator that is not
// the header - the block the loop falls through to on exit - or "" if
// the latch does not end in a conditional branch back to the header.
func latchExit(cfg *CFG, latch, header string) string {
	term := cfg.Block(latch).Term
	condBr, ok := term.(*ir.TermCondBr)
	if !ok {
		return ""
	}
	trueID, falseID := cfg.ID(condBr.TargetTrue), cfg.ID(condBr.TargetFalse)
	switch {
	case trueID == header:
		return falseID
	case falseID == header:
		return trueID
	default:
		return ""
	}
}
