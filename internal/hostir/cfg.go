// Package hostir stands in for the "external collaborator" spec.md §1
// places out of scope: a host compiler's loop analysis (LoopInfo /
// ScalarEvolution in LLVM terms). github.com/llir/llvm is a pure IR
// data model with no such analyses built in, so this package supplies
// the minimum needed to drive the Loop Recognizer and Code Synthesizer
// against real IR - natural-loop detection, induction-variable
// recognition, and pre-header/header/latch/exit classification - and
// nothing more. It assumes loops are already in LLVM's "simplified"
// form (single preheader, single latch, single exit), exactly what
// llvm::Loop's own getLoopPreheader/getLoopLatch/getExitBlock
// accessors assume.
package hostir

import (
	"fmt"

	"github.com/katalvlaran/lvlath/core"
	"github.com/llir/llvm/ir"
)

// CFG is a function's control-flow graph, built once per pass
// invocation and discarded with it (spec.md §5: no state survives a
// single invocation).
type CFG struct {
	Func    *ir.Func
	graph   *core.Graph
	ids     map[*ir.Block]string
	blocks  map[string]*ir.Block
	preds   map[string][]string
	succs   map[string][]string
}

// BuildCFG walks every block's terminator and records successor edges
// both into a katalvlaran/lvlath directed graph and into the CFG's own
// predecessor/successor maps. Every traversal in this package (Preds,
// Succs, dominators, loop bodies) reads those maps.
func BuildCFG(fn *ir.Func) (*CFG, error) {
	g := core.NewGraph(core.WithDirected(true))
	cfg := &CFG{
		Func:   fn,
		graph:  g,
		ids:    make(map[*ir.Block]string, len(fn.Blocks)),
		blocks: make(map[string]*ir.Block, len(fn.Blocks)),
		preds:  make(map[string][]string),
		succs:  make(map[string][]string),
	}

	for i, b := range fn.Blocks {
		id := fmt.Sprintf("b%d", i)
		cfg.ids[b] = id
		cfg.blocks[id] = b
		if err := g.AddVertex(id); err != nil {
			return nil, fmt.Errorf("hostir: adding block %s: %w", id, err)
		}
	}

	for _, b := range fn.Blocks {
		from := cfg.ids[b]
		for _, target := range successors(b) {
			to, ok := cfg.ids[target]
			if !ok {
				continue
			}
			if _, err := g.AddEdge(from, to, 0); err != nil {
				return nil, fmt.Errorf("hostir: adding edge %s->%s: %w", from, to, err)
			}
			cfg.succs[from] = append(cfg.succs[from], to)
			cfg.preds[to] = append(cfg.preds[to], from)
		}
	}

	return cfg, nil
}

// successors returns the blocks a terminator can transfer control to.
func successors(b *ir.Block) []*ir.Block {
	switch term := b.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{term.Target}
	case *ir.TermCondBr:
		return []*ir.Block{term.TargetTrue, term.TargetFalse}
	default:
		return nil
	}
}

// ID returns the CFG's stable identifier for a block, or "" if the
// block was not part of this CFG.
func (cfg *CFG) ID(b *ir.Block) string { return cfg.ids[b] }

// Block resolves an identifier back to its block.
func (cfg *CFG) Block(id string) *ir.Block { return cfg.blocks[id] }

// Preds returns the predecessor block identifiers of id.
func (cfg *CFG) Preds(id string) []string { return cfg.preds[id] }

// Succs returns the successor block identifiers of id.
func (cfg *CFG) Succs(id string) []string { return cfg.succs[id] }
