// Package reuse decides which arrays in a function may share a memory
// block. It walks the statement sequence once, tracking which arrays
// currently occupy each block, and greedily maps each newly created
// array either onto an existing block of identical size that it does
// not interfere with, or onto its own freshly allocated block. The
// approach is first-fit, in the spirit of register allocation over
// heap blocks rather than registers; it makes no attempt at optimal
// packing.
package reuse

import (
	"errors"
	"fmt"
	"sort"

	"github.com/potatoboiler/futhark/pkg/interference"
	"github.com/potatoboiler/futhark/pkg/memir"
)

// ErrNoSize indicates a reuse decision needed the size of a memory
// block absent from the size table. The size table builder covers
// every block declared in the function, so this only fires on
// malformed input; the caller should skip the optimization for the
// affected function.
var ErrNoSize = errors.New("memory block has no known size")

// context is the immutable per-run environment.
type context struct {
	interference *interference.Table
	sizes        SizeTable
}

// allocator carries the mutable traversal state: uses records which
// arrays currently occupy each block within the traversal scope, and
// result is the accumulated block choice per array. Result entries are
// never retracted or overwritten; uses is snapshotted around nested
// bodies so inner-scope occupancy does not leak out.
type allocator struct {
	ctx    context
	uses   map[memir.Name]memir.NameSet
	result map[memir.Name]memir.Name
}

// AllocateFunDef computes the block reuse mapping for one function.
// The returned map sends each array whose block decision was made to
// the block it should occupy; absence means the array keeps its
// original block. Interference lookups default to the empty set; the
// table's construction decides how conservative that is.
func AllocateFunDef(fd *memir.FunDef, tbl *interference.Table) (map[memir.Name]memir.Name, error) {
	a := &allocator{
		ctx: context{
			interference: tbl,
			sizes:        BuildSizeTable(fd),
		},
		uses:   make(map[memir.Name]memir.NameSet),
		result: make(map[memir.Name]memir.Name),
	}
	if err := a.walkBody(fd.Body); err != nil {
		return nil, fmt.Errorf("function %s: %w", fd.Name, err)
	}
	tracef("%s: result map %v", fd.Name, a.result)
	return a.result, nil
}

func (a *allocator) walkBody(b *memir.Body) error {
	for i := range b.Stmts {
		if err := a.walkStmt(&b.Stmts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *allocator) walkStmt(s *memir.Stmt) error {
	// Nested bodies are resolved first, each under a snapshot of the
	// current uses map. Result map writes made inside persist; the
	// occupancy recorded inside does not.
	for _, nested := range memir.NestedBodies(s.Exp) {
		saved := a.copyUses()
		err := a.walkBody(nested)
		a.uses = saved
		if err != nil {
			return err
		}
	}

	if memir.IsArrayCreating(s.Exp) {
		for _, pe := range s.Pat {
			if pe.Mem == "" {
				continue
			}
			if err := a.decide(pe.Name, pe.Mem); err != nil {
				return err
			}
		}
	}

	if loop, ok := s.Exp.(memir.DoLoop); ok {
		a.propagateLoop(s.Pat, loop)
	}
	return nil
}

// decide picks a block for array x, whose own freshly allocated block
// is xmem. Candidates are the blocks currently in use, in sorted name
// order for determinism; the first block that is not xmem itself,
// whose occupants do not interfere with x, and whose declared size
// exactly equals xmem's, wins. Size equality is syntactic: no
// simplification of size expressions is attempted.
func (a *allocator) decide(x, xmem memir.Name) error {
	xsize, ok := a.ctx.sizes[xmem]
	if !ok {
		return fmt.Errorf("block %s (for array %s): %w", xmem, x, ErrNoSize)
	}
	interferes := a.ctx.interference.InterferesWith(x)
	tracef("%s@%s: interferes with %v", x, xmem, interferes.Sorted())

	for _, kmem := range a.sortedBlocksInUse() {
		if kmem == xmem {
			continue
		}
		if !a.uses[kmem].Disjoint(interferes) {
			continue
		}
		ksize, ok := a.ctx.sizes[kmem]
		if !ok {
			return fmt.Errorf("block %s (candidate for array %s): %w", kmem, x, ErrNoSize)
		}
		if ksize != xsize {
			continue
		}
		tracef("%s: reusing block %s", x, kmem)
		a.record(x, kmem)
		return nil
	}

	tracef("%s: keeping own block %s", x, xmem)
	a.record(x, xmem)
	return nil
}

// propagateLoop handles loop-carried arrays. A merge parameter whose
// initial value is an array with an already-decided block physically
// occupies that block across every iteration, so the parameter and
// the loop's corresponding result both inherit the decision. Such
// parameters never go through the first-fit search; their block
// identity is fixed by the initial value.
func (a *allocator) propagateLoop(pat memir.Pattern, loop memir.DoLoop) {
	for i, m := range loop.Merge {
		v, ok := m.Init.(memir.Var)
		if !ok {
			continue
		}
		mem, decided := a.result[v.Name]
		if !decided {
			continue
		}
		tracef("%s: loop-carried in block %s (from %s)", m.Param.Name, mem, v.Name)
		a.record(m.Param.Name, mem)
		if i < len(pat) {
			a.record(pat[i].Name, mem)
		}
	}
}

// record marks x as an occupant of mem and commits the mapping. The
// result map is append-only: a name that already has a decision keeps
// it.
func (a *allocator) record(x, mem memir.Name) {
	occupants := a.uses[mem]
	if occupants == nil {
		occupants = memir.NewNameSet()
		a.uses[mem] = occupants
	}
	occupants.Add(x)
	if _, done := a.result[x]; !done {
		a.result[x] = mem
	}
}

func (a *allocator) copyUses() map[memir.Name]memir.NameSet {
	c := make(map[memir.Name]memir.NameSet, len(a.uses))
	for mem, occupants := range a.uses {
		c[mem] = occupants.Copy()
	}
	return c
}

func (a *allocator) sortedBlocksInUse() []memir.Name {
	blocks := make([]memir.Name, 0, len(a.uses))
	for mem := range a.uses {
		blocks = append(blocks, mem)
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i] < blocks[j]
	})
	return blocks
}
