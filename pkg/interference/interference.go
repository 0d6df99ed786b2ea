// Package interference builds the interference table consumed by the
// block reuse allocator. Two entities (arrays or memory blocks)
// interfere when their live ranges overlap in the depth-first
// statement linearization shared with the lastuse package; interfering
// entities must never share one memory block.
package interference

import (
	"github.com/potatoboiler/futhark/pkg/lastuse"
	"github.com/potatoboiler/futhark/pkg/memir"
)

// Table maps arrays and memory blocks to the set of names they may
// never share storage with. Lookups of unknown names return the empty
// set: a name the construction never saw is assumed interference-free,
// by the construction's own coverage contract.
type Table struct {
	sets map[memir.Name]memir.NameSet
}

// NewTable creates an empty interference table.
func NewTable() *Table {
	return &Table{sets: make(map[memir.Name]memir.NameSet)}
}

// Add records a symmetric interference between two names.
func (t *Table) Add(a, b memir.Name) {
	if a == b {
		return
	}
	if t.sets[a] == nil {
		t.sets[a] = memir.NewNameSet()
	}
	if t.sets[b] == nil {
		t.sets[b] = memir.NewNameSet()
	}
	t.sets[a].Add(b)
	t.sets[b].Add(a)
}

// InterferesWith returns the set of names interfering with n, or the
// empty set if n is unknown.
func (t *Table) InterferesWith(n memir.Name) memir.NameSet {
	if set, ok := t.sets[n]; ok {
		return set
	}
	return memir.NameSet{}
}

// Names returns the names with non-empty interference sets, sorted.
func (t *Table) Names() []memir.Name {
	names := memir.NewNameSet()
	for n := range t.sets {
		names.Add(n)
	}
	return names.Sorted()
}

// entity is an array or memory block with a live range over linearized
// statement indices. Function parameters are born at -1, before every
// statement.
type entity struct {
	name    memir.Name
	mem     memir.Name // backing block, "" for blocks themselves
	isBlock bool
	birth   int
	death   int
}

// Build constructs the interference table for a function definition
// from its last-use facts.
func Build(fd *memir.FunDef, lu lastuse.Table) *Table {
	c := &collector{}
	for _, p := range fd.Params {
		switch ty := p.Type.(type) {
		case memir.MemType:
			c.entities = append(c.entities, entity{name: p.Name, isBlock: true, birth: -1})
		case memir.ArrayType:
			c.entities = append(c.entities, entity{name: p.Name, mem: ty.Mem, birth: -1})
		}
	}
	c.body(fd.Body)

	// Initial deaths from last-use facts; an entity never read dies
	// where it is born.
	for i := range c.entities {
		e := &c.entities[i]
		e.death = lu.LastUse(e.name)
		if e.death < e.birth {
			e.death = e.birth
		}
	}

	// A block lives as long as any array it backs.
	for i := range c.entities {
		block := &c.entities[i]
		if !block.isBlock {
			continue
		}
		for _, arr := range c.entities {
			if arr.mem == block.name && arr.death > block.death {
				block.death = arr.death
			}
		}
	}

	t := NewTable()
	for i := range c.entities {
		for j := i + 1; j < len(c.entities); j++ {
			a, b := c.entities[i], c.entities[j]
			if a.birth <= b.death && b.birth <= a.death {
				t.Add(a.name, b.name)
			}
		}
	}
	return t
}

type collector struct {
	entities []entity
	next     int
}

func (c *collector) body(b *memir.Body) {
	for i := range b.Stmts {
		c.stmt(&b.Stmts[i])
	}
}

func (c *collector) stmt(s *memir.Stmt) {
	idx := c.next
	c.next++
	_, isAlloc := s.Exp.(memir.Alloc)
	for _, pe := range s.Pat {
		switch {
		case isAlloc:
			c.entities = append(c.entities, entity{name: pe.Name, isBlock: true, birth: idx})
		case pe.Mem != "":
			c.entities = append(c.entities, entity{name: pe.Name, mem: pe.Mem, birth: idx})
		}
	}
	if loop, ok := s.Exp.(memir.DoLoop); ok {
		for _, m := range loop.Merge {
			if ty, ok := m.Param.Type.(memir.ArrayType); ok {
				c.entities = append(c.entities, entity{name: m.Param.Name, mem: ty.Mem, birth: idx})
			}
		}
	}
	for _, nested := range memir.NestedBodies(s.Exp) {
		c.body(nested)
	}
}
