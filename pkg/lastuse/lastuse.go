// Package lastuse computes, for one function definition, the program
// point at which each name is last read. Program points are indices in
// a depth-first linearization of the function's statements; the same
// linearization is used by interference construction, so the two
// analyses agree on what "before" and "after" mean.
package lastuse

import "github.com/potatoboiler/futhark/pkg/memir"

// Table maps a name to the linearized index of the statement that
// reads it last. Names never read are absent.
type Table map[memir.Name]int

// LastUse returns the last-read point of a name, or -1 if it is never
// read.
func (t Table) LastUse(n memir.Name) int {
	if idx, ok := t[n]; ok {
		return idx
	}
	return -1
}

// Analyze computes the last-use table for a function definition.
func Analyze(fd *memir.FunDef) Table {
	a := &analyzer{table: make(Table)}
	a.body(fd.Body)
	return a.table
}

type analyzer struct {
	table Table
	next  int
}

func (a *analyzer) body(b *memir.Body) {
	for i := range b.Stmts {
		a.stmt(&b.Stmts[i])
	}
	// Body results are read when the body finishes, after its last
	// statement.
	for _, se := range b.Result {
		if v, ok := se.(memir.Var); ok {
			a.read(v.Name, a.next)
		}
	}
}

func (a *analyzer) stmt(s *memir.Stmt) {
	idx := a.next
	a.next++
	for n := range memir.FreeInExp(s.Exp) {
		a.read(n, idx)
	}
	for _, nested := range memir.NestedBodies(s.Exp) {
		a.body(nested)
	}
}

func (a *analyzer) read(n memir.Name, idx int) {
	if prev, ok := a.table[n]; !ok || idx > prev {
		a.table[n] = idx
	}
}
