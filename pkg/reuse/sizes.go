package reuse

import "github.com/potatoboiler/futhark/pkg/memir"

// SizeTable maps every memory block declared in a function (memory
// parameters and Alloc targets, at any nesting depth) to its symbolic
// size expression.
type SizeTable map[memir.Name]memir.SubExp

// BuildSizeTable scans a function definition and collects the declared
// size of every memory block. Blocks with no discoverable size are
// simply absent.
func BuildSizeTable(fd *memir.FunDef) SizeTable {
	sizes := make(SizeTable)
	for _, p := range fd.Params {
		if ty, ok := p.Type.(memir.MemType); ok {
			sizes[p.Name] = ty.Size
		}
	}
	sizesInBody(sizes, fd.Body)
	return sizes
}

func sizesInBody(sizes SizeTable, b *memir.Body) {
	for _, stmt := range b.Stmts {
		if alloc, ok := stmt.Exp.(memir.Alloc); ok {
			for _, pe := range stmt.Pat {
				sizes[pe.Name] = alloc.Size
			}
		}
		for _, nested := range memir.NestedBodies(stmt.Exp) {
			sizesInBody(sizes, nested)
		}
	}
}
