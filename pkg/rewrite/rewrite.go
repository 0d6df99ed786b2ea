// Package rewrite applies a block reuse mapping to a function
// definition, replacing each mapped array's memory annotation with the
// block chosen for it. Arrays absent from the mapping keep their
// original block.
package rewrite

import "github.com/potatoboiler/futhark/pkg/memir"

// ApplyFunDef rewrites fd in place according to mapping, covering
// pattern elements, loop merge parameters, and array parameters of
// nested loops at every nesting depth.
func ApplyFunDef(fd *memir.FunDef, mapping map[memir.Name]memir.Name) {
	applyBody(fd.Body, mapping)
}

func applyBody(b *memir.Body, mapping map[memir.Name]memir.Name) {
	for i := range b.Stmts {
		applyStmt(&b.Stmts[i], mapping)
	}
}

func applyStmt(s *memir.Stmt, mapping map[memir.Name]memir.Name) {
	for i, pe := range s.Pat {
		if pe.Mem == "" {
			continue
		}
		if mem, ok := mapping[pe.Name]; ok {
			s.Pat[i].Mem = mem
		}
	}
	if loop, ok := s.Exp.(memir.DoLoop); ok {
		for i, m := range loop.Merge {
			if _, isArray := m.Param.Type.(memir.ArrayType); !isArray {
				continue
			}
			if mem, ok := mapping[m.Param.Name]; ok {
				loop.Merge[i].Param.Type = memir.ArrayType{Mem: mem}
			}
		}
		s.Exp = loop
	}
	for _, nested := range memir.NestedBodies(s.Exp) {
		applyBody(nested, mapping)
	}
}
