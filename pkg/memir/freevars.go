package memir

// Free-variable computation for last-use and liveness analyses.

func addSubExp(s NameSet, se SubExp) {
	if v, ok := se.(Var); ok {
		s.Add(v.Name)
	}
}

func addSubExps(s NameSet, ses []SubExp) {
	for _, se := range ses {
		addSubExp(s, se)
	}
}

// FreeInExp returns the names read directly by an expression, not
// counting reads inside nested bodies (use FreeInBody for those).
func FreeInExp(e Exp) NameSet {
	free := NewNameSet()
	switch exp := e.(type) {
	case Alloc:
		addSubExp(free, exp.Size)
	case Iota:
		addSubExp(free, exp.N)
	case Replicate:
		addSubExp(free, exp.N)
		addSubExp(free, exp.Value)
	case Manifest:
		free.Add(exp.Arr)
	case Copy:
		free.Add(exp.Arr)
	case Concat:
		addSubExp(free, exp.W)
		for _, arr := range exp.Arrs {
			free.Add(arr)
		}
	case ArrayLit:
		addSubExps(free, exp.Elems)
	case Scratch:
		addSubExps(free, exp.Dims)
	case Partition:
		free.Add(exp.Arr)
	case SegMap:
		addSubExp(free, exp.W)
	case DoLoop:
		addSubExp(free, exp.Bound)
		for _, m := range exp.Merge {
			addSubExp(free, m.Init)
		}
	case If:
		addSubExp(free, exp.Cond)
	case PrimOp:
		addSubExps(free, exp.Args)
	case Apply:
		addSubExps(free, exp.Args)
	}
	return free
}

// FreeInBody returns all names read anywhere in a body, including
// nested bodies and the body's result tuple. Names bound inside the
// body are not subtracted; callers that need true free variables must
// remove bound names themselves.
func FreeInBody(b *Body) NameSet {
	free := NewNameSet()
	for _, stmt := range b.Stmts {
		for n := range FreeInExp(stmt.Exp) {
			free.Add(n)
		}
		for _, nested := range NestedBodies(stmt.Exp) {
			for n := range FreeInBody(nested) {
				free.Add(n)
			}
		}
	}
	addSubExps(free, b.Result)
	return free
}
