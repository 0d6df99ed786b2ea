// Human-readable printing for the memory IR, used by the CLI dump
// flags and in test failure output.
package memir

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the memory IR in a compact textual form.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new memory IR printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints every function in a program.
func (p *Printer) PrintProgram(prog *Program) {
	for i := range prog.Funs {
		p.PrintFunDef(&prog.Funs[i])
		if i < len(prog.Funs)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

// PrintFunDef prints a function definition.
func (p *Printer) PrintFunDef(fd *FunDef) {
	params := make([]string, len(fd.Params))
	for i, par := range fd.Params {
		params[i] = paramString(par)
	}
	fmt.Fprintf(p.w, "fun %s(%s) {\n", fd.Name, strings.Join(params, ", "))
	p.printBody(fd.Body, 1)
	fmt.Fprintln(p.w, "}")
}

func (p *Printer) printBody(b *Body, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, stmt := range b.Stmts {
		fmt.Fprintf(p.w, "%slet %s = ", indent, patString(stmt.Pat))
		p.printExp(stmt.Exp, depth)
		fmt.Fprintln(p.w)
	}
	results := make([]string, len(b.Result))
	for i, se := range b.Result {
		results[i] = SubExpString(se)
	}
	fmt.Fprintf(p.w, "%sin {%s}\n", indent, strings.Join(results, ", "))
}

func (p *Printer) printExp(e Exp, depth int) {
	indent := strings.Repeat("  ", depth)
	switch exp := e.(type) {
	case Alloc:
		fmt.Fprintf(p.w, "alloc(%s, @%s)", SubExpString(exp.Size), exp.Space)
	case Iota:
		fmt.Fprintf(p.w, "iota(%s)", SubExpString(exp.N))
	case Replicate:
		fmt.Fprintf(p.w, "replicate(%s, %s)", SubExpString(exp.N), SubExpString(exp.Value))
	case Manifest:
		fmt.Fprintf(p.w, "manifest(%s)", exp.Arr)
	case Copy:
		fmt.Fprintf(p.w, "copy(%s)", exp.Arr)
	case Concat:
		arrs := make([]string, len(exp.Arrs))
		for i, a := range exp.Arrs {
			arrs[i] = string(a)
		}
		fmt.Fprintf(p.w, "concat(%s; %s)", SubExpString(exp.W), strings.Join(arrs, ", "))
	case ArrayLit:
		elems := make([]string, len(exp.Elems))
		for i, se := range exp.Elems {
			elems[i] = SubExpString(se)
		}
		fmt.Fprintf(p.w, "[%s]", strings.Join(elems, ", "))
	case Scratch:
		dims := make([]string, len(exp.Dims))
		for i, se := range exp.Dims {
			dims[i] = SubExpString(se)
		}
		fmt.Fprintf(p.w, "scratch(%s)", strings.Join(dims, ", "))
	case Partition:
		fmt.Fprintf(p.w, "partition(%d, %s)", exp.K, exp.Arr)
	case SegMap:
		fmt.Fprintf(p.w, "segmap(%s) {\n", SubExpString(exp.W))
		p.printBody(exp.Body, depth+1)
		fmt.Fprintf(p.w, "%s}", indent)
	case DoLoop:
		merges := make([]string, len(exp.Merge))
		for i, m := range exp.Merge {
			merges[i] = fmt.Sprintf("%s = %s", paramString(m.Param), SubExpString(m.Init))
		}
		fmt.Fprintf(p.w, "loop {%s} for %s {\n", strings.Join(merges, ", "), SubExpString(exp.Bound))
		p.printBody(exp.Body, depth+1)
		fmt.Fprintf(p.w, "%s}", indent)
	case If:
		fmt.Fprintf(p.w, "if %s then {\n", SubExpString(exp.Cond))
		p.printBody(exp.Then, depth+1)
		fmt.Fprintf(p.w, "%s} else {\n", indent)
		p.printBody(exp.Else, depth+1)
		fmt.Fprintf(p.w, "%s}", indent)
	case PrimOp:
		args := make([]string, len(exp.Args))
		for i, se := range exp.Args {
			args[i] = SubExpString(se)
		}
		fmt.Fprintf(p.w, "%s(%s)", exp.Op, strings.Join(args, ", "))
	case Apply:
		args := make([]string, len(exp.Args))
		for i, se := range exp.Args {
			args[i] = SubExpString(se)
		}
		fmt.Fprintf(p.w, "apply %s(%s)", exp.Func, strings.Join(args, ", "))
	default:
		fmt.Fprintf(p.w, "<unknown exp %T>", e)
	}
}

// SubExpString renders a sub-expression.
func SubExpString(se SubExp) string {
	switch s := se.(type) {
	case Var:
		return string(s.Name)
	case Const:
		return fmt.Sprintf("%d", s.Value)
	default:
		return fmt.Sprintf("<unknown subexp %T>", se)
	}
}

func patString(pat Pattern) string {
	elems := make([]string, len(pat))
	for i, pe := range pat {
		if pe.Mem != "" {
			elems[i] = fmt.Sprintf("%s@%s", pe.Name, pe.Mem)
		} else {
			elems[i] = string(pe.Name)
		}
	}
	return "{" + strings.Join(elems, ", ") + "}"
}

func paramString(par Param) string {
	switch ty := par.Type.(type) {
	case MemType:
		return fmt.Sprintf("%s: mem(%s, @%s)", par.Name, SubExpString(ty.Size), ty.Space)
	case ArrayType:
		return fmt.Sprintf("%s@%s", par.Name, ty.Mem)
	default:
		return string(par.Name)
	}
}
