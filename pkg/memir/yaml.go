// YAML serialization for memory IR programs. This is the interchange
// format consumed and produced by cmd/futhark-mem; expressions and
// parameter types are tagged unions, encoded with an explicit "kind"
// discriminator.
package memir

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlProgram struct {
	Funs []yamlFunDef `yaml:"funs"`
}

type yamlFunDef struct {
	Name   Name        `yaml:"name"`
	Params []yamlParam `yaml:"params,omitempty"`
	Body   *yamlBody   `yaml:"body"`
}

type yamlParam struct {
	Name  Name        `yaml:"name"`
	Kind  string      `yaml:"kind"`
	Size  *yamlSubExp `yaml:"size,omitempty"`
	Space string      `yaml:"space,omitempty"`
	Mem   Name        `yaml:"mem,omitempty"`
}

type yamlBody struct {
	Stmts  []yamlStmt   `yaml:"stmts,omitempty"`
	Result []yamlSubExp `yaml:"result,omitempty"`
}

type yamlStmt struct {
	Pat []yamlPatElem `yaml:"pat"`
	Exp yamlExp       `yaml:"exp"`
}

type yamlPatElem struct {
	Name Name `yaml:"name"`
	Mem  Name `yaml:"mem,omitempty"`
}

type yamlSubExp struct {
	Var   *Name  `yaml:"var,omitempty"`
	Const *int64 `yaml:"const,omitempty"`
}

type yamlMerge struct {
	Param yamlParam  `yaml:"param"`
	Init  yamlSubExp `yaml:"init"`
}

type yamlExp struct {
	Kind  string       `yaml:"kind"`
	Size  *yamlSubExp  `yaml:"size,omitempty"`
	Space string       `yaml:"space,omitempty"`
	N     *yamlSubExp  `yaml:"n,omitempty"`
	Value *yamlSubExp  `yaml:"value,omitempty"`
	Arr   Name         `yaml:"arr,omitempty"`
	Arrs  []Name       `yaml:"arrs,omitempty"`
	W     *yamlSubExp  `yaml:"w,omitempty"`
	Elems []yamlSubExp `yaml:"elems,omitempty"`
	Dims  []yamlSubExp `yaml:"dims,omitempty"`
	K     int          `yaml:"k,omitempty"`
	Op    string       `yaml:"op,omitempty"`
	Args  []yamlSubExp `yaml:"args,omitempty"`
	Func  Name         `yaml:"func,omitempty"`
	Merge []yamlMerge  `yaml:"merge,omitempty"`
	Bound *yamlSubExp  `yaml:"bound,omitempty"`
	Cond  *yamlSubExp  `yaml:"cond,omitempty"`
	Body  *yamlBody    `yaml:"body,omitempty"`
	Then  *yamlBody    `yaml:"then,omitempty"`
	Else  *yamlBody    `yaml:"else,omitempty"`
}

// DecodeProgram reads a YAML-encoded program.
func DecodeProgram(r io.Reader) (*Program, error) {
	var doc yamlProgram
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}
	prog := &Program{Funs: make([]FunDef, len(doc.Funs))}
	for i, yf := range doc.Funs {
		fd, err := fromYAMLFunDef(yf)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", yf.Name, err)
		}
		prog.Funs[i] = fd
	}
	return prog, nil
}

// EncodeProgram writes a program as YAML.
func EncodeProgram(w io.Writer, prog *Program) error {
	doc := yamlProgram{Funs: make([]yamlFunDef, len(prog.Funs))}
	for i := range prog.Funs {
		doc.Funs[i] = toYAMLFunDef(&prog.Funs[i])
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}
	return enc.Close()
}

// --- decoding ---

func fromYAMLFunDef(yf yamlFunDef) (FunDef, error) {
	fd := FunDef{Name: yf.Name}
	for _, yp := range yf.Params {
		p, err := fromYAMLParam(yp)
		if err != nil {
			return fd, err
		}
		fd.Params = append(fd.Params, p)
	}
	if yf.Body == nil {
		return fd, fmt.Errorf("missing body")
	}
	body, err := fromYAMLBody(yf.Body)
	if err != nil {
		return fd, err
	}
	fd.Body = body
	return fd, nil
}

func fromYAMLParam(yp yamlParam) (Param, error) {
	p := Param{Name: yp.Name}
	switch yp.Kind {
	case "mem":
		if yp.Size == nil {
			return p, fmt.Errorf("mem param %q: missing size", yp.Name)
		}
		size, err := fromYAMLSubExp(*yp.Size)
		if err != nil {
			return p, err
		}
		p.Type = MemType{Size: size, Space: yp.Space}
	case "prim", "":
		p.Type = PrimType{}
	case "array":
		p.Type = ArrayType{Mem: yp.Mem}
	default:
		return p, fmt.Errorf("param %q: unknown kind %q", yp.Name, yp.Kind)
	}
	return p, nil
}

func fromYAMLBody(yb *yamlBody) (*Body, error) {
	body := &Body{}
	for i, ys := range yb.Stmts {
		stmt, err := fromYAMLStmt(ys)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		body.Stmts = append(body.Stmts, stmt)
	}
	for _, yse := range yb.Result {
		se, err := fromYAMLSubExp(yse)
		if err != nil {
			return nil, err
		}
		body.Result = append(body.Result, se)
	}
	return body, nil
}

func fromYAMLStmt(ys yamlStmt) (Stmt, error) {
	stmt := Stmt{}
	for _, ype := range ys.Pat {
		stmt.Pat = append(stmt.Pat, PatElem{Name: ype.Name, Mem: ype.Mem})
	}
	exp, err := fromYAMLExp(ys.Exp)
	if err != nil {
		return stmt, err
	}
	stmt.Exp = exp
	return stmt, nil
}

func fromYAMLSubExp(yse yamlSubExp) (SubExp, error) {
	switch {
	case yse.Var != nil && yse.Const != nil:
		return nil, fmt.Errorf("subexp has both var and const")
	case yse.Var != nil:
		return Var{Name: *yse.Var}, nil
	case yse.Const != nil:
		return Const{Value: *yse.Const}, nil
	default:
		return nil, fmt.Errorf("subexp has neither var nor const")
	}
}

func fromYAMLSubExps(yses []yamlSubExp) ([]SubExp, error) {
	ses := make([]SubExp, len(yses))
	for i, yse := range yses {
		se, err := fromYAMLSubExp(yse)
		if err != nil {
			return nil, err
		}
		ses[i] = se
	}
	return ses, nil
}

func reqSubExp(field string, yse *yamlSubExp) (SubExp, error) {
	if yse == nil {
		return nil, fmt.Errorf("missing field %q", field)
	}
	return fromYAMLSubExp(*yse)
}

func fromYAMLExp(ye yamlExp) (Exp, error) {
	switch ye.Kind {
	case "alloc":
		size, err := reqSubExp("size", ye.Size)
		if err != nil {
			return nil, err
		}
		return Alloc{Size: size, Space: ye.Space}, nil
	case "iota":
		n, err := reqSubExp("n", ye.N)
		if err != nil {
			return nil, err
		}
		return Iota{N: n}, nil
	case "replicate":
		n, err := reqSubExp("n", ye.N)
		if err != nil {
			return nil, err
		}
		v, err := reqSubExp("value", ye.Value)
		if err != nil {
			return nil, err
		}
		return Replicate{N: n, Value: v}, nil
	case "manifest":
		return Manifest{Arr: ye.Arr}, nil
	case "copy":
		return Copy{Arr: ye.Arr}, nil
	case "concat":
		w, err := reqSubExp("w", ye.W)
		if err != nil {
			return nil, err
		}
		return Concat{W: w, Arrs: ye.Arrs}, nil
	case "arraylit":
		elems, err := fromYAMLSubExps(ye.Elems)
		if err != nil {
			return nil, err
		}
		return ArrayLit{Elems: elems}, nil
	case "scratch":
		dims, err := fromYAMLSubExps(ye.Dims)
		if err != nil {
			return nil, err
		}
		return Scratch{Dims: dims}, nil
	case "partition":
		return Partition{K: ye.K, Arr: ye.Arr}, nil
	case "segmap":
		w, err := reqSubExp("w", ye.W)
		if err != nil {
			return nil, err
		}
		if ye.Body == nil {
			return nil, fmt.Errorf("segmap: missing body")
		}
		body, err := fromYAMLBody(ye.Body)
		if err != nil {
			return nil, err
		}
		return SegMap{W: w, Body: body}, nil
	case "loop":
		bound, err := reqSubExp("bound", ye.Bound)
		if err != nil {
			return nil, err
		}
		if ye.Body == nil {
			return nil, fmt.Errorf("loop: missing body")
		}
		body, err := fromYAMLBody(ye.Body)
		if err != nil {
			return nil, err
		}
		merge := make([]MergeParam, len(ye.Merge))
		for i, ym := range ye.Merge {
			p, err := fromYAMLParam(ym.Param)
			if err != nil {
				return nil, err
			}
			init, err := fromYAMLSubExp(ym.Init)
			if err != nil {
				return nil, err
			}
			merge[i] = MergeParam{Param: p, Init: init}
		}
		return DoLoop{Merge: merge, Bound: bound, Body: body}, nil
	case "if":
		cond, err := reqSubExp("cond", ye.Cond)
		if err != nil {
			return nil, err
		}
		if ye.Then == nil || ye.Else == nil {
			return nil, fmt.Errorf("if: missing arm")
		}
		thenBody, err := fromYAMLBody(ye.Then)
		if err != nil {
			return nil, err
		}
		elseBody, err := fromYAMLBody(ye.Else)
		if err != nil {
			return nil, err
		}
		return If{Cond: cond, Then: thenBody, Else: elseBody}, nil
	case "primop":
		args, err := fromYAMLSubExps(ye.Args)
		if err != nil {
			return nil, err
		}
		return PrimOp{Op: ye.Op, Args: args}, nil
	case "apply":
		args, err := fromYAMLSubExps(ye.Args)
		if err != nil {
			return nil, err
		}
		return Apply{Func: ye.Func, Args: args}, nil
	default:
		return nil, fmt.Errorf("unknown exp kind %q", ye.Kind)
	}
}

// --- encoding ---

func toYAMLFunDef(fd *FunDef) yamlFunDef {
	yf := yamlFunDef{Name: fd.Name, Body: toYAMLBody(fd.Body)}
	for _, p := range fd.Params {
		yf.Params = append(yf.Params, toYAMLParam(p))
	}
	return yf
}

func toYAMLParam(p Param) yamlParam {
	yp := yamlParam{Name: p.Name}
	switch ty := p.Type.(type) {
	case MemType:
		yp.Kind = "mem"
		yp.Size = toYAMLSubExpPtr(ty.Size)
		yp.Space = ty.Space
	case ArrayType:
		yp.Kind = "array"
		yp.Mem = ty.Mem
	default:
		yp.Kind = "prim"
	}
	return yp
}

func toYAMLBody(b *Body) *yamlBody {
	if b == nil {
		return nil
	}
	yb := &yamlBody{}
	for i := range b.Stmts {
		yb.Stmts = append(yb.Stmts, toYAMLStmt(&b.Stmts[i]))
	}
	for _, se := range b.Result {
		yb.Result = append(yb.Result, toYAMLSubExp(se))
	}
	return yb
}

func toYAMLStmt(s *Stmt) yamlStmt {
	ys := yamlStmt{Exp: toYAMLExp(s.Exp)}
	for _, pe := range s.Pat {
		ys.Pat = append(ys.Pat, yamlPatElem{Name: pe.Name, Mem: pe.Mem})
	}
	return ys
}

func toYAMLSubExp(se SubExp) yamlSubExp {
	switch s := se.(type) {
	case Var:
		name := s.Name
		return yamlSubExp{Var: &name}
	case Const:
		value := s.Value
		return yamlSubExp{Const: &value}
	default:
		return yamlSubExp{}
	}
}

func toYAMLSubExpPtr(se SubExp) *yamlSubExp {
	if se == nil {
		return nil
	}
	yse := toYAMLSubExp(se)
	return &yse
}

func toYAMLSubExps(ses []SubExp) []yamlSubExp {
	yses := make([]yamlSubExp, len(ses))
	for i, se := range ses {
		yses[i] = toYAMLSubExp(se)
	}
	return yses
}

func toYAMLExp(e Exp) yamlExp {
	switch exp := e.(type) {
	case Alloc:
		return yamlExp{Kind: "alloc", Size: toYAMLSubExpPtr(exp.Size), Space: exp.Space}
	case Iota:
		return yamlExp{Kind: "iota", N: toYAMLSubExpPtr(exp.N)}
	case Replicate:
		return yamlExp{Kind: "replicate", N: toYAMLSubExpPtr(exp.N), Value: toYAMLSubExpPtr(exp.Value)}
	case Manifest:
		return yamlExp{Kind: "manifest", Arr: exp.Arr}
	case Copy:
		return yamlExp{Kind: "copy", Arr: exp.Arr}
	case Concat:
		return yamlExp{Kind: "concat", W: toYAMLSubExpPtr(exp.W), Arrs: exp.Arrs}
	case ArrayLit:
		return yamlExp{Kind: "arraylit", Elems: toYAMLSubExps(exp.Elems)}
	case Scratch:
		return yamlExp{Kind: "scratch", Dims: toYAMLSubExps(exp.Dims)}
	case Partition:
		return yamlExp{Kind: "partition", K: exp.K, Arr: exp.Arr}
	case SegMap:
		return yamlExp{Kind: "segmap", W: toYAMLSubExpPtr(exp.W), Body: toYAMLBody(exp.Body)}
	case DoLoop:
		ye := yamlExp{Kind: "loop", Bound: toYAMLSubExpPtr(exp.Bound), Body: toYAMLBody(exp.Body)}
		for _, m := range exp.Merge {
			ye.Merge = append(ye.Merge, yamlMerge{Param: toYAMLParam(m.Param), Init: toYAMLSubExp(m.Init)})
		}
		return ye
	case If:
		return yamlExp{Kind: "if", Cond: toYAMLSubExpPtr(exp.Cond), Then: toYAMLBody(exp.Then), Else: toYAMLBody(exp.Else)}
	case PrimOp:
		return yamlExp{Kind: "primop", Op: exp.Op, Args: toYAMLSubExps(exp.Args)}
	case Apply:
		return yamlExp{Kind: "apply", Func: exp.Func, Args: toYAMLSubExps(exp.Args)}
	default:
		return yamlExp{Kind: "unknown"}
	}
}
