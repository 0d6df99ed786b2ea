package memir

import (
	"bytes"
	"testing"
)

func TestPrintFunDef(t *testing.T) {
	n := Var{Name: "n"}
	fd := &FunDef{
		Name: "f",
		Params: []Param{
			{Name: "n", Type: PrimType{}},
			{Name: "mp", Type: MemType{Size: n, Space: "device"}},
		},
		Body: &Body{
			Stmts: []Stmt{
				{Pat: Pattern{{Name: "m1"}}, Exp: Alloc{Size: n, Space: "device"}},
				{Pat: Pattern{{Name: "x1", Mem: "m1"}}, Exp: Iota{N: n}},
				{
					Pat: Pattern{{Name: "xout", Mem: "m1"}},
					Exp: DoLoop{
						Merge: []MergeParam{
							{Param: Param{Name: "acc", Type: ArrayType{Mem: "m1"}}, Init: Var{Name: "x1"}},
						},
						Bound: Const{Value: 10},
						Body: &Body{
							Result: []SubExp{Var{Name: "acc"}},
						},
					},
				},
			},
			Result: []SubExp{Var{Name: "xout"}},
		},
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunDef(fd)

	want := `fun f(n, mp: mem(n, @device)) {
  let {m1} = alloc(n, @device)
  let {x1@m1} = iota(n)
  let {xout@m1} = loop {acc@m1 = x1} for 10 {
    in {acc}
  }
  in {xout}
}
`
	if got := buf.String(); got != want {
		t.Errorf("printed output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestSubExpString(t *testing.T) {
	if got := SubExpString(Var{Name: "xs"}); got != "xs" {
		t.Errorf("Var: got %q", got)
	}
	if got := SubExpString(Const{Value: -3}); got != "-3" {
		t.Errorf("Const: got %q", got)
	}
}
