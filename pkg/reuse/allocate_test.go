package reuse

import (
	"errors"
	"fmt"
	"testing"

	"github.com/potatoboiler/futhark/pkg/interference"
	"github.com/potatoboiler/futhark/pkg/memir"
)

// twoArrayFun builds:
//
//	m1 = alloc(n); x1@m1 = iota(n)
//	m2 = alloc(n); x2@m2 = replicate(n, 0)
func twoArrayFun() *memir.FunDef {
	n := memir.Var{Name: "n"}
	return &memir.FunDef{
		Name:   "two",
		Params: []memir.Param{{Name: "n", Type: memir.PrimType{}}},
		Body: &memir.Body{
			Stmts: []memir.Stmt{
				{Pat: memir.Pattern{{Name: "m1"}}, Exp: memir.Alloc{Size: n, Space: "device"}},
				{Pat: memir.Pattern{{Name: "x1", Mem: "m1"}}, Exp: memir.Iota{N: n}},
				{Pat: memir.Pattern{{Name: "m2"}}, Exp: memir.Alloc{Size: n, Space: "device"}},
				{Pat: memir.Pattern{{Name: "x2", Mem: "m2"}}, Exp: memir.Replicate{N: n, Value: memir.Const{Value: 0}}},
			},
			Result: []memir.SubExp{memir.Var{Name: "x2"}},
		},
	}
}

func TestFirstFitReuse(t *testing.T) {
	// No interference and equal sizes: x2 moves into m1.
	mapping, err := AllocateFunDef(twoArrayFun(), interference.NewTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mapping["x1"]; got != "m1" {
		t.Errorf("x1 should keep its own block m1, got %s", got)
	}
	if got := mapping["x2"]; got != "m1" {
		t.Errorf("x2 should reuse m1, got %s", got)
	}
}

func TestInterferenceForcesOwnBlock(t *testing.T) {
	tbl := interference.NewTable()
	tbl.Add("x2", "x1")
	mapping, err := AllocateFunDef(twoArrayFun(), tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mapping["x2"]; got != "m2" {
		t.Errorf("x2 interferes with x1 and should fall back to m2, got %s", got)
	}
}

func TestSizeMismatchForcesOwnBlock(t *testing.T) {
	fd := twoArrayFun()
	// m2 gets a constant size while m1 stays symbolic.
	fd.Body.Stmts[2].Exp = memir.Alloc{Size: memir.Const{Value: 64}, Space: "device"}
	mapping, err := AllocateFunDef(fd, interference.NewTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mapping["x2"]; got != "m2" {
		t.Errorf("sizes differ, x2 should keep m2, got %s", got)
	}
}

func TestSizeEqualityIsSyntactic(t *testing.T) {
	fd := twoArrayFun()
	// Same constant on both allocations is equal; a different variable
	// spelling the same runtime value would not be.
	fd.Body.Stmts[0].Exp = memir.Alloc{Size: memir.Const{Value: 64}, Space: "device"}
	fd.Body.Stmts[2].Exp = memir.Alloc{Size: memir.Const{Value: 64}, Space: "device"}
	mapping, err := AllocateFunDef(fd, interference.NewTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mapping["x2"]; got != "m1" {
		t.Errorf("identical constant sizes should allow reuse, got %s", got)
	}
}

func TestMissingSizeIsError(t *testing.T) {
	fd := &memir.FunDef{
		Name: "broken",
		Body: &memir.Body{
			Stmts: []memir.Stmt{
				// x's block was never allocated, so it has no size.
				{Pat: memir.Pattern{{Name: "x", Mem: "mystery"}}, Exp: memir.Iota{N: memir.Const{Value: 4}}},
			},
		},
	}
	_, err := AllocateFunDef(fd, interference.NewTable())
	if err == nil {
		t.Fatal("expected an error for a block with no size")
	}
	if !errors.Is(err, ErrNoSize) {
		t.Errorf("error should wrap ErrNoSize, got %v", err)
	}
}

func TestNestedScopeDoesNotLeakOccupancy(t *testing.T) {
	n := memir.Var{Name: "n"}
	inner := &memir.Body{
		Stmts: []memir.Stmt{
			{Pat: memir.Pattern{{Name: "minner"}}, Exp: memir.Alloc{Size: n, Space: "device"}},
			{Pat: memir.Pattern{{Name: "y", Mem: "minner"}}, Exp: memir.Iota{N: n}},
		},
	}
	fd := &memir.FunDef{
		Name:   "scoped",
		Params: []memir.Param{{Name: "n", Type: memir.PrimType{}}, {Name: "c", Type: memir.PrimType{}}},
		Body: &memir.Body{
			Stmts: []memir.Stmt{
				{Pat: memir.Pattern{}, Exp: memir.If{Cond: memir.Var{Name: "c"}, Then: inner, Else: &memir.Body{}}},
				{Pat: memir.Pattern{{Name: "mx"}}, Exp: memir.Alloc{Size: n, Space: "device"}},
				{Pat: memir.Pattern{{Name: "x", Mem: "mx"}}, Exp: memir.Replicate{N: n, Value: memir.Const{Value: 1}}},
			},
		},
	}
	mapping, err := AllocateFunDef(fd, interference.NewTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// y's decision persists, but minner's occupancy was discarded when
	// the branch scope ended, so x must not be placed into minner.
	if got := mapping["y"]; got != "minner" {
		t.Errorf("y should keep minner, got %s", got)
	}
	if got := mapping["x"]; got != "mx" {
		t.Errorf("x should keep its own block mx, got %s", got)
	}
}

func TestLoopCarriedPropagation(t *testing.T) {
	n := memir.Var{Name: "n"}
	loop := memir.DoLoop{
		Merge: []memir.MergeParam{
			{
				Param: memir.Param{Name: "y", Type: memir.ArrayType{Mem: "my"}},
				Init:  memir.Var{Name: "x1"},
			},
		},
		Bound: memir.Const{Value: 10},
		Body:  &memir.Body{Result: []memir.SubExp{memir.Var{Name: "y"}}},
	}
	fd := &memir.FunDef{
		Name:   "looped",
		Params: []memir.Param{{Name: "n", Type: memir.PrimType{}}},
		Body: &memir.Body{
			Stmts: []memir.Stmt{
				{Pat: memir.Pattern{{Name: "m1"}}, Exp: memir.Alloc{Size: n, Space: "device"}},
				{Pat: memir.Pattern{{Name: "x1", Mem: "m1"}}, Exp: memir.Iota{N: n}},
				{Pat: memir.Pattern{{Name: "xout", Mem: "my"}}, Exp: loop},
			},
			Result: []memir.SubExp{memir.Var{Name: "xout"}},
		},
	}
	mapping, err := AllocateFunDef(fd, interference.NewTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mapping["y"]; got != "m1" {
		t.Errorf("merge parameter should inherit m1, got %s", got)
	}
	if got := mapping["xout"]; got != "m1" {
		t.Errorf("loop result should inherit m1, got %s", got)
	}
}

func TestLoopWithUnresolvedInitialValue(t *testing.T) {
	loop := memir.DoLoop{
		Merge: []memir.MergeParam{
			{
				Param: memir.Param{Name: "y", Type: memir.ArrayType{Mem: "my"}},
				Init:  memir.Var{Name: "unseen"},
			},
		},
		Bound: memir.Const{Value: 3},
		Body:  &memir.Body{Result: []memir.SubExp{memir.Var{Name: "y"}}},
	}
	fd := &memir.FunDef{
		Name: "untouched",
		Body: &memir.Body{
			Stmts: []memir.Stmt{
				{Pat: memir.Pattern{{Name: "xout", Mem: "my"}}, Exp: loop},
			},
		},
	}
	mapping, err := AllocateFunDef(fd, interference.NewTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mapping) != 0 {
		t.Errorf("no decisions expected for an unresolved initial value, got %v", mapping)
	}
}

func TestSegMapOutputGetsDecision(t *testing.T) {
	n := memir.Var{Name: "n"}
	fd := &memir.FunDef{
		Name:   "kernel",
		Params: []memir.Param{{Name: "n", Type: memir.PrimType{}}},
		Body: &memir.Body{
			Stmts: []memir.Stmt{
				{Pat: memir.Pattern{{Name: "mk"}}, Exp: memir.Alloc{Size: n, Space: "device"}},
				{
					Pat: memir.Pattern{{Name: "ys", Mem: "mk"}},
					Exp: memir.SegMap{W: n, Body: &memir.Body{Result: []memir.SubExp{memir.Const{Value: 0}}}},
				},
			},
			Result: []memir.SubExp{memir.Var{Name: "ys"}},
		},
	}
	mapping, err := AllocateFunDef(fd, interference.NewTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mapping["ys"]; got != "mk" {
		t.Errorf("kernel output should be mapped to its own block, got %s", got)
	}
}

// TestSoundnessOverSyntheticTable exercises a longer chain of arrays
// with a mix of interferences and sizes, then checks the soundness
// conditions pairwise: arrays sharing a block never interfere and
// their original blocks have exactly equal sizes.
func TestSoundnessOverSyntheticTable(t *testing.T) {
	n := memir.Var{Name: "n"}
	sizes := []memir.SubExp{n, memir.Const{Value: 16}, n, n, memir.Const{Value: 16}, n}

	fd := &memir.FunDef{
		Name:   "chain",
		Params: []memir.Param{{Name: "n", Type: memir.PrimType{}}},
		Body:   &memir.Body{},
	}
	arrays := make([]memir.Name, len(sizes))
	blocks := make([]memir.Name, len(sizes))
	for i, size := range sizes {
		arr := memir.Name(fmt.Sprintf("a%d", i))
		block := memir.Name(fmt.Sprintf("m%d", i))
		arrays[i] = arr
		blocks[i] = block
		fd.Body.Stmts = append(fd.Body.Stmts,
			memir.Stmt{Pat: memir.Pattern{{Name: block}}, Exp: memir.Alloc{Size: size, Space: "device"}},
			memir.Stmt{Pat: memir.Pattern{{Name: arr, Mem: block}}, Exp: memir.Iota{N: n}},
		)
	}

	// Consecutive arrays interfere; everything else is free.
	tbl := interference.NewTable()
	for i := 0; i+1 < len(arrays); i++ {
		tbl.Add(arrays[i], arrays[i+1])
	}

	mapping, err := AllocateFunDef(fd, tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sizeOf := BuildSizeTable(fd)
	origin := make(map[memir.Name]memir.Name)
	for i, arr := range arrays {
		if _, ok := mapping[arr]; !ok {
			t.Errorf("array %s should have a decision", arr)
		}
		origin[arr] = blocks[i]
	}
	for i, a := range arrays {
		for _, b := range arrays[i+1:] {
			if mapping[a] != mapping[b] {
				continue
			}
			if tbl.InterferesWith(a).Contains(b) {
				t.Errorf("%s and %s interfere but share block %s", a, b, mapping[a])
			}
			if sizeOf[origin[a]] != sizeOf[origin[b]] {
				t.Errorf("%s and %s share block %s with unequal original sizes", a, b, mapping[a])
			}
		}
	}
}
