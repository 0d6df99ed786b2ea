// Package memir defines the memory-annotated intermediate representation.
// Every array-valued result is backed by an explicit memory block, bound
// either by an Alloc statement or by a memory-typed function parameter.
// Memory blocks have symbolic sizes (a SubExp, not necessarily a literal
// constant) and an allocation space carried through opaquely.
package memir

// Name is an opaque, globally-unique symbol identifying a variable or
// memory block. The zero value "" means "no name".
type Name string

// --- Sub-expressions ---

// SubExp is a scalar operand: either a variable reference or a constant.
// Size expressions are SubExps; two sizes are equal only if they are the
// identical variable or the identical constant (no simplification).
type SubExp interface {
	implSubExp()
}

// Var references a variable by name.
type Var struct {
	Name Name
}

// Const is an integer constant.
type Const struct {
	Value int64
}

func (Var) implSubExp()   {}
func (Const) implSubExp() {}

// --- Patterns ---

// PatElem is one output of a statement. Mem is the memory block backing
// the output if it is an array, or "" for non-memory results.
type PatElem struct {
	Name Name
	Mem  Name
}

// Pattern is the ordered list of outputs bound by a statement.
type Pattern []PatElem

// --- Parameters ---

// ParamType is the interface for function/loop parameter types.
type ParamType interface {
	implParamType()
}

// MemType declares a memory-block parameter with its symbolic size and
// allocation space.
type MemType struct {
	Size  SubExp
	Space string
}

// PrimType declares a scalar parameter.
type PrimType struct{}

// ArrayType declares an array parameter backed by memory block Mem.
type ArrayType struct {
	Mem Name
}

func (MemType) implParamType()   {}
func (PrimType) implParamType()  {}
func (ArrayType) implParamType() {}

// Param is a named function or loop parameter.
type Param struct {
	Name Name
	Type ParamType
}

// --- Expressions ---

// Exp is the interface for statement right-hand sides.
type Exp interface {
	implExp()
}

// Alloc reserves a fresh memory block of Size bytes in Space. The block
// is the statement's single (non-array) pattern name.
type Alloc struct {
	Size  SubExp
	Space string
}

// Array construction primitives. These are the operations eligible for
// block reuse decisions; anything else is inert for the allocator.

// Iota produces [0, 1, ..., N-1].
type Iota struct {
	N SubExp
}

// Replicate produces N copies of Value.
type Replicate struct {
	N     SubExp
	Value SubExp
}

// Manifest copies an array into row-major order.
type Manifest struct {
	Arr Name
}

// Copy duplicates an array.
type Copy struct {
	Arr Name
}

// Concat concatenates arrays along the outer dimension, total width W.
type Concat struct {
	W    SubExp
	Arrs []Name
}

// ArrayLit constructs an array from element sub-expressions.
type ArrayLit struct {
	Elems []SubExp
}

// Scratch allocates an uninitialized array with the given dimensions.
type Scratch struct {
	Dims []SubExp
}

// Partition splits an array into K partitions by equivalence class.
type Partition struct {
	K   int
	Arr Name
}

// SegMap is a data-parallel kernel applying Body across a space of
// size W. Its results are arrays.
type SegMap struct {
	W    SubExp
	Body *Body
}

// --- Compound statements ---

// MergeParam pairs a loop-local parameter with its initial value. The
// parameter takes Init on loop entry and the body's corresponding
// result on each subsequent iteration.
type MergeParam struct {
	Param Param
	Init  SubExp
}

// DoLoop is a counted loop with loop-carried merge parameters. The
// i-th merge parameter corresponds to the i-th element of the enclosing
// statement's pattern.
type DoLoop struct {
	Merge []MergeParam
	Bound SubExp
	Body  *Body
}

// If is a two-armed conditional; both arms produce the statement's
// pattern.
type If struct {
	Cond SubExp
	Then *Body
	Else *Body
}

// PrimOp is a scalar computation (arithmetic, comparison, conversion).
type PrimOp struct {
	Op   string
	Args []SubExp
}

// Apply calls a named function.
type Apply struct {
	Func Name
	Args []SubExp
}

func (Alloc) implExp()     {}
func (Iota) implExp()      {}
func (Replicate) implExp() {}
func (Manifest) implExp()  {}
func (Copy) implExp()      {}
func (Concat) implExp()    {}
func (ArrayLit) implExp()  {}
func (Scratch) implExp()   {}
func (Partition) implExp() {}
func (SegMap) implExp()    {}
func (DoLoop) implExp()    {}
func (If) implExp()        {}
func (PrimOp) implExp()    {}
func (Apply) implExp()     {}

// --- Statements, bodies, functions ---

// Stmt binds a pattern to the value of an expression.
type Stmt struct {
	Pat Pattern
	Exp Exp
}

// Body is an ordered statement sequence with a result tuple.
type Body struct {
	Stmts  []Stmt
	Result []SubExp
}

// FunDef is a function definition.
type FunDef struct {
	Name   Name
	Params []Param
	Body   *Body
}

// Program is a collection of function definitions.
type Program struct {
	Funs []FunDef
}

// NestedBodies returns the bodies contained directly in an expression,
// in arm order. Non-compound expressions have none.
func NestedBodies(e Exp) []*Body {
	switch exp := e.(type) {
	case SegMap:
		return []*Body{exp.Body}
	case DoLoop:
		return []*Body{exp.Body}
	case If:
		return []*Body{exp.Then, exp.Else}
	default:
		return nil
	}
}

// IsArrayCreating reports whether an expression constructs fresh array
// values and is therefore eligible for a block reuse decision. Unknown
// expression kinds are never array-creating.
func IsArrayCreating(e Exp) bool {
	switch e.(type) {
	case Partition, Replicate, Iota, Manifest, Copy, Concat, ArrayLit, Scratch, SegMap:
		return true
	default:
		return false
	}
}
