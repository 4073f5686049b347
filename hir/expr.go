package hir

import "github.com/hansihe/eirgo/ssaname"

// Expression is a multi-value HIR node: a vector of SingleExpressions,
// each carrying its own output SSA name.
type Expression struct {
	Values []SingleExpression
}

// SSA returns the per-value SSA names of e, in order.
func (e *Expression) SSA() []ssaname.Name {
	out := make([]ssaname.Name, len(e.Values))
	for i, v := range e.Values {
		out[i] = v.resultSSA()
	}
	return out
}

// SingleExpression is a tree node producing exactly one value. One
// concrete type implements it per expression kind rather than a single
// tagged-union struct.
type SingleExpression interface {
	resultSSA() ssaname.Name
	setResultSSA(ssaname.Name)
}

// node is embedded by every SingleExpression implementation and carries
// the SSA name assigned to this node's result.
type node struct {
	ssa ssaname.Name
}

func (n *node) resultSSA() ssaname.Name     { return n.ssa }
func (n *node) setResultSSA(v ssaname.Name) { n.ssa = v }

// SSA returns the SSA name assigned to e's result (valid only after the
// SSA pass has run).
func SSA(e SingleExpression) ssaname.Name { return e.resultSSA() }

// --- variable reference ---------------------------------------------

// VariableRef is a use of a value variable.
type VariableRef struct {
	node
	Var string
}

// --- calls -------------------------------------------------------------

// InterModuleCall is `module:name(args)`.
type InterModuleCall struct {
	node
	Module SingleExpression
	Name   SingleExpression
	Args   []SingleExpression
}

// ApplyCall is a local/closure application `fun(args)`.
type ApplyCall struct {
	node
	Fun  SingleExpression
	Args []SingleExpression
}

// --- let / try ----------------------------------------------------------

// Let is `let <Vars> = Val in Body`.
type Let struct {
	node
	Val    *Expression
	Vars   []string
	VarSSA []ssaname.Name // populated by the SSA pass
	Body   SingleExpression
}

// Try is `try Body of <ThenVars> -> Then catch <CatchVars> -> Catch`.
type Try struct {
	node
	Body      *Expression
	ThenVars  []string
	ThenSSA   []ssaname.Name
	Then      SingleExpression
	CatchVars []string
	CatchSSA  []ssaname.Name
	Catch     SingleExpression
}

// --- case / receive -----------------------------------------------------

// PatternBind is one `(name, ssa)` binding introduced by a clause pattern.
type PatternBind struct {
	Var string
	SSA ssaname.Name
}

// Pattern is one clause's compiled pattern, carrying the bindings it
// introduces. Pattern *matching* itself is a downstream concern; this
// model only carries the bind list the SSA pass needs.
type Pattern struct {
	Binds []PatternBind
}

// Clause is one arm of a Case or Receive: zero or more Patterns sharing
// one scope, a guard, and a body.
type Clause struct {
	Patterns []*Pattern
	Guard    SingleExpression
	Body     SingleExpression
}

// Case is a pattern-match expression.
type Case struct {
	node
	Scrutinee *Expression
	Values    []SingleExpression // pattern value-exprs, evaluated before matching
	Clauses   []*Clause
}

// Receive is a message receive with a timeout. TimeoutTime and
// TimeoutBody must both be set; the SSA pass rejects a nil one as a
// MalformedOp.
type Receive struct {
	node
	PatternValues []SingleExpression
	Clauses       []*Clause
	TimeoutTime   SingleExpression
	TimeoutBody   SingleExpression
}

// --- literals / function references -------------------------------------

// Atomic is a literal value carried opaquely.
type Atomic struct {
	node
	Literal any
}

// NamedFunction is a reference to a function defined in the same module.
// IsLambda is set true by the SSA pass when the name resolves to a local
// (possibly mutually recursive) binding rather than a top-level export.
type NamedFunction struct {
	node
	Name     string
	IsLambda bool
}

// ExternalNamedFunction is a reference to a function in another module.
type ExternalNamedFunction struct {
	node
	Module string
	Name   string
}

// --- aggregates ----------------------------------------------------------

// Tuple is `{Elems...}`.
type Tuple struct {
	node
	Elems []SingleExpression
}

// ListExpr is `[Head... | Tail]`.
type ListExpr struct {
	node
	Head []SingleExpression
	Tail SingleExpression
}

// MapEntry is one `Key => Val` pair in a MapExpr.
type MapEntry struct {
	Key SingleExpression
	Val SingleExpression
}

// MapExpr is a map literal with an optional merge source (`Merge#{...}`).
type MapExpr struct {
	node
	Entries []MapEntry
	Merge   SingleExpression // nil if absent
}

// BinarySegment is one segment of a binary literal plus its options
// (size, unit, signedness, ...), each itself a SingleExpression.
type BinarySegment struct {
	Value SingleExpression
	Opts  []SingleExpression
}

// BinarySeq is a binary literal: `<<Segments...>>`.
type BinarySeq struct {
	node
	Segments []BinarySegment
}

// PrimOp is a primitive operation with opaque Name and Args.
type PrimOp struct {
	node
	Name string
	Args []SingleExpression
}

// Sequence is `e1, e2`: evaluate e1 for effect, result is e2.
type Sequence struct {
	node
	First  *Expression
	Second SingleExpression
}

// --- closures ------------------------------------------------------------

// Closure is the lambda body shared by BindClosure and, per-element, by
// BindClosures.
type Closure struct {
	Args    []string
	ArgSSA  []ssaname.Name
	Body    SingleExpression
	EnvIdx  int // set once lambda_env is assigned
}

// BindClosure binds a single (non-recursive) closure and carries its
// own env index/SSA separately from the general node SSA.
type BindClosure struct {
	node
	Closure   *Closure
	LambdaEnv int // -1 until assigned
	EnvSSA    ssaname.Name
}

// MutualClosure is one member of a BindClosures group: an alias name
// (for internal recursive reference) plus the closure body.
type MutualClosure struct {
	Alias    string
	AliasSSA ssaname.Name
	Args     []string
	ArgSSA   []ssaname.Name
	Body     SingleExpression
	EnvIdx   int
}

// BindClosures binds a mutually recursive group of closures sharing one
// lambda env, then evaluates Body in a scope where every closure's alias
// is visible.
type BindClosures struct {
	node
	Closures  []*MutualClosure
	Body      SingleExpression
	LambdaEnv int
	EnvSSA    ssaname.Name
}
