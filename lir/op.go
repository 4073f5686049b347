package lir

import "fmt"

// CallType distinguishes a call that may return to its fall-through
// edge from one in tail position.
type CallType int

const (
	CallNormal CallType = iota
	CallTail
)

func (c CallType) String() string {
	if c == CallTail {
		return "tail"
	}
	return "normal"
}

// OpKind is implemented by one concrete value type per op kind. Kind
// values are plain data: copying one by assignment is how the CPS
// transform clones an op's kind into a destination function.
type OpKind interface {
	// Terminator reports whether an op of this kind must be the last op
	// of its EBB (it transfers control and has no fall-through edge).
	Terminator() bool
	fmt.Stringer
	opKind()
}

// Call is an inter-module call. Reads are laid out as
// [name, module, args...]; a Normal call writes [ok, err] and carries
// its throw edge as branch 0, a Tail call writes nothing. After the CPS
// transform the args prefix gains [ok_cont, err_cont].
type Call struct {
	CallType CallType
	Arity    int
}

// Apply is a local/closure application. Reads are [callee, args...];
// writes and branches follow the same Normal/Tail shape as Call.
type Apply struct {
	CallType CallType
}

// ReturnOk returns its single read as the function's value.
type ReturnOk struct{}

// ReturnThrow raises its single read as the function's exception.
type ReturnThrow struct{}

// UnpackEnv destructures a closure environment: one read (the env),
// Count writes (the captured values in capture-list order).
type UnpackEnv struct {
	Count int
}

// MakeClosureEnv packs its reads into a closure environment for lambda
// env EnvIdx; one write (the env value).
type MakeClosureEnv struct {
	EnvIdx EnvID
}

// BindClosure binds Ident over the env given as its single read; one
// write (the closure value).
type BindClosure struct {
	Ident FunctionIdent
}

// ContApply invokes a continuation closure: reads [cont, args...], no
// writes, no branches. It never returns.
type ContApply struct{}

// Jump transfers control unconditionally through its single branch.
type Jump struct{}

// PrimOp is an opaque primitive operation the CPS transform copies
// verbatim: arbitrary reads, writes, and branches, with a fall-through
// edge.
type PrimOp struct {
	Name string
}

func (Call) opKind()           {}
func (Apply) opKind()          {}
func (ReturnOk) opKind()       {}
func (ReturnThrow) opKind()    {}
func (UnpackEnv) opKind()      {}
func (MakeClosureEnv) opKind() {}
func (BindClosure) opKind()    {}
func (ContApply) opKind()      {}
func (Jump) opKind()           {}
func (PrimOp) opKind()         {}

func (k Call) Terminator() bool         { return k.CallType == CallTail }
func (k Apply) Terminator() bool        { return k.CallType == CallTail }
func (ReturnOk) Terminator() bool       { return true }
func (ReturnThrow) Terminator() bool    { return true }
func (UnpackEnv) Terminator() bool      { return false }
func (MakeClosureEnv) Terminator() bool { return false }
func (BindClosure) Terminator() bool    { return false }
func (ContApply) Terminator() bool      { return true }
func (Jump) Terminator() bool           { return true }
func (PrimOp) Terminator() bool         { return false }

func (k Call) String() string           { return fmt.Sprintf("call.%s/%d", k.CallType, k.Arity) }
func (k Apply) String() string          { return fmt.Sprintf("apply.%s", k.CallType) }
func (ReturnOk) String() string         { return "return_ok" }
func (ReturnThrow) String() string      { return "return_throw" }
func (k UnpackEnv) String() string      { return fmt.Sprintf("unpack_env/%d", k.Count) }
func (k MakeClosureEnv) String() string { return fmt.Sprintf("make_closure_env/%d", int(k.EnvIdx)) }
func (k BindClosure) String() string    { return fmt.Sprintf("bind_closure %s", k.Ident) }
func (ContApply) String() string        { return "cont_apply" }
func (Jump) String() string             { return "jump" }
func (k PrimOp) String() string         { return fmt.Sprintf("primop %s", k.Name) }
