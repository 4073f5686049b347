package lir

import "github.com/hansihe/eirgo/diag"

// Builder is the only way to mutate a Function: it tracks an insertion
// position (an EBB whose end ops are appended to) and an in-progress
// op assembled through the OpBuild* calls. The builder maintains the
// invariants it can check cheaply: an op belongs to exactly one EBB, a
// terminating op is never followed by another, reads refer to values
// the function actually owns, and every write mints a fresh value
// handle. Full structural checking is deferred to SanityCheck.
type Builder struct {
	fun *Function

	pos    EbbID
	hasPos bool

	building bool
	kind     OpKind
	reads    []ValueID
	writes   []ValueID
	branches []EbbCallID
}

// NewBuilder returns a Builder appending into fun.
func NewBuilder(fun *Function) *Builder {
	return &Builder{fun: fun}
}

// Function returns the function under construction.
func (b *Builder) Function() *Function { return b.fun }

// InsertEbb creates a new, empty EBB.
func (b *Builder) InsertEbb() EbbID {
	b.fun.ebbs = append(b.fun.ebbs, ebbData{})
	return EbbID(len(b.fun.ebbs) - 1)
}

// InsertEbbEntry creates a new EBB and installs it as the function's
// entry. It panics if an entry already exists.
func (b *Builder) InsertEbbEntry() EbbID {
	if b.fun.hasEntry {
		panic("lir: function already has an entry EBB")
	}
	e := b.InsertEbb()
	b.fun.entry = e
	b.fun.hasEntry = true
	return e
}

// PositionAtEnd moves the insertion position to the end of e.
func (b *Builder) PositionAtEnd(e EbbID) {
	b.pos = e
	b.hasPos = true
}

// CurrentEbb returns the current insertion position.
func (b *Builder) CurrentEbb() EbbID {
	if !b.hasPos {
		panic("lir: builder has no insertion position")
	}
	return b.pos
}

// AddEbbArgument appends a block argument to e and returns its value.
func (b *Builder) AddEbbArgument(e EbbID) ValueID {
	v := b.newValue(valueData{})
	b.fun.ebbs[e].args = append(b.fun.ebbs[e].args, v)
	return v
}

// CreateConstant mints a constant value carrying lit.
func (b *Builder) CreateConstant(lit any) ValueID {
	return b.newValue(valueData{isConst: true, lit: lit})
}

func (b *Builder) newValue(d valueData) ValueID {
	b.fun.values = append(b.fun.values, d)
	return ValueID(len(b.fun.values) - 1)
}

// CreateEbbCall creates an EBB-call targeting target with args. Its
// source op is recorded when the call is attached via OpBuildEbbCall.
func (b *Builder) CreateEbbCall(target EbbID, args []ValueID) EbbCallID {
	for _, a := range args {
		b.checkValue(a)
	}
	b.fun.ebbCalls = append(b.fun.ebbCalls, ebbCallData{
		target: target,
		args:   append([]ValueID(nil), args...),
	})
	return EbbCallID(len(b.fun.ebbCalls) - 1)
}

// PutAttribute sets the boolean tag a on the function.
func (b *Builder) PutAttribute(a Attribute) {
	b.fun.SetAttribute(a)
}

// OpBuildStart begins assembling an op of the given kind at the
// current insertion position.
func (b *Builder) OpBuildStart(kind OpKind) {
	if b.building {
		panic("lir: OpBuildStart while another op is in progress")
	}
	b.CurrentEbb()
	b.building = true
	b.kind = kind
	b.reads = b.reads[:0]
	b.writes = b.writes[:0]
	b.branches = b.branches[:0]
}

// OpBuildWrite mints a fresh result value for the op in progress.
func (b *Builder) OpBuildWrite() ValueID {
	b.checkBuilding()
	v := b.newValue(valueData{})
	b.writes = append(b.writes, v)
	return v
}

// OpBuildRead appends a read operand to the op in progress.
func (b *Builder) OpBuildRead(v ValueID) {
	b.checkBuilding()
	b.checkValue(v)
	b.reads = append(b.reads, v)
}

// OpBuildEbbCall attaches an outgoing branch to the op in progress.
func (b *Builder) OpBuildEbbCall(c EbbCallID) {
	b.checkBuilding()
	b.branches = append(b.branches, c)
}

// OpBuildEnd finishes the op in progress, appending it to the current
// EBB, and returns its handle. Appending after a terminating op is a
// MalformedOp.
func (b *Builder) OpBuildEnd() OpID {
	b.checkBuilding()
	b.building = false

	ebb := &b.fun.ebbs[b.pos]
	if n := len(ebb.ops); n > 0 {
		last := b.fun.ops[ebb.ops[n-1]]
		if last.kind.Terminator() {
			panic(&diag.MalformedOp{Reason: "op appended after a terminating op"})
		}
	}

	op := OpID(len(b.fun.ops))
	b.fun.ops = append(b.fun.ops, opData{
		kind:     b.kind,
		ebb:      b.pos,
		index:    len(ebb.ops),
		reads:    append([]ValueID(nil), b.reads...),
		writes:   append([]ValueID(nil), b.writes...),
		branches: append([]EbbCallID(nil), b.branches...),
	})
	ebb.ops = append(ebb.ops, op)
	for _, c := range b.fun.ops[op].branches {
		b.fun.ebbCalls[c].source = op
	}
	return op
}

func (b *Builder) checkBuilding() {
	if !b.building {
		panic("lir: op build call outside OpBuildStart/OpBuildEnd")
	}
}

func (b *Builder) checkValue(v ValueID) {
	if int(v) < 0 || int(v) >= len(b.fun.values) {
		panic(&diag.MalformedOp{Reason: "read of a value the function does not own"})
	}
}

// --- op-kind helpers -----------------------------------------------------
//
// The CPS transform drives the builder through these rather than raw
// OpBuildStart sequences; each emits one op of a fixed shape.

// OpUnpackEnv destructures env into count values, returned in
// capture-list order (slot 0 is the ok continuation, slot 1 the error
// continuation, the rest the captures).
func (b *Builder) OpUnpackEnv(env ValueID, count int) []ValueID {
	b.OpBuildStart(UnpackEnv{Count: count})
	out := make([]ValueID, count)
	for i := range out {
		out[i] = b.OpBuildWrite()
	}
	b.OpBuildRead(env)
	b.OpBuildEnd()
	return out
}

// OpMakeClosureEnv packs captures into an environment for env.
func (b *Builder) OpMakeClosureEnv(env EnvID, captures []ValueID) ValueID {
	b.OpBuildStart(MakeClosureEnv{EnvIdx: env})
	v := b.OpBuildWrite()
	for _, c := range captures {
		b.OpBuildRead(c)
	}
	b.OpBuildEnd()
	return v
}

// OpBindClosure binds ident over env and returns the closure value.
func (b *Builder) OpBindClosure(ident FunctionIdent, env ValueID) ValueID {
	b.OpBuildStart(BindClosure{Ident: ident})
	v := b.OpBuildWrite()
	b.OpBuildRead(env)
	b.OpBuildEnd()
	return v
}

// OpTailApply emits a tail-position closure application of callee to
// args. It terminates the current EBB.
func (b *Builder) OpTailApply(callee ValueID, args []ValueID) {
	b.OpBuildStart(Apply{CallType: CallTail})
	b.OpBuildRead(callee)
	for _, a := range args {
		b.OpBuildRead(a)
	}
	b.OpBuildEnd()
}

// OpTailCall emits a tail-position inter-module call of name in module
// with args. It terminates the current EBB.
func (b *Builder) OpTailCall(name, module ValueID, arity int, args []ValueID) {
	b.OpBuildStart(Call{CallType: CallTail, Arity: arity})
	b.OpBuildRead(name)
	b.OpBuildRead(module)
	for _, a := range args {
		b.OpBuildRead(a)
	}
	b.OpBuildEnd()
}

// OpContApply emits an invocation of the continuation cont with args.
// It terminates the current EBB.
func (b *Builder) OpContApply(cont ValueID, args []ValueID) {
	b.OpBuildStart(ContApply{})
	b.OpBuildRead(cont)
	for _, a := range args {
		b.OpBuildRead(a)
	}
	b.OpBuildEnd()
}

// OpCall emits a normal (may-return) inter-module call with its throw
// edge and returns the (ok, err) result values. The throw EBB-call
// conventionally passes err as one of its arguments; callers build it
// against the values this method returns, so the call is created by
// the given callback once the writes exist.
func (b *Builder) OpCall(name, module ValueID, args []ValueID, throw func(ok, err ValueID) EbbCallID) (ValueID, ValueID) {
	b.OpBuildStart(Call{CallType: CallNormal, Arity: len(args)})
	ok := b.OpBuildWrite()
	err := b.OpBuildWrite()
	b.OpBuildRead(name)
	b.OpBuildRead(module)
	for _, a := range args {
		b.OpBuildRead(a)
	}
	b.OpBuildEbbCall(throw(ok, err))
	b.OpBuildEnd()
	return ok, err
}

// OpApply emits a normal closure application with its throw edge,
// shaped like OpCall.
func (b *Builder) OpApply(callee ValueID, args []ValueID, throw func(ok, err ValueID) EbbCallID) (ValueID, ValueID) {
	b.OpBuildStart(Apply{CallType: CallNormal})
	ok := b.OpBuildWrite()
	err := b.OpBuildWrite()
	b.OpBuildRead(callee)
	for _, a := range args {
		b.OpBuildRead(a)
	}
	b.OpBuildEbbCall(throw(ok, err))
	b.OpBuildEnd()
	return ok, err
}

// OpJump emits an unconditional branch through c.
func (b *Builder) OpJump(c EbbCallID) {
	b.OpBuildStart(Jump{})
	b.OpBuildEbbCall(c)
	b.OpBuildEnd()
}

// OpReturnOk emits a normal return of v.
func (b *Builder) OpReturnOk(v ValueID) {
	b.OpBuildStart(ReturnOk{})
	b.OpBuildRead(v)
	b.OpBuildEnd()
}

// OpReturnThrow emits an exceptional return of v.
func (b *Builder) OpReturnThrow(v ValueID) {
	b.OpBuildStart(ReturnThrow{})
	b.OpBuildRead(v)
	b.OpBuildEnd()
}
