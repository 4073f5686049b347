// Package cps rewrites LIR functions into continuation-passing style.
// Every call site that may return or throw is split: the remainder of
// the function becomes an ok-continuation and an error-continuation
// closure, and every function gains two leading continuation
// parameters. The transform is functional: it reads the source module
// through accessors and builds an entirely new module.
package cps

import (
	"github.com/hansihe/eirgo/diag"
	"github.com/hansihe/eirgo/lir"
)

// siteKind discriminates the two ways control can enter a continuation.
type siteKind int

const (
	// siteOp: the continuation resumes at an op reached by fall-through
	// from a call (the ok path).
	siteOp siteKind = iota
	// siteEbbCall: the continuation resumes at the target of a call's
	// throw edge (the error path).
	siteEbbCall
)

// site keys a continuation for sharing and scheduling: an Op site on
// the op itself, an EbbCall site on the call plus the optional renamed
// error result that propagates into the target EBB. Two control-flow
// paths converging on an equal site share one continuation function.
type site struct {
	kind siteKind
	op   lir.OpID

	call       lir.EbbCallID
	renamed    lir.ValueID
	hasRenamed bool
}

func opSite(op lir.OpID) site { return site{kind: siteOp, op: op} }

// scheduler owns the env-per-site table and the work queue of
// continuations still to be generated. Envs are allocated in the order
// sites are first discovered during chunk-body generation, which is a
// function of sorted ident order and graph shape only.
type scheduler struct {
	envs      *lir.ModuleEnvs
	envBySite map[site]lir.EnvID
	queue     []pending
}

type pending struct {
	st  site
	env lir.EnvID
}

// envFor returns the env index for st, reusing a known site's env or
// allocating a fresh one with the given capture count and scheduling
// the site's chunk for generation.
func (s *scheduler) envFor(st site, captures int) lir.EnvID {
	if env, ok := s.envBySite[st]; ok {
		return env
	}
	env := s.envs.Add()
	s.envs.SetCapturesNum(env, captures)
	s.envBySite[st] = env
	s.queue = append(s.queue, pending{st: st, env: env})
	return env
}

// TransformModule rewrites every function of m into CPS form and
// returns the new module: the same name, the entry chunks under their
// original idents plus one chunk per discovered continuation, and m's
// env table extended with the newly allocated records. m itself is not
// modified. Functions are processed in sorted ident order so env-index
// allocation is deterministic.
func TransformModule(m *lir.Module) *lir.Module {
	out := &lir.Module{
		Name:      m.Name,
		Functions: make(map[lir.FunctionIdent]*lir.Function),
		Envs:      m.Envs.Clone(),
	}
	for _, ident := range m.SortedIdents() {
		transformFunction(m.Functions[ident], out.Envs, out.Functions)
	}
	return out
}

// transformFunction generates srcFun's entry chunk and then drains the
// continuation queue it seeds, appending every chunk to result.
func transformFunction(srcFun *lir.Function, envs *lir.ModuleEnvs, result map[lir.FunctionIdent]*lir.Function) {
	live := srcFun.LiveValues()

	// Identify continuation sites: every Call and Apply, of either
	// call type. Tail calls are sites that never allocate new
	// continuations.
	contSites := make(map[lir.OpID]bool)
	for _, ebb := range srcFun.Ebbs() {
		for _, op := range srcFun.EbbOps(ebb) {
			switch srcFun.OpKind(op).(type) {
			case lir.Call, lir.Apply:
				contSites[op] = true
			}
		}
	}

	sched := &scheduler{
		envs:      envs,
		envBySite: make(map[site]lir.EnvID),
	}

	entry := srcFun.EbbEntry()
	fun := genChunk(srcFun, opSite(srcFun.EbbFirstOp(entry)), contSites, live, sched, 0, false)
	result[fun.Ident()] = fun

	generated := make(map[site]bool)
	for len(sched.queue) > 0 {
		p := sched.queue[len(sched.queue)-1]
		sched.queue = sched.queue[:len(sched.queue)-1]
		if generated[p.st] {
			continue
		}
		generated[p.st] = true

		fun := genChunk(srcFun, p.st, contSites, live, sched, p.env, true)
		result[fun.Ident()] = fun
	}
}

// genChunk builds one chunk: a new Function whose entry EBB is either
// the transformed function's entry (isCont false) or the continuation
// for st under contEnv (isCont true).
func genChunk(
	srcFun *lir.Function,
	st site,
	contSites map[lir.OpID]bool,
	live *lir.LiveValues,
	sched *scheduler,
	contEnv lir.EnvID,
	isCont bool,
) *lir.Function {
	ident := srcFun.Ident()
	if isCont {
		ident.Lambda = lir.LambdaOf(contEnv, 0)
	}
	fun := lir.NewFunction(ident, lir.DialectCPS)
	b := lir.NewBuilder(fun)
	if isCont {
		b.PutAttribute(lir.AttrContinuation)
	}

	// valMap maps source values to destination values; ebbMap maps a
	// source op to the destination EBB it is (or will be) copied into.
	// EBBs are keyed by op, not by EBB identity, because continuation
	// sites split source EBBs mid-stream: an op handle names exactly
	// one (EBB, prefix position) pair, so the per-op key stays unique
	// even when a site is the first op of its EBB.
	valMap := make(map[lir.ValueID]lir.ValueID)
	ebbMap := make(map[lir.OpID]lir.EbbID)
	handled := make(map[lir.OpID]bool)

	entryEbb := b.InsertEbbEntry()
	b.PositionAtEnd(entryEbb)

	var okRetCont, errRetCont lir.ValueID
	var srcFirstOp lir.OpID

	if isCont {
		// Continuation chunk: arguments are [env, result]. The env
		// unpacks into capture_count + 2 values; slot 0 is the ok
		// return continuation, slot 1 the error one, the rest the
		// captures recorded on the site's lambda env.
		var resultSrc lir.ValueID
		var hasResultSrc bool
		var envVals []lir.ValueID

		switch st.kind {
		case siteOp:
			// Entered from flow: the result is the first write of the
			// call that precedes the site.
			prevOp, ok := srcFun.OpBefore(st.op)
			if !ok {
				panic(&diag.MalformedOp{Reason: "flow continuation site has no preceding op"})
			}
			resultSrc = srcFun.OpWrites(prevOp)[0]
			hasResultSrc = true
			for _, v := range live.Pool.Values(live.FlowLive[prevOp]) {
				if v == resultSrc {
					continue
				}
				envVals = append(envVals, v)
			}
			srcFirstOp = st.op

		case siteEbbCall:
			// Entered from the throw edge: the result is the renamed
			// error value, when one propagates into the target.
			resultSrc, hasResultSrc = st.renamed, st.hasRenamed
			callSource := srcFun.EbbCallSource(st.call)
			target := srcFun.EbbCallTarget(st.call)
			preErr := srcFun.OpWrites(callSource)[1]
			for _, v := range live.Pool.Values(live.EbbLive[target]) {
				if v == preErr {
					panic(&diag.MalformedOp{Reason: "pre-branch error value live inside throw target"})
				}
				if hasResultSrc && v == resultSrc {
					continue
				}
				envVals = append(envVals, v)
			}
			srcFirstOp = srcFun.EbbFirstOp(target)
		}
		ebbMap[srcFirstOp] = entryEbb

		envVal := b.AddEbbArgument(entryEbb)
		resVal := b.AddEbbArgument(entryEbb)
		if hasResultSrc {
			valMap[resultSrc] = resVal
		}

		unpacked := b.OpUnpackEnv(envVal, len(envVals)+2)
		okRetCont = unpacked[0]
		errRetCont = unpacked[1]
		for i, src := range envVals {
			valMap[src] = unpacked[i+2]
		}
	} else {
		// Entry chunk: arguments are [ok_ret_cont, err_ret_cont,
		// original entry EBB args...].
		if st.kind != siteOp {
			panic(&diag.MalformedOp{Reason: "entry chunk must start at an op site"})
		}
		srcFirstOp = st.op
		srcFirstEbb := srcFun.OpEbb(srcFirstOp)
		ebbMap[srcFirstOp] = entryEbb

		okRetCont = b.AddEbbArgument(entryEbb)
		errRetCont = b.AddEbbArgument(entryEbb)
		for _, arg := range srcFun.EbbArgs(srcFirstEbb) {
			valMap[arg] = b.AddEbbArgument(entryEbb)
		}
	}

	toProcess := []lir.OpID{srcFirstOp}
	for len(toProcess) > 0 {
		srcOp := toProcess[0]
		toProcess = toProcess[1:]

		if handled[srcOp] {
			continue
		}
		handled[srcOp] = true

		b.PositionAtEnd(ebbMap[srcOp])

		if contSites[srcOp] {
			genCallSite(srcFun, srcOp, b, valMap, live, sched, okRetCont, errRetCont)
			// The call replaces the remainder of the chunk on this
			// path; the original op is not copied.
			continue
		}

		switch srcFun.OpKind(srcOp).(type) {
		case lir.ReturnOk:
			res := srcFun.OpReads(srcOp)[0]
			b.OpContApply(okRetCont, []lir.ValueID{copyRead(srcFun, b, valMap, res)})

		case lir.ReturnThrow:
			res := srcFun.OpReads(srcOp)[0]
			b.OpContApply(errRetCont, []lir.ValueID{copyRead(srcFun, b, valMap, res)})

		default:
			copyOp(srcFun, srcOp, b, valMap, ebbMap)
			if next, ok := srcFun.OpAfter(srcOp); ok {
				toProcess = append(toProcess, next)
			}
			for _, c := range srcFun.OpBranches(srcOp) {
				toProcess = append(toProcess, srcFun.EbbFirstOp(srcFun.EbbCallTarget(c)))
			}
		}
	}

	return fun
}

// genCallSite rewrites one continuation site into its transformed
// form: for a normal call, two freshly bound continuation closures and
// a tail call; for a tail call, a tail call threading the chunk's own
// return continuations through.
func genCallSite(
	srcFun *lir.Function,
	srcOp lir.OpID,
	b *lir.Builder,
	valMap map[lir.ValueID]lir.ValueID,
	live *lir.LiveValues,
	sched *scheduler,
	okRetCont, errRetCont lir.ValueID,
) {
	var isTail, isApply bool
	var arity int
	switch k := srcFun.OpKind(srcOp).(type) {
	case lir.Apply:
		isTail = k.CallType == lir.CallTail
		isApply = true
	case lir.Call:
		isTail = k.CallType == lir.CallTail
		arity = k.Arity
	default:
		panic(&diag.MalformedOp{Reason: "non-call op in continuation site set"})
	}

	writes := srcFun.OpWrites(srcOp)
	if isTail {
		if len(writes) != 0 {
			panic(&diag.ArityMismatch{Context: "tail call writes", Expected: 0, Got: len(writes)})
		}
	} else if len(writes) != 2 {
		panic(&diag.ArityMismatch{Context: "call writes", Expected: 2, Got: len(writes)})
	}

	var okCont, errCont lir.ValueID
	if isTail {
		// A tail call threads the incoming continuations straight
		// through; no new closures are bound.
		okCont, errCont = okRetCont, errRetCont
	} else {
		okVal, nokVal := writes[0], writes[1]

		// Ok continuation: captures the values live on the
		// fall-through edge, minus the call's own ok result, which
		// arrives as the continuation's result argument.
		captures := []lir.ValueID{okRetCont, errRetCont}
		for _, v := range live.Pool.Values(live.FlowLive[srcOp]) {
			if v == okVal {
				continue
			}
			captures = append(captures, mappedValue(valMap, v))
		}
		next, ok := srcFun.OpAfter(srcOp)
		if !ok {
			panic(&diag.MalformedOp{Reason: "normal call terminates its EBB"})
		}
		okCont = bindContinuation(srcFun, b, sched, opSite(next), captures)

		// Error continuation: captures the values live at the throw
		// edge's target, renamed back through the EBB-call's argument
		// list to their pre-branch values. The position whose rename
		// equals the call's error result is the continuation's result
		// argument, not a capture.
		branch := srcFun.OpBranches(srcOp)[0]
		target := srcFun.EbbCallTarget(branch)
		callArgs := srcFun.EbbCallArgs(branch)
		renames := make(map[lir.ValueID]lir.ValueID)
		for i, to := range srcFun.EbbArgs(target) {
			if i < len(callArgs) {
				renames[to] = callArgs[i]
			}
		}

		captures = []lir.ValueID{okRetCont, errRetCont}
		var renamedNok lir.ValueID
		var hasRenamedNok bool
		for _, v := range live.Pool.Values(live.EbbLive[target]) {
			renamed := v
			if r, ok := renames[v]; ok {
				renamed = r
			}
			if renamed == nokVal {
				renamedNok, hasRenamedNok = v, true
				continue
			}
			captures = append(captures, mappedValue(valMap, renamed))
		}
		errSite := site{kind: siteEbbCall, call: branch, renamed: renamedNok, hasRenamed: hasRenamedNok}
		errCont = bindContinuation(srcFun, b, sched, errSite, captures)
	}

	// Outgoing call: [ok_cont, err_cont] prefix, then the original
	// argument reads, with the callee operand(s) peeled off the front.
	args := []lir.ValueID{okCont, errCont}
	reads := srcFun.OpReads(srcOp)
	if isApply {
		for _, r := range reads[1:] {
			args = append(args, copyRead(srcFun, b, valMap, r))
		}
		b.OpTailApply(copyRead(srcFun, b, valMap, reads[0]), args)
	} else {
		for _, r := range reads[2:] {
			args = append(args, copyRead(srcFun, b, valMap, r))
		}
		name := copyRead(srcFun, b, valMap, reads[0])
		module := copyRead(srcFun, b, valMap, reads[1])
		b.OpTailCall(name, module, arity, args)
	}
}

// bindContinuation resolves st's env (allocating and scheduling on
// first discovery), then emits the make_closure_env/bind_closure pair
// and returns the closure value.
func bindContinuation(srcFun *lir.Function, b *lir.Builder, sched *scheduler, st site, captures []lir.ValueID) lir.ValueID {
	env := sched.envFor(st, len(captures))
	envVal := b.OpMakeClosureEnv(env, captures)
	ident := srcFun.Ident()
	ident.Lambda = lir.LambdaOf(env, 0)
	return b.OpBindClosure(ident, envVal)
}

// copyOp copies one non-site op verbatim into the destination: same
// kind, fresh writes recorded in valMap, reads and branch arguments
// mapped (constants re-minted by value), branch targets found or
// created in the destination keyed by the source target's first op.
// The fall-through successor, if any, is registered as continuing in
// the current destination EBB.
func copyOp(
	srcFun *lir.Function,
	srcOp lir.OpID,
	b *lir.Builder,
	valMap map[lir.ValueID]lir.ValueID,
	ebbMap map[lir.OpID]lir.EbbID,
) {
	b.OpBuildStart(srcFun.OpKind(srcOp))

	for _, w := range srcFun.OpWrites(srcOp) {
		valMap[w] = b.OpBuildWrite()
	}
	for _, r := range srcFun.OpReads(srcOp) {
		b.OpBuildRead(copyRead(srcFun, b, valMap, r))
	}
	for _, c := range srcFun.OpBranches(srcOp) {
		oldTarget := srcFun.EbbCallTarget(c)
		oldFirstOp := srcFun.EbbFirstOp(oldTarget)

		dst, ok := ebbMap[oldFirstOp]
		if !ok {
			dst = b.InsertEbb()
			ebbMap[oldFirstOp] = dst
			for _, arg := range srcFun.EbbArgs(oldTarget) {
				valMap[arg] = b.AddEbbArgument(dst)
			}
		}

		args := make([]lir.ValueID, 0, len(srcFun.EbbCallArgs(c)))
		for _, a := range srcFun.EbbCallArgs(c) {
			args = append(args, copyRead(srcFun, b, valMap, a))
		}
		b.OpBuildEbbCall(b.CreateEbbCall(dst, args))
	}

	if next, ok := srcFun.OpAfter(srcOp); ok {
		ebbMap[next] = b.CurrentEbb()
	}

	b.OpBuildEnd()
}

// copyRead translates one source operand into the destination:
// constants are copied by value, computed values through the map.
func copyRead(srcFun *lir.Function, b *lir.Builder, valMap map[lir.ValueID]lir.ValueID, src lir.ValueID) lir.ValueID {
	if srcFun.ValueIsConstant(src) {
		return b.CreateConstant(srcFun.ValueConstant(src))
	}
	return mappedValue(valMap, src)
}

func mappedValue(valMap map[lir.ValueID]lir.ValueID, src lir.ValueID) lir.ValueID {
	dst, ok := valMap[src]
	if !ok {
		panic(&diag.MalformedOp{Reason: "source value used before its definition was copied"})
	}
	return dst
}
