package lir

// LiveValues is the result of the live-values analysis: per-op
// fall-through-edge live sets and per-EBB entry live sets, interned in
// a shared pool.
type LiveValues struct {
	Pool *SetPool

	// FlowLive[op] is the set of values live on the fall-through edge
	// immediately after op. Terminating ops have no fall-through edge
	// and map to the empty set.
	FlowLive map[OpID]SetID

	// EbbLive[e] is the set of values live at entry to e, including
	// e's own block arguments when they are used.
	EbbLive map[EbbID]SetID
}

// LiveValues computes liveness for f by backward dataflow iteration to
// a fixpoint. A branch's contribution to liveness before its op is the
// target's entry-live set with each live target argument renamed to
// the corresponding EBB-call argument; values the branch does not
// rename flow through unchanged. Constants never appear in live sets.
func (f *Function) LiveValues() *LiveValues {
	ebbIn := make(map[EbbID]map[ValueID]bool, len(f.ebbs))

	for changed := true; changed; {
		changed = false
		ebbs := f.Ebbs()
		for i := len(ebbs) - 1; i >= 0; i-- {
			e := ebbs[i]
			live := f.liveThroughEbb(e, ebbIn, nil)
			if !sameLiveSet(ebbIn[e], live) {
				ebbIn[e] = live
				changed = true
			}
		}
	}

	out := &LiveValues{
		Pool:     NewSetPool(),
		FlowLive: make(map[OpID]SetID, len(f.ops)),
		EbbLive:  make(map[EbbID]SetID, len(f.ebbs)),
	}
	for _, e := range f.Ebbs() {
		f.liveThroughEbb(e, ebbIn, func(op OpID, after map[ValueID]bool) {
			out.FlowLive[op] = out.Pool.Intern(liveSetMembers(after))
		})
		out.EbbLive[e] = out.Pool.Intern(liveSetMembers(ebbIn[e]))
	}
	return out
}

// liveThroughEbb walks e's ops backward and returns the live set at
// e's entry, given the current entry-live estimates for all EBBs. When
// visit is non-nil it is called for each op with the live set on its
// fall-through edge, before the op's own effects are applied.
func (f *Function) liveThroughEbb(e EbbID, ebbIn map[EbbID]map[ValueID]bool, visit func(OpID, map[ValueID]bool)) map[ValueID]bool {
	live := make(map[ValueID]bool)
	ops := f.EbbOps(e)
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if visit != nil {
			visit(op, live)
		}
		next := make(map[ValueID]bool, len(live)+4)
		for v := range live {
			next[v] = true
		}
		for _, c := range f.OpBranches(op) {
			f.addBranchContribution(c, ebbIn, next)
		}
		for _, w := range f.OpWrites(op) {
			delete(next, w)
		}
		for _, r := range f.OpReads(op) {
			if !f.ValueIsConstant(r) {
				next[r] = true
			}
		}
		live = next
	}
	return live
}

// addBranchContribution merges into dst the values live before the
// branching op on account of EBB-call c: the target's entry-live set,
// with live target arguments renamed to the call's argument values.
// A target argument that is not live inside the target keeps nothing
// alive; its call argument is a dead phi input.
func (f *Function) addBranchContribution(c EbbCallID, ebbIn map[EbbID]map[ValueID]bool, dst map[ValueID]bool) {
	target := f.EbbCallTarget(c)
	targetArgs := f.EbbArgs(target)
	callArgs := f.EbbCallArgs(c)

	argIndex := make(map[ValueID]int, len(targetArgs))
	for i, a := range targetArgs {
		argIndex[a] = i
	}
	for v := range ebbIn[target] {
		if i, ok := argIndex[v]; ok {
			if i < len(callArgs) && !f.ValueIsConstant(callArgs[i]) {
				dst[callArgs[i]] = true
			}
			continue
		}
		dst[v] = true
	}
}

func sameLiveSet(a, b map[ValueID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

func liveSetMembers(s map[ValueID]bool) []ValueID {
	out := make([]ValueID, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}
