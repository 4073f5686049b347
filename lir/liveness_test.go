package lir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveSlice materializes a live set for comparison.
func liveSlice(lv *LiveValues, id SetID) []ValueID {
	return append([]ValueID(nil), lv.Pool.Values(id)...)
}

func TestLivenessBranchRenaming(t *testing.T) {
	// f(a, b):
	//   entry(a, b): primop "lt" [a, b] -> c, branch other(b)
	//                return_ok a
	//   other(x):    return_ok x
	fn := NewFunction(testIdent("f", 2), DialectNormal)
	b := NewBuilder(fn)

	entry := b.InsertEbbEntry()
	other := b.InsertEbb()
	b.PositionAtEnd(other)
	x := b.AddEbbArgument(other)
	b.OpReturnOk(x)

	b.PositionAtEnd(entry)
	av := b.AddEbbArgument(entry)
	bv := b.AddEbbArgument(entry)
	b.OpBuildStart(PrimOp{Name: "lt"})
	b.OpBuildWrite()
	b.OpBuildRead(av)
	b.OpBuildRead(bv)
	b.OpBuildEbbCall(b.CreateEbbCall(other, []ValueID{bv}))
	cmp := b.OpBuildEnd()
	b.OpReturnOk(av)

	lv := fn.LiveValues()

	// The fall-through edge after the compare carries only a; the
	// branch's b flows through the rename, not the fall-through set.
	assert.Equal(t, []ValueID{av}, liveSlice(lv, lv.FlowLive[cmp]))

	// other's entry set holds its own (used) block argument.
	assert.Equal(t, []ValueID{x}, liveSlice(lv, lv.EbbLive[other]))

	// At entry both a (read, returned) and b (renamed into x) are live.
	assert.Equal(t, []ValueID{av, bv}, liveSlice(lv, lv.EbbLive[entry]))
}

func TestLivenessDeadPhiInputStaysDead(t *testing.T) {
	// A branch argument feeding an unused block argument keeps nothing
	// alive.
	fn := NewFunction(testIdent("f", 1), DialectNormal)
	b := NewBuilder(fn)

	entry := b.InsertEbbEntry()
	other := b.InsertEbb()
	b.PositionAtEnd(other)
	b.AddEbbArgument(other) // never read
	b.OpReturnOk(b.CreateConstant("ok"))

	b.PositionAtEnd(entry)
	av := b.AddEbbArgument(entry)
	b.OpJump(b.CreateEbbCall(other, []ValueID{av}))

	lv := fn.LiveValues()
	assert.Empty(t, liveSlice(lv, lv.EbbLive[entry]))
	assert.Empty(t, liveSlice(lv, lv.EbbLive[other]))
}

func TestLivenessConstantsNeverLive(t *testing.T) {
	fn := NewFunction(testIdent("f", 0), DialectNormal)
	b := NewBuilder(fn)
	entry := b.InsertEbbEntry()
	b.PositionAtEnd(entry)
	c := b.CreateConstant(42)
	b.OpBuildStart(PrimOp{Name: "use"})
	w := b.OpBuildWrite()
	b.OpBuildRead(c)
	b.OpBuildEnd()
	b.OpReturnOk(w)

	lv := fn.LiveValues()
	assert.Empty(t, liveSlice(lv, lv.EbbLive[entry]))
}

func TestLivenessAcrossCall(t *testing.T) {
	// f(a):
	//   entry(a): ok, err = call g(a) [throw(err)]
	//             primop "pair" [a, ok] -> r
	//             return_ok r
	//   throw(e): return_throw e
	//
	// a must be live across the call (captured by its ok continuation
	// in the CPS transform), and ok must be live on the fall-through.
	fn := NewFunction(testIdent("f", 1), DialectNormal)
	b := NewBuilder(fn)

	entry := b.InsertEbbEntry()
	throw := b.InsertEbb()
	b.PositionAtEnd(throw)
	e := b.AddEbbArgument(throw)
	b.OpReturnThrow(e)

	b.PositionAtEnd(entry)
	av := b.AddEbbArgument(entry)
	name := b.CreateConstant("g")
	mod := b.CreateConstant("m")
	okv, _ := b.OpCall(name, mod, []ValueID{av}, func(_, err ValueID) EbbCallID {
		return b.CreateEbbCall(throw, []ValueID{err})
	})
	b.OpBuildStart(PrimOp{Name: "pair"})
	r := b.OpBuildWrite()
	b.OpBuildRead(av)
	b.OpBuildRead(okv)
	b.OpBuildEnd()
	b.OpReturnOk(r)

	lv := fn.LiveValues()
	call := fn.EbbFirstOp(entry)
	require.IsType(t, Call{}, fn.OpKind(call))

	assert.Equal(t, []ValueID{av, okv}, liveSlice(lv, lv.FlowLive[call]))
	assert.Equal(t, []ValueID{e}, liveSlice(lv, lv.EbbLive[throw]))
	assert.Equal(t, []ValueID{av}, liveSlice(lv, lv.EbbLive[entry]))
}
