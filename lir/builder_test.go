package lir

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdent(name string, arity int) FunctionIdent {
	return FunctionIdent{Module: "m", Name: name, Arity: arity}
}

func TestBuilderOpShapes(t *testing.T) {
	fn := NewFunction(testIdent("f", 1), DialectNormal)
	b := NewBuilder(fn)

	entry := b.InsertEbbEntry()
	throw := b.InsertEbb()
	b.PositionAtEnd(throw)
	ev := b.AddEbbArgument(throw)
	b.OpReturnThrow(ev)

	b.PositionAtEnd(entry)
	a := b.AddEbbArgument(entry)
	name := b.CreateConstant("g")
	mod := b.CreateConstant("m")
	ok, err := b.OpCall(name, mod, []ValueID{a}, func(_, err ValueID) EbbCallID {
		return b.CreateEbbCall(throw, []ValueID{err})
	})
	b.OpReturnOk(ok)

	require.Equal(t, entry, fn.EbbEntry())
	require.Len(t, fn.EbbOps(entry), 2)

	call := fn.EbbFirstOp(entry)
	assert.Equal(t, Call{CallType: CallNormal, Arity: 1}, fn.OpKind(call))
	assert.Equal(t, []ValueID{name, mod, a}, fn.OpReads(call))
	assert.Equal(t, []ValueID{ok, err}, fn.OpWrites(call))
	require.Len(t, fn.OpBranches(call), 1)

	branch := fn.OpBranches(call)[0]
	assert.Equal(t, throw, fn.EbbCallTarget(branch))
	assert.Equal(t, []ValueID{err}, fn.EbbCallArgs(branch))
	assert.Equal(t, call, fn.EbbCallSource(branch))

	next, hasNext := fn.OpAfter(call)
	require.True(t, hasNext)
	assert.Equal(t, ReturnOk{}, fn.OpKind(next))
	prev, hasPrev := fn.OpBefore(next)
	require.True(t, hasPrev)
	assert.Equal(t, call, prev)

	assert.True(t, fn.ValueIsConstant(name))
	assert.Equal(t, "g", fn.ValueConstant(name))
	assert.False(t, fn.ValueIsConstant(a))

	var buf bytes.Buffer
	assert.True(t, SanityCheck(fn, &buf), "sanity: %s", buf.String())
}

func TestBuilderRejectsOpAfterTerminator(t *testing.T) {
	fn := NewFunction(testIdent("f", 0), DialectNormal)
	b := NewBuilder(fn)
	entry := b.InsertEbbEntry()
	b.PositionAtEnd(entry)
	v := b.CreateConstant(1)
	b.OpReturnOk(v)

	assert.PanicsWithError(t, "malformed op: op appended after a terminating op", func() {
		b.OpReturnOk(v)
	})
}

func TestBuilderWritesAreUnique(t *testing.T) {
	fn := NewFunction(testIdent("f", 0), DialectNormal)
	b := NewBuilder(fn)
	entry := b.InsertEbbEntry()
	b.PositionAtEnd(entry)

	seen := make(map[ValueID]bool)
	for i := 0; i < 4; i++ {
		b.OpBuildStart(PrimOp{Name: "p"})
		w := b.OpBuildWrite()
		b.OpBuildEnd()
		assert.False(t, seen[w], "write handle %d reused", int(w))
		seen[w] = true
	}
}

func TestSanityCatchesEmptyEbb(t *testing.T) {
	fn := NewFunction(testIdent("f", 0), DialectNormal)
	b := NewBuilder(fn)
	entry := b.InsertEbbEntry()
	b.PositionAtEnd(entry)
	b.OpReturnOk(b.CreateConstant(1))
	b.InsertEbb() // never filled

	var buf bytes.Buffer
	assert.False(t, SanityCheck(fn, &buf))
	assert.Contains(t, buf.String(), "empty EBB")
}

func TestSanityCatchesMissingEntry(t *testing.T) {
	fn := NewFunction(testIdent("f", 0), DialectNormal)
	var buf bytes.Buffer
	assert.False(t, SanityCheck(fn, &buf))
	assert.Contains(t, buf.String(), "no entry EBB")
}

func TestFunctionIdentCompare(t *testing.T) {
	plain := testIdent("f", 1)
	lambda0 := plain
	lambda0.Lambda = LambdaOf(0, 0)
	lambda1 := plain
	lambda1.Lambda = LambdaOf(1, 0)

	assert.Equal(t, 0, plain.Compare(plain))
	assert.Negative(t, plain.Compare(lambda0))
	assert.Negative(t, lambda0.Compare(lambda1))
	assert.Positive(t, lambda1.Compare(plain))
	assert.Negative(t, testIdent("f", 1).Compare(testIdent("f", 2)))
	assert.Negative(t, testIdent("a", 9).Compare(testIdent("b", 0)))

	assert.Equal(t, "m:f/1", plain.String())
	assert.Equal(t, "m:f/1@1.0", lambda1.String())
}

func TestModuleSortedIdents(t *testing.T) {
	m := NewModule("m")
	for _, name := range []string{"c", "a", "b"} {
		m.AddFunction(NewFunction(testIdent(name, 0), DialectNormal))
	}
	idents := m.SortedIdents()
	require.Len(t, idents, 3)
	assert.Equal(t, "a", idents[0].Name)
	assert.Equal(t, "b", idents[1].Name)
	assert.Equal(t, "c", idents[2].Name)
}
