package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansihe/eirgo/diag"
	"github.com/hansihe/eirgo/hir"
	"github.com/hansihe/eirgo/lir"
	"github.com/hansihe/eirgo/ssaname"
)

func TestLowerHIRAssignsAndDumps(t *testing.T) {
	tr := hir.NewTracker(ssaname.NewGenerator())

	// fun() -> x, under a let binding x, so the dump has one env with
	// one capture.
	xRef := &hir.VariableRef{Var: "x"}
	bind := &hir.BindClosure{Closure: &hir.Closure{Body: xRef}}
	root := &hir.Expression{Values: []hir.SingleExpression{
		&hir.Let{
			Val:  &hir.Expression{Values: []hir.SingleExpression{&hir.Atomic{Literal: 1}}},
			Vars: []string{"x"},
			Body: bind,
		},
	}}

	var dump bytes.Buffer
	cfg := diag.DefaultPipelineConfig()
	cfg.DumpHIR = true
	names, err := LowerHIR(tr, []string{"main"}, root, Options{Config: cfg, Dump: &dump})
	require.NoError(t, err)

	assert.Contains(t, names, "main")
	assert.Contains(t, dump.String(), "lambda_env 0:")
	assert.Contains(t, dump.String(), "x")
	require.Len(t, tr.LambdaEnvs(), 1)
}

func TestLowerHIRSurfacesUnbound(t *testing.T) {
	tr := hir.NewTracker(ssaname.NewGenerator())
	root := &hir.Expression{Values: []hir.SingleExpression{&hir.VariableRef{Var: "nope"}}}

	_, err := LowerHIR(tr, nil, root, Options{})
	var ub *diag.UnboundVariable
	require.ErrorAs(t, err, &ub)
}

func TestTransformCPSChecksAndDumps(t *testing.T) {
	src := lir.NewModule("m")
	fn := lir.NewFunction(lir.FunctionIdent{Module: "m", Name: "f", Arity: 1}, lir.DialectNormal)
	b := lir.NewBuilder(fn)
	entry := b.InsertEbbEntry()
	throw := b.InsertEbb()
	b.PositionAtEnd(throw)
	e := b.AddEbbArgument(throw)
	b.OpReturnThrow(e)
	b.PositionAtEnd(entry)
	a := b.AddEbbArgument(entry)
	ok, _ := b.OpCall(b.CreateConstant("g"), b.CreateConstant("m"), []lir.ValueID{a},
		func(_, err lir.ValueID) lir.EbbCallID {
			return b.CreateEbbCall(throw, []lir.ValueID{err})
		})
	b.OpReturnOk(ok)
	src.AddFunction(fn)

	var dump, logs bytes.Buffer
	cfg := diag.DefaultPipelineConfig()
	cfg.DumpCPS = true
	out, err := TransformCPS(src, Options{
		Config: cfg,
		Logger: diag.NewLogger(&logs),
		Dump:   &dump,
	})
	require.NoError(t, err)
	require.Len(t, out.Functions, 3)

	assert.Contains(t, logs.String(), "component=cps")
	assert.Contains(t, logs.String(), "chunks=3")
	assert.Contains(t, dump.String(), "cont_apply")
	assert.Contains(t, dump.String(), "bind_closure")
}

func TestTransformCPSRejectsBrokenInput(t *testing.T) {
	src := lir.NewModule("m")
	fn := lir.NewFunction(lir.FunctionIdent{Module: "m", Name: "f", Arity: 0}, lir.DialectNormal)
	b := lir.NewBuilder(fn)
	entry := b.InsertEbbEntry()
	b.PositionAtEnd(entry)
	b.OpReturnOk(b.CreateConstant(1))
	b.InsertEbb() // empty EBB: structurally invalid
	src.AddFunction(fn)

	_, err := TransformCPS(src, Options{Config: diag.DefaultPipelineConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sanity check failed")
}
