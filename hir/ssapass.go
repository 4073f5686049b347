package hir

import (
	"github.com/hansihe/eirgo/diag"
	"github.com/hansihe/eirgo/ssaname"
)

// AssignSSA is the entry point for the HIR SSA pass: it walks root,
// assigning a fresh or resolved SSA name to every node. t must already
// hold any scopes the caller wants visible (see AssignSSATopLevel for
// the usual top-level seeding).
//
// Internal invariant violations (an unbound variable, a then_vars
// arity mismatch) are raised via panic: these can only fire on a bug
// in an upstream pass, never on well-formed input. Use diag.Recover at
// the call boundary to convert such a panic into a returned error.
func AssignSSA(t *Tracker, root *Expression) {
	assignExpression(t, root)
}

// AssignSSATopLevel seeds t with one Function-kind binding per name in
// funcNames, runs AssignSSA over root, and returns the SSA names
// assigned to each top-level function alias.
func AssignSSATopLevel(t *Tracker, funcNames []string, root *Expression) map[string]ssaname.Name {
	bindings := make(map[scopeKey]ssaname.Name, len(funcNames))
	names := make(map[string]ssaname.Name, len(funcNames))
	for _, name := range funcNames {
		ssa := t.NewSSA()
		bindings[functionKey(name)] = ssa
		names[name] = ssa
	}
	t.PushScope(bindings)
	AssignSSA(t, root)
	t.PopScope()
	return names
}

func assignExpression(t *Tracker, e *Expression) {
	for _, single := range e.Values {
		assignSingle(t, single)
	}
}

func assignSingle(t *Tracker, e SingleExpression) {
	switch n := e.(type) {

	case *VariableRef:
		ssa, ok := t.Get(variableKey(n.Var))
		if !ok {
			panic(&diag.UnboundVariable{Kind: "variable", Name: n.Var})
		}
		n.setResultSSA(ssa)

	case *InterModuleCall:
		assignSingle(t, n.Module)
		assignSingle(t, n.Name)
		for _, arg := range n.Args {
			assignSingle(t, arg)
		}
		n.setResultSSA(t.NewSSA())

	case *ApplyCall:
		for _, arg := range n.Args {
			assignSingle(t, arg)
		}
		assignSingle(t, n.Fun)
		n.setResultSSA(t.NewSSA())

	case *Let:
		assignExpression(t, n.Val)

		valSSA := n.Val.SSA()
		n.VarSSA = make([]ssaname.Name, len(n.Vars))
		bindings := make(map[scopeKey]ssaname.Name, len(n.Vars))
		for i, v := range n.Vars {
			n.VarSSA[i] = valSSA[i]
			bindings[variableKey(v)] = valSSA[i]
		}
		t.PushScope(bindings)
		assignSingle(t, n.Body)
		t.PopScope()
		n.setResultSSA(n.Body.resultSSA())

	case *Try:
		if len(n.ThenVars) != len(n.Body.Values) {
			panic(&diag.ArityMismatch{Context: "try then_vars", Expected: len(n.Body.Values), Got: len(n.ThenVars)})
		}
		assignExpression(t, n.Body)

		bodySSA := n.Body.SSA()
		n.ThenSSA = make([]ssaname.Name, len(n.ThenVars))
		thenBindings := make(map[scopeKey]ssaname.Name, len(n.ThenVars))
		for i, v := range n.ThenVars {
			n.ThenSSA[i] = bodySSA[i]
			thenBindings[variableKey(v)] = bodySSA[i]
		}
		t.PushScope(thenBindings)
		assignSingle(t, n.Then)
		t.PopScope()

		n.CatchSSA = make([]ssaname.Name, len(n.CatchVars))
		catchBindings := make(map[scopeKey]ssaname.Name, len(n.CatchVars))
		for i, v := range n.CatchVars {
			n.CatchSSA[i] = t.NewSSA()
			catchBindings[variableKey(v)] = n.CatchSSA[i]
		}
		t.PushScope(catchBindings)
		assignSingle(t, n.Catch)
		t.PopScope()

		n.setResultSSA(t.NewSSA())

	case *Case:
		assignExpression(t, n.Scrutinee)
		for _, v := range n.Values {
			assignSingle(t, v)
		}
		for _, clause := range n.Clauses {
			assignClause(t, clause)
		}
		n.setResultSSA(t.NewSSA())

	case *Receive:
		for _, v := range n.PatternValues {
			assignSingle(t, v)
		}
		for _, clause := range n.Clauses {
			assignClause(t, clause)
		}
		assignSingle(t, n.TimeoutTime)
		assignSingle(t, n.TimeoutBody)
		n.setResultSSA(t.NewSSA())

	case *Atomic:
		n.setResultSSA(t.NewSSA())

	case *NamedFunction:
		if ssa, ok := t.Get(functionKey(n.Name)); ok {
			n.IsLambda = true
			n.setResultSSA(ssa)
		} else {
			n.IsLambda = false
			n.setResultSSA(t.NewSSA())
		}

	case *ExternalNamedFunction:
		n.setResultSSA(t.NewSSA())

	case *Tuple:
		for _, v := range n.Elems {
			assignSingle(t, v)
		}
		n.setResultSSA(t.NewSSA())

	case *ListExpr:
		for _, v := range n.Head {
			assignSingle(t, v)
		}
		assignSingle(t, n.Tail)
		n.setResultSSA(t.NewSSA())

	case *MapExpr:
		for _, entry := range n.Entries {
			assignSingle(t, entry.Key)
			assignSingle(t, entry.Val)
		}
		if n.Merge != nil {
			assignSingle(t, n.Merge)
		}
		n.setResultSSA(t.NewSSA())

	case *BinarySeq:
		for _, seg := range n.Segments {
			assignSingle(t, seg.Value)
			for _, opt := range seg.Opts {
				assignSingle(t, opt)
			}
		}
		n.setResultSSA(t.NewSSA())

	case *PrimOp:
		for _, arg := range n.Args {
			assignSingle(t, arg)
		}
		n.setResultSSA(t.NewSSA())

	case *Sequence:
		assignExpression(t, n.First)
		assignSingle(t, n.Second)
		n.setResultSSA(n.Second.resultSSA())

	case *BindClosure:
		t.PushTracking()

		closure := n.Closure
		closure.ArgSSA = make([]ssaname.Name, len(closure.Args))
		argBindings := make(map[scopeKey]ssaname.Name, len(closure.Args))
		for i, arg := range closure.Args {
			closure.ArgSSA[i] = t.NewSSA()
			argBindings[variableKey(arg)] = closure.ArgSSA[i]
		}
		t.PushScope(argBindings)
		assignSingle(t, closure.Body)
		t.PopScope()

		captures := t.PopTracking()
		envIdx := t.AddLambdaEnv(LambdaEnv{Captures: captures})
		n.LambdaEnv = envIdx
		closure.EnvIdx = envIdx

		n.EnvSSA = t.NewSSA()
		n.setResultSSA(t.NewSSA())

	case *BindClosures:
		// The tracking frame opens before the alias scope is pushed:
		// that makes the alias scope's depth equal to (not less than)
		// the frame's base depth, so Tracker.Get's plain "i < baseDepth"
		// rule treats an alias lookup as inside the frame and a truly
		// outer lookup as outside. A closure referencing its own or a
		// sibling's alias in the same letrec group must never end up in
		// that group's capture list.
		t.PushTracking()

		aliasBindings := make(map[scopeKey]ssaname.Name, len(n.Closures))
		for _, c := range n.Closures {
			c.AliasSSA = t.NewSSA()
			aliasBindings[functionKey(c.Alias)] = c.AliasSSA
		}
		t.PushScope(aliasBindings)

		for _, c := range n.Closures {
			c.ArgSSA = make([]ssaname.Name, len(c.Args))
			argBindings := make(map[scopeKey]ssaname.Name, len(c.Args))
			for i, arg := range c.Args {
				c.ArgSSA[i] = t.NewSSA()
				argBindings[variableKey(arg)] = c.ArgSSA[i]
			}
			t.PushScope(argBindings)
			assignSingle(t, c.Body)
			t.PopScope()
		}
		captures := t.PopTracking()

		envIdx := t.AddLambdaEnv(LambdaEnv{Captures: captures})
		n.LambdaEnv = envIdx
		for _, c := range n.Closures {
			c.EnvIdx = envIdx
		}

		assignSingle(t, n.Body)
		t.PopScope()

		n.EnvSSA = t.NewSSA()
		n.setResultSSA(t.NewSSA())

	default:
		panic(&diag.MalformedOp{Reason: "unhandled HIR single-expression kind"})
	}
}

func assignClause(t *Tracker, clause *Clause) {
	bindings := make(map[scopeKey]ssaname.Name)
	for _, pattern := range clause.Patterns {
		for i := range pattern.Binds {
			ssa := t.NewSSA()
			pattern.Binds[i].SSA = ssa
			bindings[variableKey(pattern.Binds[i].Var)] = ssa
		}
	}
	t.PushScope(bindings)
	assignSingle(t, clause.Guard)
	assignSingle(t, clause.Body)
	t.PopScope()
}
