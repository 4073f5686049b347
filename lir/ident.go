// Package lir implements the lower IR: a function is a directed graph
// of extended basic blocks (EBBs) containing ops, with data flow
// expressed through block arguments acting as explicit phi nodes. All
// graph objects are owned by their Function and addressed by dense
// handles. The package also provides the live-values analysis the CPS
// transform builds its closure environments from.
package lir

import (
	"fmt"
	"strings"
)

// FunctionIdent identifies a function within a module: module name,
// function name, arity, and an optional lambda reference for closures
// and continuations. It is comparable and usable as a map key.
type FunctionIdent struct {
	Module string
	Name   string
	Arity  int
	Lambda LambdaRef
}

// LambdaRef optionally designates a function as the SubIdx'th lambda of
// the lambda env EnvIdx. Continuations produced by the CPS transform
// always use SubIdx 0.
type LambdaRef struct {
	Valid  bool
	EnvIdx EnvID
	SubIdx int
}

// NoLambda is the LambdaRef of a plain, non-closure function.
func NoLambda() LambdaRef { return LambdaRef{} }

// LambdaOf returns the LambdaRef designating lambda sub of env.
func LambdaOf(env EnvID, sub int) LambdaRef {
	return LambdaRef{Valid: true, EnvIdx: env, SubIdx: sub}
}

func (i FunctionIdent) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%s/%d", i.Module, i.Name, i.Arity)
	if i.Lambda.Valid {
		fmt.Fprintf(&sb, "@%d.%d", int(i.Lambda.EnvIdx), i.Lambda.SubIdx)
	}
	return sb.String()
}

// Compare orders idents totally: by module, name, arity, then lambda
// (absent before present, then by env index and sub index). The CPS
// driver iterates a module's functions in this order so that env-index
// allocation is deterministic.
func (i FunctionIdent) Compare(o FunctionIdent) int {
	if c := strings.Compare(i.Module, o.Module); c != 0 {
		return c
	}
	if c := strings.Compare(i.Name, o.Name); c != 0 {
		return c
	}
	if c := i.Arity - o.Arity; c != 0 {
		return c
	}
	return i.Lambda.compare(o.Lambda)
}

func (l LambdaRef) compare(o LambdaRef) int {
	switch {
	case !l.Valid && !o.Valid:
		return 0
	case !l.Valid:
		return -1
	case !o.Valid:
		return 1
	}
	if c := int(l.EnvIdx) - int(o.EnvIdx); c != 0 {
		return c
	}
	return l.SubIdx - o.SubIdx
}
