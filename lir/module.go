package lir

import "sort"

// EnvID is a dense index into a module's lambda-env table.
type EnvID int

// ModuleEnvs is the module-level lambda-env table the CPS transform
// extends: one record per env, carrying the number of values captured
// in it. The HIR-side capture lists (hir.LambdaEnv) feed the indices
// this table is seeded with; the transform only needs the counts.
type ModuleEnvs struct {
	capturesNum []int
}

// NewModuleEnvs returns an empty env table.
func NewModuleEnvs() *ModuleEnvs { return &ModuleEnvs{} }

// Add appends a fresh env record and returns its index.
func (e *ModuleEnvs) Add() EnvID {
	e.capturesNum = append(e.capturesNum, 0)
	return EnvID(len(e.capturesNum) - 1)
}

// SetCapturesNum records how many values env captures.
func (e *ModuleEnvs) SetCapturesNum(env EnvID, n int) {
	e.capturesNum[env] = n
}

// CapturesNum returns how many values env captures.
func (e *ModuleEnvs) CapturesNum(env EnvID) int { return e.capturesNum[env] }

// Len returns the number of env records.
func (e *ModuleEnvs) Len() int { return len(e.capturesNum) }

// Clone returns an independent copy of e. The CPS transform clones the
// source module's table so the source is never mutated.
func (e *ModuleEnvs) Clone() *ModuleEnvs {
	out := make([]int, len(e.capturesNum))
	copy(out, e.capturesNum)
	return &ModuleEnvs{capturesNum: out}
}

// Module is a compilation unit: a name, its functions keyed by ident,
// and the lambda-env table.
type Module struct {
	Name      string
	Functions map[FunctionIdent]*Function
	Envs      *ModuleEnvs
}

// NewModule returns an empty module with the given name.
func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		Functions: make(map[FunctionIdent]*Function),
		Envs:      NewModuleEnvs(),
	}
}

// AddFunction installs fun under its own ident.
func (m *Module) AddFunction(fun *Function) {
	m.Functions[fun.Ident()] = fun
}

// SortedIdents returns the idents of m's functions in Compare order,
// so callers never depend on map iteration order.
func (m *Module) SortedIdents() []FunctionIdent {
	idents := make([]FunctionIdent, 0, len(m.Functions))
	for ident := range m.Functions {
		idents = append(idents, ident)
	}
	sort.Slice(idents, func(i, j int) bool {
		return idents[i].Compare(idents[j]) < 0
	})
	return idents
}
