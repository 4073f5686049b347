// Package hir implements the high-level IR data model, the scope
// tracker, and the SSA pass that resolves every variable reference to
// the name of its innermost enclosing binding while collecting closure
// capture sets.
package hir

import "github.com/hansihe/eirgo/ssaname"

// Kind distinguishes the two binding namespaces a scope can hold:
// value variables and function names. They never collide, so a Let and
// a BindClosures alias for the same source spelling resolve independently.
type Kind int

const (
	KindVariable Kind = iota
	KindFunction
)

// scopeKey is the lookup key: a binding's namespace plus its surface name.
type scopeKey struct {
	kind Kind
	name string
}

// Capture records one free variable resolved through a tracking frame:
// its source name, the SSA name of the outer binding it resolved to, and
// the dense index it was assigned in first-encounter order.
type Capture struct {
	Name  string
	Outer ssaname.Name
	Index int
}

// LambdaEnv is a module-level capture-list record, installed on a
// closure by the SSA pass and referenced by dense index.
type LambdaEnv struct {
	Captures  []Capture
	MetaBinds []string // reserved; never populated
}

type scope map[scopeKey]ssaname.Name

// trackingFrame accumulates the capture set for one closure body. Only
// the innermost (top of stack) frame ever records a capture; an inner
// frame's captures are not propagated to the outer frame.
type trackingFrame struct {
	baseDepth int // len(scopes) at the time this frame was pushed
	order     []scopeKey
	byKey     map[scopeKey]Capture
}

// Tracker is the scope tracker: a stack of scopes plus a stack of
// tracking frames, backed by an ssaname.Generator for fresh names and an
// append-only table of LambdaEnv records.
type Tracker struct {
	gen      *ssaname.Generator
	scopes   []scope
	tracking []*trackingFrame
	envs     []LambdaEnv
}

// NewTracker returns a Tracker with no scopes pushed, using gen to mint
// fresh SSA names.
func NewTracker(gen *ssaname.Generator) *Tracker {
	return &Tracker{gen: gen}
}

// PushScope pushes a frame of bindings. Keys not present in bindings are
// simply not visible in this frame; lookup falls through to outer scopes.
func (t *Tracker) PushScope(bindings map[scopeKey]ssaname.Name) {
	s := make(scope, len(bindings))
	for k, v := range bindings {
		s[k] = v
	}
	t.scopes = append(t.scopes, s)
}

// PopScope pops the innermost scope. Popping an empty stack is a
// programmer error and panics.
func (t *Tracker) PopScope() {
	if len(t.scopes) == 0 {
		panic("hir: PopScope on empty scope stack")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Get resolves key innermost-first. If a tracking frame is active and
// the binding was defined in a scope pushed before that frame started,
// the lookup is registered as a capture (first occurrence wins the
// index); the resolved SSA name is returned either way. The second
// return value is false if no enclosing scope binds key.
func (t *Tracker) Get(key scopeKey) (ssaname.Name, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		ssa, ok := t.scopes[i][key]
		if !ok {
			continue
		}
		if len(t.tracking) > 0 {
			frame := t.tracking[len(t.tracking)-1]
			if i < frame.baseDepth {
				t.registerCapture(frame, key, ssa)
			}
		}
		return ssa, true
	}
	return 0, false
}

func (t *Tracker) registerCapture(frame *trackingFrame, key scopeKey, outer ssaname.Name) {
	if frame.byKey == nil {
		frame.byKey = make(map[scopeKey]Capture)
	}
	if _, ok := frame.byKey[key]; ok {
		return // first occurrence wins the index
	}
	frame.byKey[key] = Capture{Name: key.name, Outer: outer, Index: len(frame.order)}
	frame.order = append(frame.order, key)
}

// NewSSA delegates to the generator (component A).
func (t *Tracker) NewSSA() ssaname.Name {
	return t.gen.New()
}

// PushTracking opens a new tracking frame over the current scope depth.
func (t *Tracker) PushTracking() {
	t.tracking = append(t.tracking, &trackingFrame{baseDepth: len(t.scopes)})
}

// PopTracking closes the innermost tracking frame and returns its
// captures in first-encounter order.
func (t *Tracker) PopTracking() []Capture {
	if len(t.tracking) == 0 {
		panic("hir: PopTracking on empty tracking stack")
	}
	frame := t.tracking[len(t.tracking)-1]
	t.tracking = t.tracking[:len(t.tracking)-1]

	out := make([]Capture, len(frame.order))
	for i, key := range frame.order {
		out[i] = frame.byKey[key]
	}
	return out
}

// AddLambdaEnv appends rec to the module's lambda-env table and returns
// its dense index.
func (t *Tracker) AddLambdaEnv(rec LambdaEnv) int {
	t.envs = append(t.envs, rec)
	return len(t.envs) - 1
}

// LambdaEnvs returns the accumulated lambda-env table, in index order.
func (t *Tracker) LambdaEnvs() []LambdaEnv {
	return t.envs
}

func variableKey(name string) scopeKey { return scopeKey{kind: KindVariable, name: name} }
func functionKey(name string) scopeKey { return scopeKey{kind: KindFunction, name: name} }
