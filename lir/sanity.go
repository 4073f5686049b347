package lir

// An optional pass for sanity-checking invariants of the LIR graph.
// It verifies the structural guarantees the Builder promises after the
// fact, which is mainly useful for debugging the CPS transform and
// other graph rewrites.

import (
	"fmt"
	"io"
	"os"
)

type sanity struct {
	reporter io.Writer
	fn       *Function
	ebb      EbbID
	hasEbb   bool
	insane   bool
}

// SanityCheck performs integrity checking of fn's graph and returns
// true if it was valid. Diagnostics are written to reporter if
// non-nil, os.Stderr otherwise.
func SanityCheck(fn *Function, reporter io.Writer) bool {
	if reporter == nil {
		reporter = os.Stderr
	}
	return (&sanity{reporter: reporter, fn: fn}).checkFunction()
}

// MustSanityCheck is like SanityCheck but panics instead of returning
// a negative result.
func MustSanityCheck(fn *Function, reporter io.Writer) {
	if !SanityCheck(fn, reporter) {
		fn.WriteTo(os.Stderr)
		panic("SanityCheck failed")
	}
}

func (s *sanity) errorf(format string, args ...any) {
	s.insane = true
	fmt.Fprintf(s.reporter, "Error: function %s", s.fn.Ident())
	if s.hasEbb {
		fmt.Fprintf(s.reporter, ", ebb%d", int(s.ebb))
	}
	io.WriteString(s.reporter, ": ")
	fmt.Fprintf(s.reporter, format, args...)
	io.WriteString(s.reporter, "\n")
}

func (s *sanity) checkFunction() bool {
	if !s.fn.hasEntry {
		s.errorf("no entry EBB")
		return !s.insane
	}

	seenWrite := make(map[ValueID]OpID)
	for _, e := range s.fn.Ebbs() {
		s.ebb, s.hasEbb = e, true
		ops := s.fn.EbbOps(e)
		if len(ops) == 0 {
			s.errorf("empty EBB")
			continue
		}
		for i, op := range ops {
			s.checkOp(op, e, i, i == len(ops)-1, seenWrite)
		}
	}
	s.hasEbb = false
	return !s.insane
}

func (s *sanity) checkOp(op OpID, e EbbID, index int, last bool, seenWrite map[ValueID]OpID) {
	d := &s.fn.ops[op]
	if d.ebb != e {
		s.errorf("op%d has EBB backlink ebb%d", int(op), int(d.ebb))
	}
	if d.index != index {
		s.errorf("op%d has index %d, found at position %d", int(op), d.index, index)
	}
	if last != d.kind.Terminator() {
		if last {
			s.errorf("EBB does not end in a terminating op (got %s)", d.kind)
		} else {
			s.errorf("terminating op %s followed by another op", d.kind)
		}
	}
	for _, w := range d.writes {
		if prev, dup := seenWrite[w]; dup {
			s.errorf("value v%d written by both op%d and op%d", int(w), int(prev), int(op))
		}
		seenWrite[w] = op
		if int(w) >= len(s.fn.values) {
			s.errorf("write of unowned value v%d", int(w))
		} else if s.fn.values[w].isConst {
			s.errorf("write of constant value v%d", int(w))
		}
	}
	for _, r := range d.reads {
		if int(r) < 0 || int(r) >= len(s.fn.values) {
			s.errorf("read of unowned value v%d", int(r))
		}
	}
	for _, c := range d.branches {
		cd := &s.fn.ebbCalls[c]
		if cd.source != op {
			s.errorf("EBB-call %d has source op%d, attached to op%d", int(c), int(cd.source), int(op))
		}
		if int(cd.target) < 0 || int(cd.target) >= len(s.fn.ebbs) {
			s.errorf("EBB-call %d targets unowned ebb%d", int(c), int(cd.target))
			continue
		}
		if got, want := len(cd.args), len(s.fn.ebbs[cd.target].args); got != want {
			s.errorf("EBB-call %d passes %d args, target ebb%d declares %d", int(c), got, int(cd.target), want)
		}
	}
}

// WriteTo writes a human-readable dump of f's graph, one EBB at a
// time, in the shape the op-kind String methods render.
func (f *Function) WriteTo(w io.Writer) (int64, error) {
	var written int64
	printf := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		written += int64(n)
		return err
	}

	if err := printf("function %s (%v):\n", f.ident, f.dialect); err != nil {
		return written, err
	}
	for _, e := range f.Ebbs() {
		entry := ""
		if f.hasEntry && e == f.entry {
			entry = " entry"
		}
		if err := printf("ebb%d%s(%s):\n", int(e), entry, valueList(f.EbbArgs(e))); err != nil {
			return written, err
		}
		for _, op := range f.EbbOps(e) {
			line := fmt.Sprintf("  %s = %s %s", valueList(f.OpWrites(op)), f.OpKind(op), f.readList(op))
			for _, c := range f.OpBranches(op) {
				line += fmt.Sprintf(" [ebb%d(%s)]", int(f.EbbCallTarget(c)), valueList(f.EbbCallArgs(c)))
			}
			if err := printf("%s\n", line); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (d Dialect) String() string {
	if d == DialectCPS {
		return "cps"
	}
	return "normal"
}

func valueList(vals []ValueID) string {
	s := ""
	for i, v := range vals {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("v%d", int(v))
	}
	return s
}

func (f *Function) readList(op OpID) string {
	s := ""
	for i, v := range f.OpReads(op) {
		if i > 0 {
			s += ", "
		}
		if f.ValueIsConstant(v) {
			s += fmt.Sprintf("const(%v)", f.ValueConstant(v))
		} else {
			s += fmt.Sprintf("v%d", int(v))
		}
	}
	return s
}
