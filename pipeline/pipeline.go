// Package pipeline composes the compiler core's passes behind the
// configuration surface a driver binary loads: scope lowering over the
// HIR, then the CPS rewrite over the LIR, with optional sanity
// checking and dumps between them. The driver itself (CLI parsing,
// file IO) lives outside this module.
package pipeline

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hansihe/eirgo/cps"
	"github.com/hansihe/eirgo/diag"
	"github.com/hansihe/eirgo/hir"
	"github.com/hansihe/eirgo/lir"
	"github.com/hansihe/eirgo/ssaname"
)

// Options carries the knobs shared by every pass entry point.
type Options struct {
	Config diag.PipelineConfig
	Logger *diag.Logger
	Dump   io.Writer // destination for Dump* output; nil discards
}

func (o *Options) logger() *diag.Logger {
	if o.Logger == nil {
		return diag.NewLogger(io.Discard)
	}
	return o.Logger
}

func (o *Options) dump() io.Writer {
	if o.Dump == nil {
		return io.Discard
	}
	return o.Dump
}

// LowerHIR runs the scope-lowering pass over root with top-level
// function aliases seeded from funcNames, converting internal
// invariant panics into a returned error. It returns the SSA name
// assigned to each top-level function alias.
func LowerHIR(tr *hir.Tracker, funcNames []string, root *hir.Expression, opts Options) (names map[string]ssaname.Name, err error) {
	defer diag.Recover(&err)
	names = hir.AssignSSATopLevel(tr, funcNames, root)

	log := opts.logger()
	log.Logf("hir", "assigned ssa names funcs=%d envs=%d", len(names), len(tr.LambdaEnvs()))

	if opts.Config.DumpHIR {
		w := opts.dump()
		for i, env := range tr.LambdaEnvs() {
			fmt.Fprintf(w, "lambda_env %d:\n", i)
			for _, c := range env.Captures {
				fmt.Fprintf(w, "  %d: %s = %s\n", c.Index, c.Name, c.Outer)
			}
		}
	}
	return names, nil
}

// TransformCPS sanity-checks m (when configured), rewrites it into
// continuation-passing style, and sanity-checks the result. Internal
// invariant panics surface as a returned error; the input module is
// never modified.
func TransformCPS(m *lir.Module, opts Options) (out *lir.Module, err error) {
	log := opts.logger()

	if opts.Config.RunSanityCheck {
		if err := sanityCheckModule(m); err != nil {
			return nil, err
		}
	}
	if opts.Config.DumpLIR {
		dumpModule(m, opts.dump())
	}

	defer diag.Recover(&err)
	out = cps.TransformModule(m)

	log.Logf("cps", "transformed module=%s funcs=%d chunks=%d envs=%d",
		m.Name, len(m.Functions), len(out.Functions), out.Envs.Len())

	if opts.Config.DumpCPS {
		dumpModule(out, opts.dump())
	}
	if opts.Config.RunSanityCheck {
		if err := sanityCheckModule(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func sanityCheckModule(m *lir.Module) error {
	for _, id := range m.SortedIdents() {
		var buf bytes.Buffer
		if !lir.SanityCheck(m.Functions[id], &buf) {
			return fmt.Errorf("sanity check failed for %s: %s", id, buf.String())
		}
	}
	return nil
}

func dumpModule(m *lir.Module, w io.Writer) {
	for _, id := range m.SortedIdents() {
		m.Functions[id].WriteTo(w)
	}
}
