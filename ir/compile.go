package ir

import (
	"github.com/tundra-lang/tundra/ws"
)

// ---------------------------------------------------------------------------
// Compilation entry point
// ---------------------------------------------------------------------------

// CompileOptions configures a compilation.
type CompileOptions struct {
	// Optimize enables the pass pipeline. Without it the program is the
	// direct SSA form of the source.
	Optimize bool
}

// Compile builds the SSA-form program for a decoded instruction stream:
// CFG construction, stackification, call-stack modeling, and (optionally)
// the optimizer pipeline.
//
// Errors are *MalformedError values; on error no partial program is
// returned.
func Compile(insts []ws.Inst, opts CompileOptions) (*Program, error) {
	p, err := buildCFG(insts)
	if err != nil {
		return nil, err
	}
	if err := stackify(p); err != nil {
		return nil, err
	}
	log.Debugf("compile: %d instructions, %d blocks, %d values", len(insts), len(p.Blocks), len(p.Values))
	if opts.Optimize {
		Optimize(p)
	}
	return p, nil
}
