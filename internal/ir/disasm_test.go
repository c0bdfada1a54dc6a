package ir_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/testutil"
)

// Golden files live in testdata/golden. Regenerate with:
//
//	go test ./internal/ir -run TestDisassemble -update
func TestDisassemble_Conditional(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "conditional", []byte(ir.Disassemble(testutil.ConditionalModule())))
}

func TestDisassemble_LoopWithReturns(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "loop_with_returns", []byte(ir.Disassemble(testutil.LoopWithReturnsModule())))
}
