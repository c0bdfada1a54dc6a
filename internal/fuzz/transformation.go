// Package fuzz implements the transformation engine of the mutation-based
// fuzzer: precondition-checked, atomic, replayable edits to an IR module,
// the randomized passes that propose them, and the replay log they compose
// into.
package fuzz

import (
	"github.com/stefanomil/SPIRV-Tools/internal/fuzz/fact"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// Context carries the mutable collaborators a transformation may consult:
// the fact store and the shared overflow id source for incidental fresh-id
// needs discovered during mutation.
type Context struct {
	Facts    *fact.Manager
	Overflow OverflowIDSource
}

// Transformation is one self-contained edit recipe. Implementations hold
// only ids and descriptors, are constructed fresh per attempt and applied at
// most once.
//
// IsApplicable is pure and repeatable: it never mutates, so passes can probe
// many speculative candidates cheaply. Apply is valid only immediately after
// a true IsApplicable on the same module and fact state; it does not
// re-validate, and calling it otherwise is undefined. ToMessage returns the
// flat, id-only record from which the transformation can be losslessly
// reconstructed.
type Transformation interface {
	IsApplicable(m *ir.Module, ctx *Context) bool
	Apply(m *ir.Module, ctx *Context)
	ToMessage() Message
}

// OverflowIDSource supplies pre-verified-fresh ids for needs a transformation
// discovers only while mutating.
type OverflowIDSource interface {
	HasOverflowIDs() bool
	NextOverflowID() ir.ID
}

// ModuleOverflowSource mints overflow ids straight off the module id bound.
// Because the bound evolves identically during fuzzing and replay, the ids
// drawn here are reproducible.
type ModuleOverflowSource struct {
	Module *ir.Module
}

func (s *ModuleOverflowSource) HasOverflowIDs() bool  { return true }
func (s *ModuleOverflowSource) NextOverflowID() ir.ID { return s.Module.FreshID() }

// FixedOverflowPool serves ids from a pre-reserved list and runs dry when
// they are exhausted.
type FixedOverflowPool struct {
	ids  []ir.ID
	next int
}

// NewFixedOverflowPool returns a pool over the given ids.
func NewFixedOverflowPool(ids []ir.ID) *FixedOverflowPool {
	return &FixedOverflowPool{ids: ids}
}

func (p *FixedOverflowPool) HasOverflowIDs() bool { return p.next < len(p.ids) }

func (p *FixedOverflowPool) NextOverflowID() ir.ID {
	if p.next >= len(p.ids) {
		panic("fuzz: overflow id pool exhausted")
	}
	id := p.ids[p.next]
	p.next++
	return id
}

// checkIDIsFreshAndUnused reports whether id is non-zero, undefined in the
// module and not yet claimed by the same transformation instance, recording
// it in used on success. Every fresh-id argument of every variant goes
// through here at IsApplicable time.
func checkIDIsFreshAndUnused(m *ir.Module, id ir.ID, used map[ir.ID]bool) bool {
	if !m.IsFresh(id) {
		return false
	}
	if used[id] {
		return false
	}
	used[id] = true
	return true
}
