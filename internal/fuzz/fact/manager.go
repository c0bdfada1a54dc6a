// Package fact tracks derived semantic knowledge about a module that is not
// recoverable from the IR alone: value irrelevance, pointee irrelevance,
// id synonymy and dead blocks. Facts are asserted once, trusted thereafter
// and never retracted; transformations use them to justify edits.
package fact

import (
	"fmt"
	"sort"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// ContractViolation is the panic value raised when a fact is asserted about
// an id that does not satisfy the fact's preconditions. This signals a bug
// in the caller or a corrupt replay record, not a recoverable condition.
type ContractViolation struct {
	Msg string
}

func (c *ContractViolation) Error() string {
	return "fact contract violation: " + c.Msg
}

func violate(format string, args ...any) {
	panic(&ContractViolation{Msg: fmt.Sprintf(format, args...)})
}

// Manager is the authoritative fact store for one fuzzing run. It is
// exclusively owned by the driving process; no synchronization.
type Manager struct {
	irrelevantIDs      map[ir.ID]bool
	irrelevantPointees map[ir.ID]bool
	synonyms           map[ir.ID]map[ir.ID]bool // id -> its class (shared map)
	deadBlocks         map[ir.ID]bool
}

// NewManager returns an empty fact store.
func NewManager() *Manager {
	return &Manager{
		irrelevantIDs:      make(map[ir.ID]bool),
		irrelevantPointees: make(map[ir.ID]bool),
		synonyms:           make(map[ir.ID]map[ir.ID]bool),
		deadBlocks:         make(map[ir.ID]bool),
	}
}

// AddFactIDIsIrrelevant records that the concrete value of id is a
// don't-care. id must be defined, must not be pointer-typed and must not
// already participate in a synonym class; irrelevance and exact-value
// equivalence are mutually exclusive.
func (f *Manager) AddFactIDIsIrrelevant(m *ir.Module, id ir.ID) {
	def := m.DefInstruction(id)
	if def == nil {
		violate("id %%%d is not defined in the module", id)
	}
	if m.TypeIsPointer(def.Type) {
		violate("id %%%d is pointer-typed; only pointees of pointers can be irrelevant", id)
	}
	if len(f.synonyms[id]) > 0 {
		violate("id %%%d participates in a synonym class", id)
	}
	f.irrelevantIDs[id] = true
}

// AddFactPointeeIsIrrelevant records that the value pointed to by id is a
// don't-care. id must be defined, pointer-typed and absent from any synonym
// class.
func (f *Manager) AddFactPointeeIsIrrelevant(m *ir.Module, id ir.ID) {
	def := m.DefInstruction(id)
	if def == nil {
		violate("id %%%d is not defined in the module", id)
	}
	if !m.TypeIsPointer(def.Type) {
		violate("id %%%d is not pointer-typed", id)
	}
	if len(f.synonyms[id]) > 0 {
		violate("id %%%d participates in a synonym class", id)
	}
	f.irrelevantPointees[id] = true
}

// AddFactIDSynonym records that a and b always hold equal runtime values.
// Both must be defined, and neither may be marked irrelevant: a synonym for
// an explicitly meaningless value would be meaningless itself.
func (f *Manager) AddFactIDSynonym(m *ir.Module, a, b ir.ID) {
	for _, id := range []ir.ID{a, b} {
		if m.DefInstruction(id) == nil {
			violate("id %%%d is not defined in the module", id)
		}
		if f.irrelevantIDs[id] || f.irrelevantPointees[id] {
			violate("id %%%d is marked irrelevant and cannot gain synonyms", id)
		}
	}
	ca := f.classFor(a)
	cb := f.classFor(b)
	if sameClass(ca, cb) {
		return
	}
	// Merge the smaller class into the larger one.
	if len(ca) < len(cb) {
		ca, cb = cb, ca
	}
	for id := range cb {
		ca[id] = true
		f.synonyms[id] = ca
	}
}

func (f *Manager) classFor(id ir.ID) map[ir.ID]bool {
	if c, ok := f.synonyms[id]; ok {
		return c
	}
	c := map[ir.ID]bool{id: true}
	f.synonyms[id] = c
	return c
}

func sameClass(a, b map[ir.ID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

// AddFactBlockIsDead records that the block labelled id never executes.
func (f *Manager) AddFactBlockIsDead(id ir.ID) {
	f.deadBlocks[id] = true
}

// IDIsIrrelevant reports whether id carries an id-irrelevance fact.
func (f *Manager) IDIsIrrelevant(id ir.ID) bool {
	return f.irrelevantIDs[id]
}

// PointeeValueIsIrrelevant reports whether id carries a pointee-irrelevance
// fact.
func (f *Manager) PointeeValueIsIrrelevant(id ir.ID) bool {
	return f.irrelevantPointees[id]
}

// IrrelevantIDs enumerates all ids with an id-irrelevance fact, ascending.
func (f *Manager) IrrelevantIDs() []ir.ID {
	ids := make([]ir.ID, 0, len(f.irrelevantIDs))
	for id := range f.irrelevantIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Synonymous reports whether a and b are recorded as always equal. Every id
// is trivially synonymous with itself.
func (f *Manager) Synonymous(a, b ir.ID) bool {
	if a == b {
		return true
	}
	c, ok := f.synonyms[a]
	return ok && c[b]
}

// SynonymsFor returns the other members of id's synonym class, ascending.
func (f *Manager) SynonymsFor(id ir.ID) []ir.ID {
	c, ok := f.synonyms[id]
	if !ok {
		return nil
	}
	out := make([]ir.ID, 0, len(c)-1)
	for other := range c {
		if other != id {
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BlockIsDead reports whether the block labelled id is asserted dead.
func (f *Manager) BlockIsDead(id ir.ID) bool {
	return f.deadBlocks[id]
}
