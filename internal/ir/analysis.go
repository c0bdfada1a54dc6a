package ir

import "sort"

// analysisCache holds lazily recomputed derived analyses, each keyed on the
// module generation at which it was built. A structural mutation advances
// the generation; the next query rebuilds.
type analysisCache struct {
	defs    map[ID]defSite
	defsGen uint64

	cfgs   map[*Function]*CFG
	cfgGen uint64

	doms   map[*Function]*DomTree
	domGen uint64

	postdoms   map[*Function]*DomTree
	postdomGen uint64
}

// CFG is the derived control-flow graph of one function. Edges come from
// terminator operands; nothing here is stored in the module itself.
type CFG struct {
	preds map[ID][]ID
	succs map[ID][]ID
}

// BlockSuccessors returns the successor labels encoded in a block's
// terminator.
func BlockSuccessors(b *Block) []ID {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	switch term.Opcode {
	case OpBranch:
		return []ID{term.Operands[0]}
	case OpBranchConditional:
		return []ID{term.Operands[1], term.Operands[2]}
	}
	return nil
}

// CFGFor returns the cached control-flow graph for fn, rebuilding it if the
// module has mutated since it was last computed.
func (m *Module) CFGFor(fn *Function) *CFG {
	if m.cache.cfgs != nil && m.cache.cfgGen == m.gen {
		if c, ok := m.cache.cfgs[fn]; ok {
			return c
		}
	} else {
		m.cache.cfgs = make(map[*Function]*CFG)
		m.cache.cfgGen = m.gen
	}
	c := &CFG{preds: make(map[ID][]ID), succs: make(map[ID][]ID)}
	for _, b := range fn.Blocks {
		c.preds[b.Label] = c.preds[b.Label] // ensure presence
		for _, s := range BlockSuccessors(b) {
			c.succs[b.Label] = append(c.succs[b.Label], s)
			c.preds[s] = append(c.preds[s], b.Label)
		}
	}
	m.cache.cfgs[fn] = c
	return c
}

// Preds returns the predecessor labels of the block labelled id, with
// duplicate edges (e.g. both arms of a conditional) collapsed. The result is
// in ascending label order, so block layout cannot influence anything derived
// from it, phi operand order included.
func (m *Module) Preds(fn *Function, id ID) []ID {
	raw := m.CFGFor(fn).preds[id]
	var out []ID
	seen := make(map[ID]bool, len(raw))
	for _, p := range raw {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Succs returns the successor labels of the block labelled id.
func (m *Module) Succs(fn *Function, id ID) []ID {
	return m.CFGFor(fn).succs[id]
}

// DomTree answers dominance queries for one function. It is computed with
// the classic iterative data-flow formulation, which is plenty for the
// module sizes the fuzzer works on.
type DomTree struct {
	dom map[ID]map[ID]bool
}

// Dominates reports whether a dominates b (reflexively).
func (t *DomTree) Dominates(a, b ID) bool {
	s, ok := t.dom[b]
	return ok && s[a]
}

// StrictlyDominates reports whether a dominates b and a != b.
func (t *DomTree) StrictlyDominates(a, b ID) bool {
	return a != b && t.Dominates(a, b)
}

// virtualExit is the label of the synthetic exit node used for
// post-dominance. Zero is never a real id.
const virtualExit ID = 0

func computeDomSets(nodes []ID, entry ID, preds map[ID][]ID) *DomTree {
	dom := make(map[ID]map[ID]bool, len(nodes))
	all := make(map[ID]bool, len(nodes))
	for _, n := range nodes {
		all[n] = true
	}
	for _, n := range nodes {
		if n == entry {
			dom[n] = map[ID]bool{n: true}
			continue
		}
		full := make(map[ID]bool, len(nodes))
		for k := range all {
			full[k] = true
		}
		dom[n] = full
	}
	for changed := true; changed; {
		changed = false
		for _, n := range nodes {
			if n == entry {
				continue
			}
			var next map[ID]bool
			for _, p := range preds[n] {
				if !all[p] {
					continue
				}
				if next == nil {
					next = make(map[ID]bool, len(dom[p]))
					for k := range dom[p] {
						next[k] = true
					}
					continue
				}
				for k := range next {
					if !dom[p][k] {
						delete(next, k)
					}
				}
			}
			if next == nil {
				next = make(map[ID]bool)
			}
			next[n] = true
			if len(next) != len(dom[n]) {
				dom[n] = next
				changed = true
				continue
			}
			for k := range next {
				if !dom[n][k] {
					dom[n] = next
					changed = true
					break
				}
			}
		}
	}
	return &DomTree{dom: dom}
}

// Dominators returns the cached dominator tree for fn.
func (m *Module) Dominators(fn *Function) *DomTree {
	if m.cache.doms != nil && m.cache.domGen == m.gen {
		if t, ok := m.cache.doms[fn]; ok {
			return t
		}
	} else {
		m.cache.doms = make(map[*Function]*DomTree)
		m.cache.domGen = m.gen
	}
	cfg := m.CFGFor(fn)
	nodes := make([]ID, 0, len(fn.Blocks))
	for _, b := range fn.Blocks {
		nodes = append(nodes, b.Label)
	}
	t := computeDomSets(nodes, fn.Entry().Label, cfg.preds)
	m.cache.doms[fn] = t
	return t
}

// PostDominators returns the cached post-dominator tree for fn. A synthetic
// exit node joins every block without successors, so functions with several
// returns still have a single sink.
func (m *Module) PostDominators(fn *Function) *DomTree {
	if m.cache.postdoms != nil && m.cache.postdomGen == m.gen {
		if t, ok := m.cache.postdoms[fn]; ok {
			return t
		}
	} else {
		m.cache.postdoms = make(map[*Function]*DomTree)
		m.cache.postdomGen = m.gen
	}
	cfg := m.CFGFor(fn)
	nodes := []ID{virtualExit}
	// In the reversed graph the predecessors of a block are its original
	// successors; exit blocks additionally gain the synthetic exit as a
	// predecessor.
	reversed := make(map[ID][]ID)
	for _, b := range fn.Blocks {
		nodes = append(nodes, b.Label)
		succs := cfg.succs[b.Label]
		reversed[b.Label] = append(reversed[b.Label], succs...)
		if len(succs) == 0 {
			reversed[b.Label] = append(reversed[b.Label], virtualExit)
		}
	}
	t := computeDomSets(nodes, virtualExit, reversed)
	m.cache.postdoms[fn] = t
	return t
}

// PostDominates reports whether a post-dominates b within fn.
func (m *Module) PostDominates(fn *Function, a, b ID) bool {
	return m.PostDominators(fn).Dominates(a, b)
}
