// Package ir implements the structured, SSA-like intermediate representation
// the fuzzer mutates: modules of functions of basic blocks of instructions,
// with dense integer ids and structured control flow expressed through merge
// markers on header blocks.
//
// The package also provides the derived analyses transformations consume -
// def-use lookup, control-flow edges, dominance and post-dominance, and
// structured-region classification. Analyses are cached against a module
// generation counter: every in-place edit primitive advances the generation,
// and the next query recomputes lazily. Callers never see a stale analysis
// across a mutation.
//
// Upward references (block to function to module) are never stored as
// pointers; blocks and functions are addressed by their integer ids, with
// the module acting as the arena.
package ir
