// Package storage provides the built-in component storage strategies.
//
// Dense and Sparse deliberately disagree about what a slot is:
//
//   - Dense keys slots by entity index alone. The generation is metadata
//     stamped at insert time: inserting with a newer handle overwrites
//     whatever occupied the index, and Delete clears the index no matter
//     which generation wrote it. At most one value ever lives at an index.
//
//   - Sparse keys entries by the full handle, index and generation
//     together. Values written through different generations of the same
//     index coexist, and Delete only removes the entry whose generation
//     matches exactly.
//
// Pick Dense for components carried by most entities, where slot reuse and
// linear iteration pay off. Pick Sparse for rare components, where paying
// per-entry map overhead beats holding empty slots for the whole entity
// range. Code that must behave identically under both strategies should
// only rely on the common contract: access with a live handle whose
// component was inserted through that same handle.
//
// Shared is a third strategy for component values repeated across many
// entities. It follows Sparse's handle-exact rules but stores each
// distinct value once and reference-counts it; GetMut detaches the entity
// onto a private copy before returning a pointer, so mutation never leaks
// to other holders. Use it for archetype-style data such as base stats or
// material definitions.
package storage
