// Package mir defines the block IR that lowered programs are expressed in.
//
// A lowered function is a flat table of numbered basic blocks. Each block
// holds straight-line statements and exactly one terminator that selects
// the next block or returns. Structured control flow (if/else, loops,
// short-circuit boolean operators, early return) has already been
// flattened into this form by the front-end; the vm package only walks it.
//
// # Components
//
//   - Types: declared shapes of locals and fields, used to derive static
//     default values and to name generic instantiations
//
//   - Nodes: Place (local plus field/index/deref projections), Operand
//     (copy, move, const), Rvalue, Stmt, Terminator, Block, Function,
//     Program
//
//   - FunctionBuilder: incremental construction of block tables
//
//   - CFG utilities: successors, predecessors, reachability, forwarding
//     block coalescing and validation
//
//   - Instantiator: the monomorphization cache. Generic structs and
//     functions exist only as concrete specializations named from the base
//     name and type arguments (Container + int -> Container__int)
//
//   - Disassemble: a textual listing of a function in bbN form
//
// # Copy Semantics
//
// Operands carry the copy point explicitly. A copy operand of an aggregate
// is deep-cloned by the runtime; a move operand hands over the storage and
// the source is dead afterwards. Address-taken locals are marked
// Addressable and live in an arena slot for their whole activation.
package mir
