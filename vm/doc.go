// Package vm executes lowered programs.
//
// This package contains:
//   - the tagged Value representation and the Box slot arena
//   - Clone and DeepEqual, which restore value semantics on a host with
//     reference semantics
//   - Slice and StrSlice, the two slicing rules
//   - Format and FormatString, the format-specifier mini-language
//   - MethodTable and CallMethod for interface dispatch
//   - Machine, the basic-block dispatcher
package vm
