// Package core provides the low-level PDF object model and parsing
// primitives.
//
// # Object Types
//
// Every PDF value satisfies [Object]:
//
//   - [Null], [Bool], [Int], [Real]
//   - [String] holding the raw bytes of a literal or hex string
//   - [Name] without its leading slash
//   - [Array] and [Dict]
//   - [*Stream], a dictionary plus still-filtered bytes
//   - [ObjectRef], an indirect reference "num gen R"
//
// # Parsing
//
// [Lexer] tokenizes an in-memory buffer and [Parser] builds objects from
// it, including "num gen obj ... endobj" definitions with their stream
// bodies. Nesting depth is bounded by [Limits].
//
// # Cross-Reference Data
//
// [LoadXRef] follows startxref and the /Prev chain across classic tables,
// cross-reference streams and hybrid files. When the chain is unusable,
// [Repair] rebuilds the table by scanning for object headers.
//
// # Object Streams
//
// [ObjectStream] reads objects packed inside /Type /ObjStm streams.
//
// # Sources
//
// A [Source] supplies document bytes. [BytesSource] is a complete file;
// [GrowingSource] is filled progressively while a download runs.
package core
