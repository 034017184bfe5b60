// Package contentstream tokenizes PDF content streams into operations.
//
// A content stream is a sequence of operands followed by an operator:
//
//	ops, err := contentstream.NewParser(streamData).Parse()
//	for _, op := range ops {
//	    fmt.Printf("%s %v\n", op.Operator, op.Operands)
//	}
//
// Parsing never stops at the first problem. Malformed tokens, unbalanced
// strings and operands left without an operator are recorded as
// *ParseError values wrapping ErrSyntax, and the operations read around
// them are still returned. The interpreter turns these into page warnings.
//
// # Inline images
//
// A BI operator is followed by the image dictionary, ID and the raw image
// bytes up to EI. The parser consumes the whole sequence and returns a
// single operation with Operator "BI" and Image set. Abbreviated keys and
// names (/W, /CS /G, /F /Fl) are expanded to their full forms. The data
// length is computed from the dictionary when the image is unfiltered,
// otherwise the data ends at the first EI surrounded by white space.
//
// # Operand Types
//
// Operands are core objects:
//   - Numbers (core.Int, core.Real)
//   - Strings (core.String)
//   - Names (core.Name)
//   - Arrays (core.Array)
//   - Dictionaries (core.Dict)
//   - core.Bool and core.Null for true, false and null
package contentstream
