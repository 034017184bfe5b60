// Package model holds the geometry shared by the decoding packages.
//
// Coordinates follow PDF conventions: the origin is at the lower left and
// y grows upwards. A [Matrix] is the six-number form [a b c d e f] used by
// the cm and Tm operators, and points are row vectors, so
//
//	p' = p × M = (a·x + c·y + e, b·x + d·y + f)
//
// [Matrix.Multiply] composes in the same order as the content-stream
// operators: m.Multiply(n) applies m first and then n.
package model
