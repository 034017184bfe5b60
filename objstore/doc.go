// Package objstore resolves and caches the indirect objects of a PDF.
//
// A [Store] sits over a [core.Source] and a cross-reference table:
//
//	store := objstore.New(src, xref, objstore.WithCacheBudget(2048))
//	obj, err := store.Resolve(ctx, 12, 0)
//
// Parsed objects live in an LRU bounded by entry count; decoded stream
// data lives in a second LRU bounded by bytes. The first resolution of any
// object is single-flight, so concurrent callers parse it once. Objects
// packed in object streams and objects of encrypted documents (once a
// [Decrypter] is installed) are handled transparently.
//
// [Store.ResolveDeep] expands every nested reference with cycle detection.
package objstore
