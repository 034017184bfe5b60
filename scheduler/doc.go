// Package scheduler decodes pages on demand and in the background.
//
// Every page moves through NotStarted, Decoding and then Decoded or
// Failed. Requests for a page that is decoding join the running decode,
// so concurrent DecodePage and DecodePageInBackground calls interpret the
// page once. A failed page is decoded again on the next request and
// Invalidate drops a finished result.
//
// Decodes are detached from the caller's context: cancelling a wait
// leaves the decode running. Background decodes and the text grouping
// that follows each decode share a bounded worker pool.
package scheduler
