// Package pages indexes the pages of a PDF document.
//
// Opening happens in two steps. [ReadLayout] inspects the header and the
// cross-reference data of a byte source and reports whether the file is
// linearized. The caller then builds an object store over the table it
// returned, authenticates if the trailer names an /Encrypt dictionary, and
// passes the store to [NewIndex], which walks the page tree.
//
//	layout, err := pages.ReadLayout(ctx, src, core.DefaultLimits())
//	if err != nil {
//		return err
//	}
//	store := objstore.New(src, layout.XRef)
//	idx, err := pages.NewIndex(ctx, store, layout)
//
// # Indexed and linearized modes
//
// When the whole file is available the full cross-reference chain is read
// and every page is known after NewIndex returns. When a linearized file
// is still arriving, the first-page cross-reference section is enough to
// resolve the first page; the rest of the tree is indexed in the
// background once the source completes. Until then [Index.Page] returns
// [ErrPageNotYetAvailable] for the other pages, and
// [Index.IsLoadingLinearized] reports true.
//
// # Inheritance
//
// /Resources, /MediaBox, /CropBox and /Rotate are inherited from ancestor
// /Pages nodes. A [PageHandle] carries the resolved values.
package pages
