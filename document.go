package pagedecode

import (
	"context"

	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/pages"
	"github.com/tsawler/pagedecode/security"
)

// PageCount returns the number of pages, or 0 for a locked session.
func (s *Session) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageCountLocked()
}

func (s *Session) pageCountLocked() int {
	if s.index == nil {
		return 0
	}
	return s.index.PageCount()
}

// page returns the handle of page i. While a linearized document loads,
// pages beyond the first return ErrPageNotYetAvailable.
func (s *Session) page(i int) (pages.PageHandle, error) {
	_, index, err := s.ready()
	if err != nil {
		return pages.PageHandle{}, err
	}
	return index.Page(i)
}

// PageSize returns the output size of page i under the current rotation
// and scale.
func (s *Session) PageSize(i int) (width, height float64, err error) {
	p, err := s.page(i)
	if err != nil {
		return 0, 0, err
	}
	m := s.currentMode()
	v := p.WithView(m.Rotation, m.Scale)
	w, h := v.Size()
	return w * v.Scale(), h * v.Scale(), nil
}

// PageRotation returns the effective clockwise rotation of page i.
func (s *Session) PageRotation(i int) (int, error) {
	p, err := s.page(i)
	if err != nil {
		return 0, err
	}
	return p.WithView(s.currentMode().Rotation, 1).Rotation(), nil
}

// PageFromObjectRef returns the index of the page object num gen.
func (s *Session) PageFromObjectRef(num, gen int) (int, bool) {
	_, index, err := s.ready()
	if err != nil {
		return 0, false
	}
	return index.PageFromRef(core.ObjectRef{Num: num, Gen: gen})
}

// HasEmbeddedFonts reports whether page i, or a form it draws, uses an
// embedded font program.
func (s *Session) HasEmbeddedFonts(ctx context.Context, i int) (bool, error) {
	_, index, err := s.ready()
	if err != nil {
		return false, err
	}
	p, err := index.WaitPage(ctx, i)
	if err != nil {
		return false, err
	}
	return font.HasEmbeddedFonts(ctx, s.store, p.Resources)
}

// Version returns the effective PDF version, the newer of the header and
// the catalog /Version.
func (s *Session) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index != nil {
		return s.index.Version()
	}
	return s.layout.Version
}

// Info returns the document information dictionary.
func (s *Session) Info(ctx context.Context) (pages.Info, error) {
	_, index, err := s.ready()
	if err != nil {
		return pages.Info{}, err
	}
	return index.Info(ctx)
}

// Metadata returns the raw XMP metadata stream, or nil.
func (s *Session) Metadata(ctx context.Context) ([]byte, error) {
	_, index, err := s.ready()
	if err != nil {
		return nil, err
	}
	return index.Metadata(ctx)
}

// IsLinearized reports whether the file is linearized.
func (s *Session) IsLinearized() bool { return s.layout.Linearization != nil }

// IsLoadingLinearized reports whether a linearized file is still arriving.
func (s *Session) IsLoadingLinearized() bool {
	_, index, err := s.ready()
	return err == nil && index.IsLoadingLinearized()
}

// WaitFullyLoaded blocks until every page of a linearized file is indexed.
func (s *Session) WaitFullyLoaded(ctx context.Context) error {
	_, index, err := s.ready()
	if err != nil {
		return err
	}
	return index.WaitFullyLoaded(ctx)
}

// IsEncrypted reports whether the document has an encryption dictionary.
func (s *Session) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.security != nil
}

// IsPasswordSupplied reports whether a non-empty password unlocked the
// document.
func (s *Session) IsPasswordSupplied() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sec != nil && s.sec.IsPasswordSupplied()
}

// IsFileViewable reports whether the pages can be read: the document is
// unencrypted or has been authenticated.
func (s *Session) IsFileViewable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// IsExtractionAllowed reports whether the permissions allow copying text
// and graphics. It is false for a locked session.
func (s *Session) IsExtractionAllowed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sec != nil && s.sec.IsExtractionAllowed()
}

// Permissions returns the authenticated permissions, or none for a locked
// session.
func (s *Session) Permissions() security.Permissions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sec == nil {
		return security.Permissions{}
	}
	return s.sec.Permissions()
}
