package pages

import (
	"context"
	"fmt"

	"github.com/tsawler/pagedecode/core"
)

// Info holds the document information dictionary as text.
type Info struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
}

// Info reads the trailer /Info dictionary. A document without one yields
// the zero Info.
func (ix *Index) Info(ctx context.Context) (Info, error) {
	ref, ok := ix.store.Trailer()["Info"]
	if !ok {
		return Info{}, nil
	}
	d, err := ix.store.ResolveDict(ctx, ref)
	if err != nil {
		return Info{}, fmt.Errorf("info dictionary: %w", err)
	}
	text := func(key string) string {
		v, err := ix.store.ResolveObject(ctx, d[key])
		if err != nil {
			return ""
		}
		if s, ok := v.(core.String); ok {
			return core.DecodeTextString([]byte(s))
		}
		return ""
	}
	return Info{
		Title:        text("Title"),
		Author:       text("Author"),
		Subject:      text("Subject"),
		Keywords:     text("Keywords"),
		Creator:      text("Creator"),
		Producer:     text("Producer"),
		CreationDate: text("CreationDate"),
		ModDate:      text("ModDate"),
	}, nil
}

// Metadata returns the decoded XMP stream named by the catalog /Metadata
// entry, or nil when there is none.
func (ix *Index) Metadata(ctx context.Context) ([]byte, error) {
	ref, ok := ix.catalog["Metadata"]
	if !ok {
		return nil, nil
	}
	_, data, err := ix.store.StreamData(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("metadata stream: %w", err)
	}
	return data, nil
}
