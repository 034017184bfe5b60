package font

import (
	"context"

	"github.com/tsawler/pagedecode/core"
)

// HasEmbeddedFonts reports whether any font reachable from resources,
// including fonts of form XObjects and Type 3 glyph resources, carries an
// embedded program.
func HasEmbeddedFonts(ctx context.Context, store Store, resources core.Dict) (bool, error) {
	return hasEmbedded(ctx, store, resources, make(map[core.ObjectRef]bool), 0)
}

const maxProbeDepth = 32

func hasEmbedded(ctx context.Context, store Store, resources core.Dict, seen map[core.ObjectRef]bool, depth int) (bool, error) {
	if resources == nil || depth > maxProbeDepth {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fonts, _ := store.ResolveDict(ctx, resources["Font"])
	for _, obj := range fonts {
		if ref, ok := obj.(core.ObjectRef); ok {
			if seen[ref] {
				continue
			}
			seen[ref] = true
		}
		dict, err := store.ResolveDict(ctx, obj)
		if err != nil {
			continue
		}
		if embeddedProgram(ctx, store, dict) {
			return true, nil
		}
		if res, err := store.ResolveDict(ctx, dict["Resources"]); err == nil {
			if ok, err := hasEmbedded(ctx, store, res, seen, depth+1); ok || err != nil {
				return ok, err
			}
		}
	}

	xobjects, _ := store.ResolveDict(ctx, resources["XObject"])
	for _, obj := range xobjects {
		ref, isRef := obj.(core.ObjectRef)
		if isRef {
			if seen[ref] {
				continue
			}
			seen[ref] = true
		}
		v, err := store.ResolveObject(ctx, obj)
		if err != nil {
			continue
		}
		stream, ok := v.(*core.Stream)
		if !ok {
			continue
		}
		if st, _ := stream.Dict.Name("Subtype"); st != "Form" {
			continue
		}
		res, err := store.ResolveDict(ctx, stream.Dict["Resources"])
		if err != nil {
			continue
		}
		if ok, err := hasEmbedded(ctx, store, res, seen, depth+1); ok || err != nil {
			return ok, err
		}
	}
	return false, nil
}

func embeddedProgram(ctx context.Context, store Store, dict core.Dict) bool {
	fdObj := dict["FontDescriptor"]
	if st, _ := dict.Name("Subtype"); st == "Type0" {
		kids, err := store.ResolveArray(ctx, dict["DescendantFonts"])
		if err != nil || len(kids) == 0 {
			return false
		}
		cid, err := store.ResolveDict(ctx, kids[0])
		if err != nil {
			return false
		}
		fdObj = cid["FontDescriptor"]
	}
	fd, err := store.ResolveDict(ctx, fdObj)
	if err != nil {
		return false
	}
	return fd.Has("FontFile") || fd.Has("FontFile2") || fd.Has("FontFile3")
}
