package objstore

import (
	"context"
	"fmt"

	"github.com/tsawler/pagedecode/core"
)

// ResolveObject follows obj while it is a reference and returns the first
// direct object. A nil obj resolves to Null.
func (s *Store) ResolveObject(ctx context.Context, obj core.Object) (core.Object, error) {
	for depth := 0; ; depth++ {
		ref, ok := obj.(core.ObjectRef)
		if !ok {
			if obj == nil {
				return core.Null{}, nil
			}
			return obj, nil
		}
		if depth >= s.limits.MaxResolveDepth {
			return nil, fmt.Errorf("reference chain from %v deeper than %d: %w", ref, s.limits.MaxResolveDepth, core.ErrMalformedObject)
		}
		next, err := s.resolveRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		obj = next
	}
}

// ResolveDict resolves obj and requires a dictionary. The dictionary of a
// stream is accepted.
func (s *Store) ResolveDict(ctx context.Context, obj core.Object) (core.Dict, error) {
	v, err := s.ResolveObject(ctx, obj)
	if err != nil {
		return nil, err
	}
	switch d := v.(type) {
	case core.Dict:
		return d, nil
	case *core.Stream:
		return d.Dict, nil
	}
	return nil, fmt.Errorf("expected dictionary, got %s: %w", v.Kind(), core.ErrMalformedObject)
}

// ResolveArray resolves obj and requires an array.
func (s *Store) ResolveArray(ctx context.Context, obj core.Object) (core.Array, error) {
	v, err := s.ResolveObject(ctx, obj)
	if err != nil {
		return nil, err
	}
	a, ok := v.(core.Array)
	if !ok {
		return nil, fmt.Errorf("expected array, got %s: %w", v.Kind(), core.ErrMalformedObject)
	}
	return a, nil
}

// ResolveDeep expands every reference inside obj. A reference that points
// back to an object already on the current path is an error, while the
// same object reached along separate branches is expanded each time.
func (s *Store) ResolveDeep(ctx context.Context, obj core.Object) (core.Object, error) {
	return s.resolveDeep(ctx, obj, make(map[core.ObjectRef]bool), 0)
}

func (s *Store) resolveDeep(ctx context.Context, obj core.Object, path map[core.ObjectRef]bool, depth int) (core.Object, error) {
	if depth >= s.limits.MaxResolveDepth {
		return nil, fmt.Errorf("maximum recursion depth (%d) exceeded: %w", s.limits.MaxResolveDepth, core.ErrMalformedObject)
	}
	switch v := obj.(type) {
	case core.ObjectRef:
		if path[v] {
			return nil, fmt.Errorf("circular reference at %v: %w", v, core.ErrMalformedObject)
		}
		path[v] = true
		defer delete(path, v)
		resolved, err := s.resolveRef(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %v: %w", v, err)
		}
		return s.resolveDeep(ctx, resolved, path, depth+1)
	case core.Dict:
		out := make(core.Dict, len(v))
		for k, item := range v {
			r, err := s.resolveDeep(ctx, item, path, depth+1)
			if err != nil {
				return nil, fmt.Errorf("dict key %s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	case core.Array:
		out := make(core.Array, len(v))
		for i, item := range v {
			r, err := s.resolveDeep(ctx, item, path, depth+1)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	case *core.Stream:
		d, err := s.resolveDeep(ctx, v.Dict, path, depth+1)
		if err != nil {
			return nil, fmt.Errorf("stream dict: %w", err)
		}
		return &core.Stream{Dict: d.(core.Dict), Raw: v.Raw}, nil
	}
	return obj, nil
}
