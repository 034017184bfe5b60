package objstore

import (
	"fmt"

	"github.com/tsawler/pagedecode/core"
)

// decryptObject returns a copy of obj with every string and stream body
// decrypted for ref. Cross-reference streams are stored in the clear.
func decryptObject(d Decrypter, ref core.ObjectRef, obj core.Object) (core.Object, error) {
	switch v := obj.(type) {
	case core.String:
		out, err := d.DecryptString(ref, []byte(v))
		if err != nil {
			return nil, fmt.Errorf("object %v: decrypt string: %w", ref, err)
		}
		return core.String(out), nil
	case core.Array:
		out := make(core.Array, len(v))
		for i, item := range v {
			dec, err := decryptObject(d, ref, item)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	case core.Dict:
		out := make(core.Dict, len(v))
		for k, item := range v {
			dec, err := decryptObject(d, ref, item)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	case *core.Stream:
		if t, _ := v.Dict.Name("Type"); t == "XRef" {
			return v, nil
		}
		dict, err := decryptObject(d, ref, v.Dict)
		if err != nil {
			return nil, err
		}
		raw, err := d.DecryptStream(ref, v.Dict, v.Raw)
		if err != nil {
			return nil, fmt.Errorf("object %v: decrypt stream: %w", ref, err)
		}
		return &core.Stream{Dict: dict.(core.Dict), Raw: raw}, nil
	}
	return obj, nil
}
