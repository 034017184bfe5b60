package core

import (
	"fmt"

	"github.com/tsawler/pagedecode/internal/filters"
)

// Decode runs the full filter chain with the default size limit.
func (s *Stream) Decode() ([]byte, error) {
	return s.DecodeLimit(DefaultLimits().MaxDecompressedSize)
}

// DecodeLimit runs the filter chain, failing when any stage produces more
// than limit bytes. Image codecs (DCT, JPX, JBIG2) are left encoded.
func (s *Stream) DecodeLimit(limit int64) ([]byte, error) {
	data, _, err := s.decode(limit, false)
	return data, err
}

// DecodeImage runs the filter chain up to the first image codec and returns
// the partially decoded bytes with that codec's name, or "" when every
// filter was applied.
func (s *Stream) DecodeImage(limit int64) ([]byte, string, error) {
	return s.decode(limit, true)
}

func (s *Stream) decode(limit int64, stopAtCodec bool) ([]byte, string, error) {
	names, params, err := s.Filters()
	if err != nil {
		return nil, "", err
	}
	data := s.Raw
	for i, name := range names {
		if name == "Crypt" {
			// Decryption happens when the stream is loaded.
			continue
		}
		if stopAtCodec && filters.Passthrough(name) {
			return data, name, nil
		}
		data, err = filters.Decode(name, data, toParams(params[i]), limit)
		if err != nil {
			return nil, "", fmt.Errorf("filter %d (%s): %w", i, name, err)
		}
	}
	return data, "", nil
}

// toParams converts a /DecodeParms dictionary to filter parameters.
func toParams(d Dict) filters.Params {
	if d == nil {
		return nil
	}
	params := make(filters.Params, len(d))
	for k, v := range d {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		}
	}
	return params
}
