package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// Repair rebuilds a cross-reference table by scanning data for
// "num gen obj" headers. Later definitions of an object number win, as they
// would in an incremental update. The trailer comes from the last "trailer"
// dictionary or xref stream found; failing that, a /Type /Catalog object is
// used as /Root.
func Repair(data []byte, limits Limits) (*XRefTable, error) {
	table := NewXRefTable()
	table.Repaired = true
	var objStms []int

	for i := 0; i < len(data); {
		idx := bytes.Index(data[i:], []byte("obj"))
		if idx < 0 {
			break
		}
		at := i + idx
		i = at + 3
		if at+3 < len(data) && !IsWhitespace(data[at+3]) && !IsDelimiter(data[at+3]) {
			continue
		}
		start, num, gen, ok := objectHeaderBefore(data, at)
		if !ok {
			continue
		}
		table.Entries[num] = XRefEntry{Type: EntryInUse, Offset: int64(start), Generation: gen}
		if bytes.Contains(data[at+3:min(len(data), at+256)], []byte("/ObjStm")) {
			objStms = append(objStms, num)
		}
	}
	if len(table.Entries) == 0 {
		return nil, fmt.Errorf("%w: no objects found", ErrNoXRef)
	}

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		p := NewParser(data, 0)
		p.lex.Seek(idx + len("trailer"))
		if obj, err := p.ParseObject(); err == nil {
			if d, ok := obj.(Dict); ok {
				table.Trailer = d.Clone()
			}
		}
	}

	parser := NewParser(data, 0)
	parser.SetLimits(limits)
	load := func(num int) (Object, bool) {
		e := table.Entries[num]
		parser.lex.Seek(int(e.Offset))
		ind, err := parser.ParseIndirect()
		if err != nil {
			return nil, false
		}
		return ind.Object, true
	}

	for _, num := range objStms {
		obj, ok := load(num)
		if !ok {
			continue
		}
		s, ok := obj.(*Stream)
		if !ok {
			continue
		}
		if t, _ := s.Dict.Name("Type"); t != "ObjStm" {
			continue
		}
		if table.Trailer.Has("Encrypt") {
			// Encrypted object streams cannot be read before authentication.
			continue
		}
		decoded, err := s.DecodeLimit(limits.MaxDecompressedSize)
		if err != nil {
			continue
		}
		os, err := NewObjectStream(s.Dict, decoded)
		if err != nil {
			continue
		}
		for i, n := range os.ObjectNumbers() {
			if _, ok := table.Entries[n]; !ok {
				table.Entries[n] = XRefEntry{Type: EntryCompressed, StreamNum: num, Index: i}
			}
		}
	}

	if !table.Trailer.Has("Root") {
		for num, e := range table.Entries {
			if e.Type != EntryInUse {
				continue
			}
			obj, ok := load(num)
			if !ok {
				continue
			}
			var d Dict
			switch v := obj.(type) {
			case Dict:
				d = v
			case *Stream:
				d = v.Dict
				if t, _ := d.Name("Type"); t == "XRef" {
					for _, k := range []string{"Root", "Info", "ID", "Encrypt"} {
						if val, ok := d[k]; ok && !table.Trailer.Has(k) {
							table.Trailer[k] = val
						}
					}
				}
			}
			if t, _ := d.Name("Type"); t == "Catalog" && !table.Trailer.Has("Root") {
				table.Trailer["Root"] = ObjectRef{Num: num, Gen: e.Generation}
			}
		}
	}
	if !table.Trailer.Has("Root") {
		return nil, fmt.Errorf("%w: no document catalog found", ErrNoXRef)
	}
	return table, nil
}

// objectHeaderBefore reads "num gen" backwards from the "obj" keyword at
// pos and returns the offset where the header starts.
func objectHeaderBefore(data []byte, pos int) (start, num, gen int, ok bool) {
	i := pos - 1
	for i >= 0 && IsWhitespace(data[i]) {
		i--
	}
	genEnd := i + 1
	for i >= 0 && IsDigit(data[i]) {
		i--
	}
	genStart := i + 1
	if genStart == genEnd || i < 0 || !IsWhitespace(data[i]) {
		return 0, 0, 0, false
	}
	for i >= 0 && IsWhitespace(data[i]) {
		i--
	}
	numEnd := i + 1
	for i >= 0 && IsDigit(data[i]) {
		i--
	}
	numStart := i + 1
	if numStart == numEnd || (i >= 0 && !IsWhitespace(data[i]) && !IsDelimiter(data[i])) {
		return 0, 0, 0, false
	}
	num, err1 := strconv.Atoi(string(data[numStart:numEnd]))
	gen, err2 := strconv.Atoi(string(data[genStart:genEnd]))
	if err1 != nil || err2 != nil {
		return 0, 0, 0, false
	}
	return numStart, num, gen, true
}
