package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// EntryType is the kind of a cross-reference entry.
type EntryType int

const (
	EntryFree       EntryType = iota
	EntryInUse                // stored at a byte offset
	EntryCompressed           // stored inside an object stream
)

// XRefEntry locates one object.
type XRefEntry struct {
	Type       EntryType
	Offset     int64 // byte offset for in-use entries
	Generation int
	StreamNum  int // containing object stream for compressed entries
	Index      int // index within that object stream
}

// XRefTable maps object numbers to their entries. It is the result of
// merging every section of the /Prev chain, newest first.
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer Dict
	// Repaired is set when the table was rebuilt by scanning the file.
	Repaired bool
}

// NewXRefTable creates an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]XRefEntry), Trailer: Dict{}}
}

// Get returns the entry for object num.
func (x *XRefTable) Get(num int) (XRefEntry, bool) {
	e, ok := x.Entries[num]
	return e, ok
}

// Set adds or replaces an entry.
func (x *XRefTable) Set(num int, e XRefEntry) { x.Entries[num] = e }

// Size returns the number of entries.
func (x *XRefTable) Size() int { return len(x.Entries) }

// merge adds entries from an older section. Entries already present win.
// Missing trailer keys are filled from the older trailer.
func (x *XRefTable) merge(older *XRefTable) {
	for num, e := range older.Entries {
		if _, ok := x.Entries[num]; !ok {
			x.Entries[num] = e
		}
	}
	for k, v := range older.Trailer {
		if _, ok := x.Trailer[k]; !ok && k != "Prev" && k != "XRefStm" {
			x.Trailer[k] = v
		}
	}
}

// FindStartXRef returns the offset recorded after the last "startxref".
func FindStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoXRef
	}
	lex := NewLexer(tail[idx+len("startxref"):], 0)
	tok, _ := lex.Next()
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("%w: startxref not followed by an offset", ErrNoXRef)
	}
	off, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoXRef, err)
	}
	return off, nil
}

// LoadXRef reads the cross-reference chain starting at startxref and
// follows /Prev and /XRefStm links. If the chain is unusable the table is
// rebuilt with Repair.
func LoadXRef(data []byte, limits Limits) (*XRefTable, error) {
	off, err := FindStartXRef(data)
	if err == nil {
		var table *XRefTable
		table, err = LoadXRefChain(data, off, limits)
		if err == nil {
			if _, ok := table.Trailer["Root"]; ok {
				return table, nil
			}
			err = fmt.Errorf("%w: trailer has no /Root", ErrNoXRef)
		}
	}
	repaired, rerr := Repair(data, limits)
	if rerr != nil {
		return nil, fmt.Errorf("%v; repair: %w", err, rerr)
	}
	return repaired, nil
}

// LoadXRefChain parses the section at offset and every section reachable
// through /Prev, stopping after limits.MaxXRefChain sections or on a loop.
func LoadXRefChain(data []byte, offset int64, limits Limits) (*XRefTable, error) {
	merged := NewXRefTable()
	seen := make(map[int64]bool)
	for n := 0; ; n++ {
		if limits.MaxXRefChain > 0 && n >= limits.MaxXRefChain {
			return nil, fmt.Errorf("%w: more than %d xref sections", ErrMalformedObject, limits.MaxXRefChain)
		}
		if seen[offset] {
			break
		}
		seen[offset] = true

		section, err := ParseXRefSection(data, offset)
		if err != nil {
			if n == 0 {
				return nil, err
			}
			// A broken older section still leaves the newer ones usable.
			break
		}
		if stm, ok := section.Trailer.Int("XRefStm"); ok && !seen[stm] {
			seen[stm] = true
			if hybrid, err := ParseXRefSection(data, stm); err == nil {
				for num, e := range hybrid.Entries {
					if cur, ok := section.Entries[num]; !ok || cur.Type == EntryFree {
						section.Entries[num] = e
					}
				}
			}
		}
		if n == 0 {
			merged = section
		} else {
			merged.merge(section)
		}
		prev, ok := section.Trailer.Int("Prev")
		if !ok {
			break
		}
		offset = prev
	}
	delete(merged.Trailer, "Prev")
	return merged, nil
}

// ParseXRefSection parses a single xref table or xref stream at offset.
// It does not follow /Prev.
func ParseXRefSection(data []byte, offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("%w: xref offset %d outside file", ErrNoXRef, offset)
	}
	lex := NewLexer(data, 0)
	lex.Seek(int(offset))
	tok, err := lex.Peek()
	if err != nil {
		return nil, err
	}
	if tok.is(TokenKeyword, "xref") {
		lex.Next()
		return parseXRefTable(lex)
	}
	if tok.Type == TokenInteger {
		return parseXRefStreamAt(data, offset)
	}
	return nil, syntaxErrorf(offset, "expected xref section, got %q", tok.Value)
}

func parseXRefTable(lex *Lexer) (*XRefTable, error) {
	table := NewXRefTable()
	firstSection := true
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.is(TokenKeyword, "trailer") {
			break
		}
		if tok.Type != TokenInteger {
			return nil, syntaxErrorf(tok.Pos, "expected subsection header, got %q", tok.Value)
		}
		start, _ := strconv.Atoi(string(tok.Value))
		countTok, _ := lex.Next()
		if countTok.Type != TokenInteger {
			return nil, syntaxErrorf(countTok.Pos, "expected subsection count, got %q", countTok.Value)
		}
		count, _ := strconv.Atoi(string(countTok.Value))

		for i := 0; i < count; i++ {
			offTok, _ := lex.Next()
			genTok, _ := lex.Next()
			flagTok, _ := lex.Next()
			if offTok.Type != TokenInteger || genTok.Type != TokenInteger || flagTok.Type != TokenKeyword {
				return nil, syntaxErrorf(offTok.Pos, "bad xref entry")
			}
			off, _ := strconv.ParseInt(string(offTok.Value), 10, 64)
			gen, _ := strconv.Atoi(string(genTok.Value))

			// Some writers number the first subsection from 1 while still
			// listing the free head of object 0.
			if firstSection && i == 0 && start == 1 && off == 0 && gen == 65535 {
				start = 0
			}
			e := XRefEntry{Offset: off, Generation: gen}
			switch string(flagTok.Value) {
			case "n":
				e.Type = EntryInUse
			case "f":
				e.Type = EntryFree
			default:
				return nil, syntaxErrorf(flagTok.Pos, "bad xref flag %q", flagTok.Value)
			}
			num := start + i
			if _, ok := table.Entries[num]; !ok {
				table.Entries[num] = e
			}
		}
		firstSection = false
	}

	p := &Parser{lex: lex, limits: DefaultLimits()}
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("%w: trailer is %s", ErrMalformedObject, obj.Kind())
	}
	table.Trailer = trailer
	return table, nil
}

func parseXRefStreamAt(data []byte, offset int64) (*XRefTable, error) {
	p := NewParser(data, 0)
	p.lex.Seek(int(offset))
	ind, err := p.ParseIndirect()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("%w: object at xref offset is %s", ErrMalformedObject, ind.Object.Kind())
	}
	return ParseXRefStream(stream)
}

// ParseXRefStream decodes a /Type /XRef stream into a table whose trailer
// is the stream dictionary.
func ParseXRefStream(s *Stream) (*XRefTable, error) {
	if t, _ := s.Dict.Name("Type"); t != "XRef" {
		return nil, fmt.Errorf("%w: expected /Type /XRef, got %q", ErrMalformedObject, t)
	}
	w, ok := s.Dict.Array("W")
	if !ok || len(w) != 3 {
		return nil, fmt.Errorf("%w: xref stream /W must have 3 entries", ErrMalformedObject)
	}
	var widths [3]int
	rowLen := 0
	for i := range widths {
		n, ok := Number(w[i])
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("%w: bad /W entry %v", ErrMalformedObject, w[i])
		}
		widths[i] = int(n)
		rowLen += widths[i]
	}
	if rowLen == 0 {
		return nil, fmt.Errorf("%w: xref stream rows are empty", ErrMalformedObject)
	}

	size, _ := s.Dict.Int("Size")
	index := []int{0, int(size)}
	if arr, ok := s.Dict.Array("Index"); ok {
		index = index[:0]
		for _, v := range arr {
			n, _ := Number(v)
			index = append(index, int(n))
		}
		if len(index)%2 != 0 {
			return nil, fmt.Errorf("%w: odd /Index length", ErrMalformedObject)
		}
	}

	data, err := s.Decode()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}

	table := NewXRefTable()
	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(data) {
				break
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			typ := int64(1)
			if widths[0] > 0 {
				typ = beUint(row[:widths[0]])
			}
			f2 := beUint(row[widths[0] : widths[0]+widths[1]])
			f3 := beUint(row[widths[0]+widths[1]:])

			var e XRefEntry
			switch typ {
			case 0:
				e = XRefEntry{Type: EntryFree, Offset: f2, Generation: int(f3)}
			case 1:
				e = XRefEntry{Type: EntryInUse, Offset: f2, Generation: int(f3)}
			case 2:
				e = XRefEntry{Type: EntryCompressed, StreamNum: int(f2), Index: int(f3)}
			default:
				// Unknown types are treated as references to the null object.
				continue
			}
			table.Entries[start+j] = e
		}
	}
	table.Trailer = s.Dict.Clone()
	return table, nil
}

func beUint(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
