// Package pdftest builds small PDF files for tests with correct
// cross-reference offsets.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
	"strings"
)

// Builder accumulates numbered objects and writes a complete file.
type Builder struct {
	Version string
	// XRefStream writes a cross-reference stream instead of a table.
	XRefStream bool
	// Encrypt, when set, transforms stream data and literal strings added
	// with AddStream and String before they are written.
	Encrypt func(num, gen int, data []byte) []byte

	objs       map[int][]byte
	compressed map[int][2]int
}

// New returns a builder for a PDF 1.7 file.
func New() *Builder {
	return &Builder{Version: "1.7", objs: make(map[int][]byte), compressed: make(map[int][2]int)}
}

// Add stores a direct object body such as "<< /Type /Catalog >>".
func (b *Builder) Add(num int, body string) {
	b.objs[num] = []byte(body)
}

// AddStream stores a stream object. dict is the dictionary without its
// enclosing brackets or /Length.
func (b *Builder) AddStream(num int, dict string, data []byte) {
	if b.Encrypt != nil {
		data = b.Encrypt(num, 0, data)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	b.objs[num] = buf.Bytes()
}

// String formats data as a hex string, encrypted for object num when the
// builder has an Encrypt hook.
func (b *Builder) String(num int, data string) string {
	raw := []byte(data)
	if b.Encrypt != nil {
		raw = b.Encrypt(num, 0, raw)
	}
	return fmt.Sprintf("<%X>", raw)
}

// Compressed records that object num lives at index in object stream
// streamNum. It is only written when XRefStream is set.
func (b *Builder) Compressed(num, streamNum, index int) {
	b.compressed[num] = [2]int{streamNum, index}
}

// Bytes writes the file. trailer holds extra trailer entries such as
// "/Root 1 0 R /Info 5 0 R".
func (b *Builder) Bytes(trailer string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.Version)

	nums := make([]int, 0, len(b.objs))
	maxNum := 0
	for n := range b.objs {
		nums = append(nums, n)
	}
	for n := range b.compressed {
		if n > maxNum {
			maxNum = n
		}
	}
	sort.Ints(nums)
	if len(nums) > 0 && nums[len(nums)-1] > maxNum {
		maxNum = nums[len(nums)-1]
	}

	offsets := make(map[int]int, len(nums))
	for _, n := range nums {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", n)
		buf.Write(b.objs[n])
		buf.WriteString("\nendobj\n")
	}

	if b.XRefStream {
		xrefNum := maxNum + 1
		size := xrefNum + 1
		offsets[xrefNum] = buf.Len()
		var rows bytes.Buffer
		for n := 0; n < size; n++ {
			switch {
			case n == xrefNum || offsets[n] > 0:
				rows.Write([]byte{1, byte(offsets[n] >> 24), byte(offsets[n] >> 16), byte(offsets[n] >> 8), byte(offsets[n]), 0, 0})
			case b.compressed[n] != [2]int{}:
				c := b.compressed[n]
				rows.Write([]byte{2, byte(c[0] >> 24), byte(c[0] >> 16), byte(c[0] >> 8), byte(c[0]), byte(c[1] >> 8), byte(c[1])})
			default:
				rows.Write([]byte{0, 0, 0, 0, 0, 0xff, 0xff})
			}
		}
		data := Deflate(rows.Bytes())
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] /Filter /FlateDecode /Length %d %s >>\nstream\n",
			xrefNum, size, len(data), trailer)
		buf.Write(data)
		buf.WriteString("\nendstream\nendobj\n")
		fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", offsets[xrefNum])
		return buf.Bytes()
	}

	xrefAt := buf.Len()
	size := maxNum + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	for n := 0; n < size; n++ {
		if off, ok := offsets[n]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", size, trailer, xrefAt)
	return buf.Bytes()
}

// Deflate zlib-compresses data.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Page describes one page for SimpleDocument.
type Page struct {
	Content string
	// Resources overrides the default resource dictionary, which maps /F1
	// to Helvetica.
	Resources string
	MediaBox  string
}

// SimpleDocument builds a catalog (1), page tree (2), a Helvetica font (3)
// and one page object plus content stream per page starting at object 10.
func SimpleDocument(pages ...Page) *Builder {
	b := New()
	b.Add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.Add(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	kids := make([]string, len(pages))
	for i, p := range pages {
		pageNum := 10 + 2*i
		contentNum := pageNum + 1
		kids[i] = fmt.Sprintf("%d 0 R", pageNum)
		res := p.Resources
		if res == "" {
			res = "<< /Font << /F1 3 0 R >> >>"
		}
		box := p.MediaBox
		if box == "" {
			box = "[0 0 612 792]"
		}
		b.Add(pageNum, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox %s /Resources %s /Contents %d 0 R >>", box, res, contentNum))
		b.AddStream(contentNum, "", []byte(p.Content))
	}
	b.Add(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	return b
}

// Linearized builds a linearized file: a /Linearized dictionary, a
// first-page cross-reference section covering the catalog (2), page tree
// (3), font (4) and the first page (10, 11), then the remaining pages and
// the main cross-reference table. It returns the file and the offset E at
// which the first-page section ends.
func Linearized(pages ...Page) ([]byte, int) {
	var l, e, t, prev int
	var offsets map[int]int
	var out []byte
	size := 11 + 2*len(pages)

	for pass := 0; pass < 2; pass++ {
		var buf bytes.Buffer
		next := make(map[int]int)
		obj := func(num int, body string) {
			next[num] = buf.Len()
			fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
		}
		stream := func(num int, data string) {
			obj(num, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data))
		}
		page := func(i int) {
			p := pages[i]
			box := p.MediaBox
			if box == "" {
				box = "[0 0 612 792]"
			}
			res := p.Resources
			if res == "" {
				res = "<< /Font << /F1 4 0 R >> >>"
			}
			obj(10+2*i, fmt.Sprintf("<< /Type /Page /Parent 3 0 R /MediaBox %s /Resources %s /Contents %d 0 R >>", box, res, 11+2*i))
			stream(11+2*i, p.Content)
		}

		buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
		obj(1, fmt.Sprintf("<< /Linearized 1 /L %010d /O 10 /E %010d /N %d /T %010d >>", l, e, len(pages), t))
		first := buf.Len()
		buf.WriteString("xref\n")
		for _, n := range []int{1, 2, 3, 4, 10, 11} {
			fmt.Fprintf(&buf, "%d 1\n%010d 00000 n \n", n, offsets[n])
		}
		fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 2 0 R /Prev %010d >>\nstartxref\n0\n%%%%EOF\n", size, prev)

		kids := make([]string, len(pages))
		for i := range pages {
			kids[i] = fmt.Sprintf("%d 0 R", 10+2*i)
		}
		// The padding keeps the first-page section longer than a header
		// probe.
		obj(2, fmt.Sprintf("<< /Type /Catalog /Pages 3 0 R /Pad (%s) >>", strings.Repeat("x", 1100)))
		obj(3, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
		obj(4, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
		page(0)
		e = buf.Len()

		for i := 1; i < len(pages); i++ {
			page(i)
		}
		prev = buf.Len()
		buf.WriteString("xref\n0 1\n0000000000 65535 f \n")
		t = buf.Len()
		for i := 1; i < len(pages); i++ {
			for _, n := range []int{10 + 2*i, 11 + 2*i} {
				fmt.Fprintf(&buf, "%d 1\n%010d 00000 n \n", n, next[n])
			}
		}
		fmt.Fprintf(&buf, "trailer\n<< /Size %d >>\nstartxref\n%d\n%%%%EOF\n", size, first)
		l = buf.Len()
		offsets = next
		out = buf.Bytes()
	}
	return out, e
}
