package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/tsawler/pagedecode/core"
)

// Operation represents a single content stream operation consisting of an
// operator and its operands. Operands are PDF objects that precede the operator.
type Operation struct {
	Operator string        // The operator (e.g., "Tj", "Tm", "q")
	Operands []core.Object // The operands
	// Offset is the byte offset of the operator in the stream.
	Offset int
	// Image holds the dictionary and data of an inline image (operator BI).
	Image *InlineImage
}

// InlineImage is a BI ... ID ... EI sequence.
type InlineImage struct {
	// Dict has abbreviated keys expanded (/W becomes /Width).
	Dict core.Dict
	Data []byte
}

// ParseError describes malformed input that was skipped.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("content stream offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrSyntax is wrapped by every ParseError.
var ErrSyntax = errors.New("malformed content")

const (
	maxOperands   = 1 << 12
	maxNesting    = 64
	maxParseError = 100
)

// Parser parses PDF content streams into a sequence of operations.
// Each operation consists of an operator and its operands.
type Parser struct {
	data     []byte
	pos      int
	ops      []Operation
	operands []core.Object
	depth    int
	errs     []*ParseError
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Parse parses the content stream and returns all operations in order.
// Malformed tokens are skipped; the returned error is then non-nil and
// joins one ParseError per problem, while the operations read around them
// are still returned.
func (p *Parser) Parse() ([]Operation, error) {
	for p.pos < len(p.data) {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		p.parseNext()
	}
	if len(p.operands) > 0 {
		p.fail(p.pos, "%d operands without an operator", len(p.operands))
		p.operands = nil
	}
	return p.ops, p.Err()
}

// Errors returns the problems found so far.
func (p *Parser) Errors() []*ParseError { return p.errs }

// Err joins the problems found so far, or returns nil.
func (p *Parser) Err() error {
	if len(p.errs) == 0 {
		return nil
	}
	errs := make([]error, len(p.errs))
	for i, e := range p.errs {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (p *Parser) fail(offset int, format string, args ...any) {
	if len(p.errs) < maxParseError {
		p.errs = append(p.errs, &ParseError{Offset: offset, Err: fmt.Errorf("%w: "+format, append([]any{ErrSyntax}, args...)...)})
	}
}

// parseNext parses the next token, which is either an operand (pushed onto the
// stack) or an operator (which consumes the operand stack and creates an Operation).
func (p *Parser) parseNext() {
	start := p.pos
	c := p.data[p.pos]

	if c == '%' {
		p.skipComment()
		return
	}
	if isRegular(c) && !isNumberStart(c) {
		p.parseOperator()
		return
	}

	operand, err := p.parseOperand()
	if err != nil {
		p.fail(start, "%v", err)
		if p.pos == start {
			p.pos++
		}
		return
	}
	if len(p.operands) >= maxOperands {
		p.fail(start, "more than %d operands", maxOperands)
		p.operands = p.operands[:0]
	}
	p.operands = append(p.operands, operand)
}

// parseOperator parses an operator and creates an operation with the current
// operand stack, then clears the stack.
func (p *Parser) parseOperator() {
	start := p.pos
	for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
		p.pos++
	}
	operator := string(p.data[start:p.pos])

	switch operator {
	case "true":
		p.operands = append(p.operands, core.Bool(true))
		return
	case "false":
		p.operands = append(p.operands, core.Bool(false))
		return
	case "null":
		p.operands = append(p.operands, core.Null{})
		return
	}

	op := Operation{
		Operator: operator,
		Operands: p.operands,
		Offset:   start,
	}
	p.operands = nil

	if operator == "BI" {
		img, err := p.parseInlineImage()
		if err != nil {
			p.fail(start, "inline image: %v", err)
			return
		}
		op.Image = img
	}
	p.ops = append(p.ops, op)
}

// parseOperand parses a single operand, which can be a number, string, name,
// array, dictionary, boolean, or null.
func (p *Parser) parseOperand() (core.Object, error) {
	p.skipWhitespace()

	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unexpected end of stream")
	}

	c := p.data[p.pos]
	switch {
	case isNumberStart(c):
		return p.parseNumber()
	case c == '(':
		return p.parseString()
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.parseDict()
	case c == '<':
		return p.parseHexString()
	case c == '/':
		return p.parseName()
	case c == '[':
		return p.parseArray()
	}

	// Boolean or null inside arrays and dictionaries.
	end := p.pos
	for end < len(p.data) && isRegular(p.data[end]) {
		end++
	}
	switch string(p.data[p.pos:end]) {
	case "true":
		p.pos = end
		return core.Bool(true), nil
	case "false":
		p.pos = end
		return core.Bool(false), nil
	case "null":
		p.pos = end
		return core.Null{}, nil
	}

	return nil, fmt.Errorf("unexpected character at position %d: %q", p.pos, c)
}

// parseNumber parses an integer or real number operand.
func (p *Parser) parseNumber() (core.Object, error) {
	start := p.pos
	hasDecimal := false

	// Handle sign
	if p.data[p.pos] == '+' || p.data[p.pos] == '-' {
		p.pos++
	}

	// Read digits and decimal point
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
		} else if c == '.' && !hasDecimal {
			hasDecimal = true
			p.pos++
		} else {
			break
		}
	}

	numStr := string(p.data[start:p.pos])

	if hasDecimal {
		val, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number %q: %w", numStr, err)
		}
		return core.Real(val), nil
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", numStr, err)
	}
	return core.Int(val), nil
}

// parseString parses a literal string (...) with escape sequence handling.
func (p *Parser) parseString() (core.Object, error) {
	if p.data[p.pos] != '(' {
		return nil, fmt.Errorf("string must start with '('")
	}
	p.pos++ // skip '('

	var result bytes.Buffer
	depth := 1 // Track parenthesis nesting

	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]

		if c == '\\' && p.pos+1 < len(p.data) {
			// Escape sequence
			p.pos++
			next := p.data[p.pos]
			switch next {
			case 'n':
				result.WriteByte('\n')
				p.pos++
			case 'r':
				result.WriteByte('\r')
				p.pos++
			case 't':
				result.WriteByte('\t')
				p.pos++
			case 'b':
				result.WriteByte('\b')
				p.pos++
			case 'f':
				result.WriteByte('\f')
				p.pos++
			case '(':
				result.WriteByte('(')
				p.pos++
			case ')':
				result.WriteByte(')')
				p.pos++
			case '\\':
				result.WriteByte('\\')
				p.pos++
			case '\r':
				// Line continuation - skip the newline
				p.pos++
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
				// Line continuation - skip the newline
				p.pos++
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// Octal escape sequence: \ddd (1-3 octal digits)
				octalVal := int(next - '0')
				p.pos++
				// Read up to 2 more octal digits
				for i := 0; i < 2 && p.pos < len(p.data); i++ {
					digit := p.data[p.pos]
					if digit < '0' || digit > '7' {
						break
					}
					octalVal = octalVal*8 + int(digit-'0')
					p.pos++
				}
				// Octal value is mod 256 (single byte)
				result.WriteByte(byte(octalVal & 0xFF))
			default:
				// Unknown escape - keep as-is (PDF spec says ignore the backslash)
				result.WriteByte(next)
				p.pos++
			}
		} else if c == '(' {
			depth++
			result.WriteByte(c)
			p.pos++
		} else if c == ')' {
			depth--
			if depth > 0 {
				result.WriteByte(c)
			}
			p.pos++
		} else {
			result.WriteByte(c)
			p.pos++
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unclosed string")
	}

	return core.String(result.String()), nil
}

// parseHexString parses a hexadecimal string <...>.
func (p *Parser) parseHexString() (core.Object, error) {
	if p.data[p.pos] != '<' {
		return nil, fmt.Errorf("hex string must start with '<'")
	}
	p.pos++ // skip '<'

	var result bytes.Buffer

	for p.pos < len(p.data) {
		c := p.data[p.pos]

		if c == '>' {
			p.pos++
			break
		}

		if isWhitespace(c) {
			p.pos++
			continue
		}

		// Read hex digit
		if !isHexDigit(c) {
			return nil, fmt.Errorf("invalid hex digit: %c", c)
		}

		p.pos++
		// Read second hex digit (if available)
		if p.pos >= len(p.data) || p.data[p.pos] == '>' {
			// Odd number of digits - assume trailing 0
			result.WriteByte(hexValue(c) << 4)
			break
		}

		c2 := p.data[p.pos]
		if isWhitespace(c2) {
			// Skip whitespace between hex digits
			p.skipWhitespace()
			if p.pos >= len(p.data) || p.data[p.pos] == '>' {
				result.WriteByte(hexValue(c) << 4)
				break
			}
			c2 = p.data[p.pos]
		}

		if !isHexDigit(c2) {
			return nil, fmt.Errorf("invalid hex digit: %c", c2)
		}

		result.WriteByte((hexValue(c) << 4) | hexValue(c2))
		p.pos++
	}

	return core.String(result.String()), nil
}

// parseName parses a name object /Name with # escape handling.
func (p *Parser) parseName() (core.Object, error) {
	if p.data[p.pos] != '/' {
		return nil, fmt.Errorf("name must start with '/'")
	}
	p.pos++ // skip '/'

	var result bytes.Buffer

	for p.pos < len(p.data) {
		c := p.data[p.pos]

		// Name ends at whitespace or delimiter
		if isWhitespace(c) || isDelimiter(c) {
			break
		}

		// Handle # escape
		if c == '#' && p.pos+2 < len(p.data) {
			p.pos++
			hex1 := p.data[p.pos]
			hex2 := p.data[p.pos+1]
			if isHexDigit(hex1) && isHexDigit(hex2) {
				result.WriteByte((hexValue(hex1) << 4) | hexValue(hex2))
				p.pos += 2
				continue
			}
			// Invalid escape - keep #
			result.WriteByte('#')
			continue
		}

		result.WriteByte(c)
		p.pos++
	}

	return core.Name(result.String()), nil
}

// parseArray parses an array [...] of operands.
func (p *Parser) parseArray() (core.Object, error) {
	if p.depth >= maxNesting {
		return nil, fmt.Errorf("arrays nested deeper than %d", maxNesting)
	}
	p.depth++
	defer func() { p.depth-- }()
	p.pos++ // skip '['

	var arr core.Array
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDict parses a dictionary <<...>> (rare in content streams).
func (p *Parser) parseDict() (core.Object, error) {
	if p.depth >= maxNesting {
		return nil, fmt.Errorf("dictionaries nested deeper than %d", maxNesting)
	}
	p.depth++
	defer func() { p.depth-- }()
	p.pos += 2 // skip '<<'

	dict := make(core.Dict)
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed dictionary")
		}
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			return dict, nil
		}
		if p.data[p.pos] != '/' {
			return nil, fmt.Errorf("dictionary key must be a name")
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		value, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		dict[string(key.(core.Name))] = value
	}
}

// inlineKeys expands the abbreviations allowed in inline image
// dictionaries.
var inlineKeys = map[string]string{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"L":   "Length",
	"W":   "Width",
}

var inlineNames = map[string]string{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
	"AHx":  "ASCIIHexDecode",
	"A85":  "ASCII85Decode",
	"LZW":  "LZWDecode",
	"Fl":   "FlateDecode",
	"RL":   "RunLengthDecode",
	"CCF":  "CCITTFaxDecode",
	"DCT":  "DCTDecode",
}

func expandInlineName(obj core.Object) core.Object {
	switch v := obj.(type) {
	case core.Name:
		if full, ok := inlineNames[string(v)]; ok {
			return core.Name(full)
		}
	case core.Array:
		out := make(core.Array, len(v))
		for i, item := range v {
			out[i] = expandInlineName(item)
		}
		return out
	}
	return obj
}

// parseInlineImage reads the dictionary after BI, the ID operator and the
// image data up to EI.
func (p *Parser) parseInlineImage() (*InlineImage, error) {
	dict := make(core.Dict)
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("missing ID")
		}
		if p.data[p.pos] != '/' {
			start := p.pos
			for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
				p.pos++
			}
			if string(p.data[start:p.pos]) == "ID" {
				break
			}
			return nil, fmt.Errorf("unexpected %q in image dictionary", p.data[start:max(p.pos, start+1)])
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		value, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		k := string(key.(core.Name))
		if full, ok := inlineKeys[k]; ok {
			k = full
		}
		if k == "ColorSpace" || k == "Filter" {
			value = expandInlineName(value)
		}
		dict[k] = value
	}

	// A single white-space character separates ID from the data.
	if p.pos < len(p.data) && isWhitespace(p.data[p.pos]) {
		p.pos++
	}
	start := p.pos

	if n, ok := inlineLength(dict); ok && start+n <= len(p.data) {
		end := start + n
		rest := end
		for rest < len(p.data) && isWhitespace(p.data[rest]) {
			rest++
		}
		if bytes.HasPrefix(p.data[rest:], []byte("EI")) && (rest+2 == len(p.data) || !isRegular(p.data[rest+2])) {
			p.pos = rest + 2
			return &InlineImage{Dict: dict, Data: p.data[start:end]}, nil
		}
	}

	// Scan for EI surrounded by white space.
	for i := start; i+1 < len(p.data); i++ {
		if p.data[i] != 'E' || p.data[i+1] != 'I' {
			continue
		}
		if i > start && !isWhitespace(p.data[i-1]) {
			continue
		}
		if i+2 < len(p.data) && !isWhitespace(p.data[i+2]) {
			continue
		}
		end := i
		if end > start && isWhitespace(p.data[end-1]) {
			end--
		}
		p.pos = i + 2
		return &InlineImage{Dict: dict, Data: p.data[start:end]}, nil
	}
	p.pos = len(p.data)
	return nil, fmt.Errorf("missing EI")
}

// inlineLength returns the data length of an unfiltered inline image or one
// with an explicit /Length.
func inlineLength(dict core.Dict) (int, bool) {
	if l, ok := dict.Int("Length"); ok && l >= 0 {
		return int(l), true
	}
	if _, filtered := dict["Filter"]; filtered {
		return 0, false
	}
	w, ok1 := dict.Int("Width")
	h, ok2 := dict.Int("Height")
	if !ok1 || !ok2 || w <= 0 || h <= 0 {
		return 0, false
	}
	bpc, _ := dict.Int("BitsPerComponent")
	comps := int64(1)
	if mask, _ := dict.Bool("ImageMask"); mask {
		bpc = 1
	} else {
		switch cs := dict["ColorSpace"].(type) {
		case core.Name:
			switch cs {
			case "DeviceRGB", "CalRGB", "Lab":
				comps = 3
			case "DeviceCMYK":
				comps = 4
			case "DeviceGray", "CalGray", "Indexed":
			default:
				return 0, false
			}
		case core.Array:
			// Indexed color spaces have one component per sample.
			if n, ok := cs.At(0).(core.Name); !ok || n != "Indexed" {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	if bpc <= 0 {
		bpc = 8
	}
	return int((w*comps*bpc + 7) / 8 * h), true
}

// skipWhitespace advances past PDF whitespace characters.
func (p *Parser) skipWhitespace() {
	for p.pos < len(p.data) && isWhitespace(p.data[p.pos]) {
		p.pos++
	}
}

func (p *Parser) skipComment() {
	for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
		p.pos++
	}
}

func (p *Parser) skipWhitespaceAndComments() {
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) || p.data[p.pos] != '%' {
			return
		}
		p.skipComment()
	}
}

// Helper functions

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

// isLetter reports whether c is an ASCII letter.
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isDelimiter reports whether c is a PDF delimiter character.
func isDelimiter(c byte) bool {
	return c == '(' || c == ')' || c == '<' || c == '>' ||
		c == '[' || c == ']' || c == '{' || c == '}' ||
		c == '/' || c == '%'
}

// isRegular reports whether c can be part of an operator.
func isRegular(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c)
}

func isNumberStart(c byte) bool {
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

// isHexDigit reports whether c is a hexadecimal digit.
func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// hexValue returns the numeric value of a hexadecimal digit.
func hexValue(c byte) byte {
	if c >= '0' && c <= '9' {
		return c - '0'
	}
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 10
	}
	if c >= 'A' && c <= 'F' {
		return c - 'A' + 10
	}
	return 0
}
