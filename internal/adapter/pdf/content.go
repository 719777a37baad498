package pdf

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
)

// kerningSpace is the TJ displacement (thousandths of an em) past which a
// gap is treated as a word break.
const kerningSpace = -180

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokName
	tokArrayStart
	tokArrayEnd
	tokDictStart
	tokDictEnd
	tokOperator
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type operand struct {
	kind  tokenKind
	text  string
	num   float64
	array []operand
}

// ParseContentText pulls the text shown by a decoded page content stream.
// Strings are decoded as PDFDocEncoding, or UTF-16BE when they carry a byte
// order mark. Text positioning operators become line or word breaks.
func ParseContentText(r io.Reader) (string, error) {
	s := &scanner{r: bufio.NewReader(r)}
	var out strings.Builder
	var operands []operand
	var arrays [][]operand
	lastY, haveY := 0.0, false

	newline := func() {
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}
	}
	space := func() {
		if str := out.String(); len(str) > 0 && !strings.HasSuffix(str, " ") && !strings.HasSuffix(str, "\n") {
			out.WriteByte(' ')
		}
	}

	for {
		tok, err := s.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		if tok.kind != tokOperator {
			op := operand{kind: tok.kind, text: tok.text, num: tok.num}
			switch tok.kind {
			case tokArrayStart:
				arrays = append(arrays, nil)
			case tokArrayEnd:
				if len(arrays) == 0 {
					continue
				}
				arr := arrays[len(arrays)-1]
				arrays = arrays[:len(arrays)-1]
				op = operand{kind: tokArrayStart, array: arr}
				if len(arrays) > 0 {
					arrays[len(arrays)-1] = append(arrays[len(arrays)-1], op)
				} else {
					operands = append(operands, op)
				}
			default:
				if len(arrays) > 0 {
					arrays[len(arrays)-1] = append(arrays[len(arrays)-1], op)
				} else {
					operands = append(operands, op)
				}
			}
			continue
		}

		switch tok.text {
		case "Tj":
			if str, ok := lastString(operands); ok {
				out.WriteString(str)
			}
		case "'", "\"":
			newline()
			if str, ok := lastString(operands); ok {
				out.WriteString(str)
			}
		case "TJ":
			if len(operands) > 0 && operands[len(operands)-1].kind == tokArrayStart {
				for _, el := range operands[len(operands)-1].array {
					switch el.kind {
					case tokString:
						out.WriteString(decodeString(el.text))
					case tokNumber:
						if el.num < kerningSpace {
							space()
						}
					}
				}
			}
		case "T*":
			newline()
		case "Td", "TD":
			if len(operands) >= 2 && operands[len(operands)-1].num != 0 {
				newline()
			} else {
				space()
			}
		case "Tm":
			if len(operands) >= 6 {
				y := operands[len(operands)-1].num
				if haveY && y != lastY {
					newline()
				} else {
					space()
				}
				lastY, haveY = y, true
			}
		case "ET":
			newline()
		case "BI":
			if err := s.skipInlineImage(); err != nil {
				return "", err
			}
		}
		operands = operands[:0]
	}

	return tidy(out.String()), nil
}

func lastString(ops []operand) (string, bool) {
	if len(ops) == 0 || ops[len(ops)-1].kind != tokString {
		return "", false
	}
	return decodeString(ops[len(ops)-1].text), true
}

// decodeString maps raw string bytes to text, dropping control bytes.
func decodeString(raw string) string {
	b := []byte(raw)
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}

	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\t' || c == '\n':
			sb.WriteByte(' ')
		case c < 0x20 || c == 0x7F:
		default:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}

// tidy collapses runs of spaces, trims every line and keeps at most one
// blank line between paragraphs.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 || len(out) == 0 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

type scanner struct {
	r *bufio.Reader
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (s *scanner) next() (token, error) {
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return token{}, err
		}
		switch {
		case isWhite(c):
			continue
		case c == '%':
			if _, err := s.r.ReadString('\n'); err != nil && err != io.EOF {
				return token{}, err
			}
			continue
		case c == '(':
			str, err := s.literal()
			return token{kind: tokString, text: str}, err
		case c == '<':
			if p, _ := s.r.Peek(1); len(p) == 1 && p[0] == '<' {
				s.r.ReadByte()
				return token{kind: tokDictStart}, nil
			}
			str, err := s.hex()
			return token{kind: tokString, text: str}, err
		case c == '>':
			if p, _ := s.r.Peek(1); len(p) == 1 && p[0] == '>' {
				s.r.ReadByte()
			}
			return token{kind: tokDictEnd}, nil
		case c == '[':
			return token{kind: tokArrayStart}, nil
		case c == ']':
			return token{kind: tokArrayEnd}, nil
		case c == '{' || c == '}':
			continue
		case c == '/':
			name := s.regular()
			return token{kind: tokName, text: name}, nil
		default:
			s.r.UnreadByte()
			word := s.regular()
			if n, err := strconv.ParseFloat(word, 64); err == nil {
				return token{kind: tokNumber, num: n}, nil
			}
			return token{kind: tokOperator, text: word}, nil
		}
	}
}

func (s *scanner) regular() string {
	var sb strings.Builder
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			break
		}
		if isWhite(c) || isDelim(c) {
			s.r.UnreadByte()
			break
		}
		sb.WriteByte(c)
	}
	if sb.Len() == 0 {
		// a lone delimiter; consume it so scanning always advances
		c, _ := s.r.ReadByte()
		return string(c)
	}
	return sb.String()
}

func (s *scanner) literal() (string, error) {
	var buf bytes.Buffer
	depth := 1
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return buf.String(), nil
		}
		switch c {
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return buf.String(), nil
			}
			buf.WriteByte(c)
		case '\\':
			e, err := s.r.ReadByte()
			if err != nil {
				return buf.String(), nil
			}
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if p, _ := s.r.Peek(1); len(p) == 1 && p[0] == '\n' {
					s.r.ReadByte()
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2; i++ {
						p, _ := s.r.Peek(1)
						if len(p) == 0 || p[0] < '0' || p[0] > '7' {
							break
						}
						s.r.ReadByte()
						v = v*8 + int(p[0]-'0')
					}
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(e)
				}
			}
		default:
			buf.WriteByte(c)
		}
	}
}

func (s *scanner) hex() (string, error) {
	var digits []byte
	for {
		c, err := s.r.ReadByte()
		if err != nil || c == '>' {
			break
		}
		if isWhite(c) {
			continue
		}
		digits = append(digits, c)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return string(out), nil
}

// skipInlineImage discards raw image bytes up to and including "EI".
func (s *scanner) skipInlineImage() error {
	var prev, cur byte = ' ', ' '
	for {
		c, err := s.r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if isWhite(prev) && cur == 'E' && c == 'I' {
			p, _ := s.r.Peek(1)
			if len(p) == 0 || isWhite(p[0]) {
				return nil
			}
		}
		prev, cur = cur, c
	}
}
