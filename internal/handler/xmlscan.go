package handler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/docsync/docsync/internal/doctree"
)

// The stdlib xml.Decoder folds CDATA sections into ordinary character
// data, which loses the distinction the canonical tree has to keep. This
// scanner tokenizes the small XML subset the engine round-trips: elements,
// attributes, text, CDATA, comments, and it skips declarations, doctypes
// and processing instructions.

type xmlTokenKind int

const (
	xmlTokEOF xmlTokenKind = iota
	xmlTokStart
	xmlTokEnd
	xmlTokText
	xmlTokCData
	xmlTokComment
)

type xmlToken struct {
	kind        xmlTokenKind
	name        string
	attrs       []doctree.Attr
	text        string
	selfClosing bool
	offset      int
}

type xmlScanner struct {
	src string
	pos int
}

func newXMLScanner(src string) *xmlScanner {
	return &xmlScanner{src: src}
}

func (s *xmlScanner) errAt(offset int, format string, args ...any) *ParseError {
	line, col := lineCol(s.src, offset)
	return &ParseError{
		Format: "xml",
		Reason: fmt.Sprintf(format, args...),
		Line:   line,
		Column: col,
		Offset: offset,
	}
}

func (s *xmlScanner) next() (xmlToken, *ParseError) {
	if s.pos >= len(s.src) {
		return xmlToken{kind: xmlTokEOF, offset: s.pos}, nil
	}
	start := s.pos
	if s.src[s.pos] != '<' {
		return s.scanText(start)
	}
	switch {
	case strings.HasPrefix(s.src[s.pos:], "<!--"):
		return s.scanComment(start)
	case strings.HasPrefix(s.src[s.pos:], "<![CDATA["):
		return s.scanCData(start)
	case strings.HasPrefix(s.src[s.pos:], "<!"):
		if err := s.skipDoctype(); err != nil {
			return xmlToken{}, err
		}
		return s.next()
	case strings.HasPrefix(s.src[s.pos:], "<?"):
		end := strings.Index(s.src[s.pos:], "?>")
		if end < 0 {
			return xmlToken{}, s.errAt(start, "unterminated processing instruction")
		}
		s.pos += end + 2
		return s.next()
	case strings.HasPrefix(s.src[s.pos:], "</"):
		return s.scanEndTag(start)
	default:
		return s.scanStartTag(start)
	}
}

func (s *xmlScanner) scanText(start int) (xmlToken, *ParseError) {
	end := strings.IndexByte(s.src[s.pos:], '<')
	if end < 0 {
		end = len(s.src) - s.pos
	}
	raw := s.src[s.pos : s.pos+end]
	s.pos += end
	decoded, err := decodeXMLEntities(raw, s, start)
	if err != nil {
		return xmlToken{}, err
	}
	return xmlToken{kind: xmlTokText, text: decoded, offset: start}, nil
}

func (s *xmlScanner) scanComment(start int) (xmlToken, *ParseError) {
	body := s.src[s.pos+4:]
	end := strings.Index(body, "-->")
	if end < 0 {
		return xmlToken{}, s.errAt(start, "unterminated comment")
	}
	s.pos += 4 + end + 3
	return xmlToken{kind: xmlTokComment, text: body[:end], offset: start}, nil
}

func (s *xmlScanner) scanCData(start int) (xmlToken, *ParseError) {
	body := s.src[s.pos+9:]
	end := strings.Index(body, "]]>")
	if end < 0 {
		return xmlToken{}, s.errAt(start, "unterminated CDATA section")
	}
	s.pos += 9 + end + 3
	return xmlToken{kind: xmlTokCData, text: body[:end], offset: start}, nil
}

// skipDoctype consumes "<!DOCTYPE ...>" including an optional internal
// subset in square brackets.
func (s *xmlScanner) skipDoctype() *ParseError {
	start := s.pos
	depth := 0
	for i := s.pos; i < len(s.src); i++ {
		switch s.src[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '>':
			if depth <= 0 {
				s.pos = i + 1
				return nil
			}
		}
	}
	return s.errAt(start, "unterminated doctype declaration")
}

func (s *xmlScanner) scanEndTag(start int) (xmlToken, *ParseError) {
	s.pos += 2
	name, err := s.scanName()
	if err != nil {
		return xmlToken{}, err
	}
	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != '>' {
		return xmlToken{}, s.errAt(s.pos, "malformed closing tag </%s", name)
	}
	s.pos++
	return xmlToken{kind: xmlTokEnd, name: name, offset: start}, nil
}

func (s *xmlScanner) scanStartTag(start int) (xmlToken, *ParseError) {
	s.pos++ // consume '<'
	name, err := s.scanName()
	if err != nil {
		return xmlToken{}, err
	}
	tok := xmlToken{kind: xmlTokStart, name: name, offset: start}
	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			return xmlToken{}, s.errAt(start, "unterminated tag <%s", name)
		}
		switch s.src[s.pos] {
		case '>':
			s.pos++
			return tok, nil
		case '/':
			if !strings.HasPrefix(s.src[s.pos:], "/>") {
				return xmlToken{}, s.errAt(s.pos, "unexpected '/' in tag <%s", name)
			}
			s.pos += 2
			tok.selfClosing = true
			return tok, nil
		}
		attr, err := s.scanAttr()
		if err != nil {
			return xmlToken{}, err
		}
		tok.attrs = append(tok.attrs, attr)
	}
}

func (s *xmlScanner) scanAttr() (doctree.Attr, *ParseError) {
	name, err := s.scanName()
	if err != nil {
		return doctree.Attr{}, err
	}
	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != '=' {
		return doctree.Attr{}, s.errAt(s.pos, "attribute %q is missing a value", name)
	}
	s.pos++
	s.skipSpace()
	if s.pos >= len(s.src) || (s.src[s.pos] != '"' && s.src[s.pos] != '\'') {
		return doctree.Attr{}, s.errAt(s.pos, "attribute %q value must be quoted", name)
	}
	quote := s.src[s.pos]
	s.pos++
	valStart := s.pos
	end := strings.IndexByte(s.src[s.pos:], quote)
	if end < 0 {
		return doctree.Attr{}, s.errAt(valStart, "unterminated value for attribute %q", name)
	}
	raw := s.src[s.pos : s.pos+end]
	s.pos += end + 1
	decoded, perr := decodeXMLEntities(raw, s, valStart)
	if perr != nil {
		return doctree.Attr{}, perr
	}
	return doctree.Attr{Name: name, Value: decoded}, nil
}

func (s *xmlScanner) scanName() (string, *ParseError) {
	start := s.pos
	r, size := utf8.DecodeRuneInString(s.src[s.pos:])
	if size == 0 || !isXMLNameStart(r) {
		return "", s.errAt(start, "expected a name")
	}
	s.pos += size
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if !isXMLNameChar(r) {
			break
		}
		s.pos += size
	}
	return s.src[start:s.pos], nil
}

func (s *xmlScanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func isXMLNameStart(r rune) bool {
	return r == '_' || r == ':' || unicode.IsLetter(r)
}

func isXMLNameChar(r rune) bool {
	return isXMLNameStart(r) || r == '-' || r == '.' || unicode.IsDigit(r)
}

// decodeXMLEntities expands the predefined entities plus numeric character
// references. base is the offset of raw within the scanned source, used
// for error positions.
func decodeXMLEntities(raw string, s *xmlScanner, base int) (string, *ParseError) {
	if !strings.ContainsRune(raw, '&') {
		return raw, nil
	}
	var b strings.Builder
	for i := 0; i < len(raw); {
		c := raw[i]
		if c != '&' {
			b.WriteByte(c)
			i++
			continue
		}
		semi := strings.IndexByte(raw[i:], ';')
		if semi < 0 || semi > 32 {
			return "", s.errAt(base+i, "unterminated entity reference")
		}
		ref := raw[i+1 : i+semi]
		switch ref {
		case "amp":
			b.WriteByte('&')
		case "lt":
			b.WriteByte('<')
		case "gt":
			b.WriteByte('>')
		case "quot":
			b.WriteByte('"')
		case "apos":
			b.WriteByte('\'')
		default:
			if !strings.HasPrefix(ref, "#") {
				return "", s.errAt(base+i, "unknown entity &%s;", ref)
			}
			digits := ref[1:]
			radix := 10
			if strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X") {
				digits = digits[1:]
				radix = 16
			}
			n, err := strconv.ParseUint(digits, radix, 32)
			if err != nil || !utf8.ValidRune(rune(n)) {
				return "", s.errAt(base+i, "invalid character reference &%s;", ref)
			}
			b.WriteRune(rune(n))
		}
		i += semi + 1
	}
	return b.String(), nil
}
