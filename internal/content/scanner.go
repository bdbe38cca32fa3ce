package content

import (
	"bytes"
	"fmt"
)

// SyntaxError reports malformed content stream data.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("content stream: %s at offset %d", e.Msg, e.Offset)
}

type byteClass uint8

const (
	regular byteClass = iota
	space
	delimiter
)

var class [256]byteClass

func init() {
	for _, c := range []byte{0, '\t', '\n', '\f', '\r', ' '} {
		class[c] = space
	}
	for _, c := range []byte("()<>[]{}/%") {
		class[c] = delimiter
	}
}

type scanner struct {
	data []byte
	pos  int
}

// Decode splits a content stream into its operator sequence. Comments are
// dropped.
//
// Operands that are not followed by an operator, unbalanced brackets and
// unterminated strings are reported as a *SyntaxError.
func Decode(data []byte) ([]Operation, error) {
	s := &scanner{data: data}
	var ops []Operation
	var args []Operand
	for {
		s.skipSpace()
		if s.pos >= len(s.data) {
			break
		}
		start := s.pos
		c := s.data[s.pos]
		switch {
		case c == '/':
			s.pos++
			s.skipRegular()
			args = append(args, s.operand(KindName, start))
		case c == '(':
			if err := s.skipString(); err != nil {
				return nil, err
			}
			args = append(args, s.operand(KindString, start))
		case c == '<' && s.peek(1) == '<':
			if err := s.skipComposite(); err != nil {
				return nil, err
			}
			args = append(args, s.operand(KindDict, start))
		case c == '<':
			if err := s.skipHexString(); err != nil {
				return nil, err
			}
			args = append(args, s.operand(KindHexString, start))
		case c == '[':
			if err := s.skipComposite(); err != nil {
				return nil, err
			}
			args = append(args, s.operand(KindArray, start))
		case class[c] == delimiter:
			return nil, s.errorf(start, "unexpected %q", c)
		default:
			s.skipRegular()
			word := string(s.data[start:s.pos])
			switch {
			case isNumber(word):
				args = append(args, Operand{Kind: KindNumber, Raw: word})
			case word == "true" || word == "false":
				args = append(args, Operand{Kind: KindBool, Raw: word})
			case word == "null":
				args = append(args, Operand{Kind: KindNull, Raw: word})
			case word == "BI":
				if len(args) > 0 {
					return nil, s.errorf(start, "operands before BI")
				}
				op, err := s.inlineImage()
				if err != nil {
					return nil, err
				}
				ops = append(ops, op)
			default:
				ops = append(ops, Operation{Name: word, Operands: args})
				args = nil
			}
		}
	}
	if len(args) > 0 {
		return nil, s.errorf(s.pos, "%d operand(s) without operator", len(args))
	}
	return ops, nil
}

func (s *scanner) operand(kind Kind, start int) Operand {
	return Operand{Kind: kind, Raw: string(s.data[start:s.pos])}
}

func (s *scanner) errorf(offset int, format string, args ...any) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.data) {
		return s.data[s.pos+n]
	}
	return 0
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		if class[c] != space {
			return
		}
		s.pos++
	}
}

func (s *scanner) skipRegular() {
	for s.pos < len(s.data) && class[s.data[s.pos]] == regular {
		s.pos++
	}
}

// skipString moves past a literal string, honouring nested parentheses
// and backslash escapes.
func (s *scanner) skipString() error {
	start := s.pos
	s.pos++ // '('
	depth := 1
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case '\\':
			s.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				s.pos++
				return nil
			}
		}
		s.pos++
	}
	return s.errorf(start, "unterminated string")
}

func (s *scanner) skipHexString() error {
	start := s.pos
	s.pos++ // '<'
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch {
		case c == '>':
			return nil
		case class[c] == space, isHex(c):
		default:
			return s.errorf(s.pos-1, "invalid hex digit %q", c)
		}
	}
	return s.errorf(start, "unterminated hex string")
}

// skipComposite moves past an array or dictionary, including anything
// nested inside it.
func (s *scanner) skipComposite() error {
	start := s.pos
	var stack []byte
	for {
		s.skipSpace()
		if s.pos >= len(s.data) {
			return s.errorf(start, "unterminated %s", compositeName(stack))
		}
		c := s.data[s.pos]
		switch {
		case c == '[':
			stack = append(stack, '[')
			s.pos++
		case c == '<' && s.peek(1) == '<':
			stack = append(stack, '<')
			s.pos += 2
		case c == ']' || (c == '>' && s.peek(1) == '>'):
			want := byte('[')
			width := 1
			if c == '>' {
				want = '<'
				width = 2
			}
			if len(stack) == 0 || stack[len(stack)-1] != want {
				return s.errorf(s.pos, "unbalanced %q", c)
			}
			stack = stack[:len(stack)-1]
			s.pos += width
			if len(stack) == 0 {
				return nil
			}
		case c == '(':
			if err := s.skipString(); err != nil {
				return err
			}
		case c == '<':
			if err := s.skipHexString(); err != nil {
				return err
			}
		case c == '/':
			s.pos++
			s.skipRegular()
		case class[c] == delimiter:
			return s.errorf(s.pos, "unexpected %q", c)
		default:
			s.skipRegular()
		}
	}
}

func compositeName(stack []byte) string {
	if len(stack) > 0 && stack[len(stack)-1] == '<' {
		return "dictionary"
	}
	return "array"
}

// inlineImage reads the parameters and sample data following BI.
func (s *scanner) inlineImage() (Operation, error) {
	op := Operation{Name: "BI"}
	for {
		s.skipSpace()
		if s.pos >= len(s.data) {
			return op, s.errorf(s.pos, "inline image without ID")
		}
		start := s.pos
		c := s.data[s.pos]
		switch {
		case c == '/':
			s.pos++
			s.skipRegular()
			op.Operands = append(op.Operands, s.operand(KindName, start))
			continue
		case c == '(':
			if err := s.skipString(); err != nil {
				return op, err
			}
			op.Operands = append(op.Operands, s.operand(KindString, start))
			continue
		case c == '[' || (c == '<' && s.peek(1) == '<'):
			kind := KindArray
			if c == '<' {
				kind = KindDict
			}
			if err := s.skipComposite(); err != nil {
				return op, err
			}
			op.Operands = append(op.Operands, s.operand(kind, start))
			continue
		case c == '<':
			if err := s.skipHexString(); err != nil {
				return op, err
			}
			op.Operands = append(op.Operands, s.operand(KindHexString, start))
			continue
		case class[c] == delimiter:
			return op, s.errorf(start, "unexpected %q in inline image", c)
		}
		s.skipRegular()
		word := string(s.data[start:s.pos])
		if word != "ID" {
			var kind Kind
			switch {
			case isNumber(word):
				kind = KindNumber
			case word == "true" || word == "false":
				kind = KindBool
			case word == "null":
				kind = KindNull
			default:
				return op, s.errorf(start, "unexpected %q in inline image", word)
			}
			op.Operands = append(op.Operands, Operand{Kind: kind, Raw: word})
			continue
		}
		if len(op.Operands)%2 != 0 {
			return op, s.errorf(start, "odd number of inline image parameters")
		}
		// exactly one white-space byte separates ID from the data
		s.pos++
		break
	}

	dataStart := s.pos
	for i := dataStart; i+1 < len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' {
			continue
		}
		if i > dataStart && class[s.data[i-1]] != space {
			continue
		}
		if i+2 < len(s.data) && class[s.data[i+2]] == regular {
			continue
		}
		op.Data = bytes.Clone(s.data[dataStart:i])
		s.pos = i + 2
		return op, nil
	}
	return op, s.errorf(dataStart, "inline image without EI")
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// isNumber reports whether word is a PDF integer or real:
// an optional sign, digits and at most one decimal point.
func isNumber(word string) bool {
	if word == "" {
		return false
	}
	i := 0
	if word[0] == '+' || word[0] == '-' {
		i++
	}
	digits, dots := 0, 0
	for ; i < len(word); i++ {
		switch c := word[i]; {
		case c == '.':
			dots++
		case '0' <= c && c <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
