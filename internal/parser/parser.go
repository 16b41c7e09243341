package parser

import (
	"io"
	"strconv"
	"strings"

	"crtkernel/internal/value"
)

// Parse reads a complete source string into an Expression, per the
// grammar in SPEC_FULL.md §8: a source parses as a sequence of parts;
// a single part is returned as-is, multiple parts are wrapped in a
// synthetic Table. Empty source is None.
func Parse(src string) (value.Expression, error) {
	return ParseReader(strings.NewReader(src))
}

// ParseReader is the streaming form of Parse.
func ParseReader(r io.Reader) (value.Expression, error) {
	parts, err := ParseTopLevelParts(r)
	if err != nil {
		return nil, err
	}
	switch len(parts) {
	case 0:
		return value.NewNone(), nil
	case 1:
		return parts[0], nil
	default:
		return value.NewTable(parts...), nil
	}
}

// ParseTopLevelParts parses r as a sequence of top-level parts without
// the single-part collapsing Parse applies, for callers such as a rules
// file loader that need every top-level part individually regardless of
// how many there are.
func ParseTopLevelParts(r io.Reader) ([]value.Expression, error) {
	s := newScanner(r)
	parts, err := parseParts(s)
	if err != nil {
		return nil, err
	}
	tok, err := s.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != EOF {
		return nil, &ParseError{Offset: tok.Offset, Msg: "unexpected ')'"}
	}
	return parts, nil
}

// parseParts consumes parts (each `[key '='] value`) separated by
// whitespace until EOF or a closing ')', which it leaves unconsumed,
// per `expr := WS* part (WS+ part)* WS*`.
func parseParts(s *scanner) ([]value.Expression, error) {
	var parts []value.Expression
	for {
		tok, err := s.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == EOF || tok.Kind == RParen {
			return parts, nil
		}
		part, err := parsePart(s)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
}

// parsePart parses one `[key '='] value`: a leading Symbol token
// followed by Equals is consumed as the key before the value itself.
func parsePart(s *scanner) (value.Expression, error) {
	key := ""
	first, err := s.peek()
	if err != nil {
		return nil, err
	}
	if first.Kind == Symbol {
		second, err := s.peekAt(1)
		if err != nil {
			return nil, err
		}
		if second.Kind == Equals {
			s.next() // the symbol
			s.next() // the '='
			key = first.Text
		}
	}
	v, err := parseValue(s)
	if err != nil {
		return nil, err
	}
	if key != "" {
		v = v.Keyed(key)
	}
	return v, nil
}

// parseValue parses `number | string | symbol | '(' expr ')'`.
func parseValue(s *scanner) (value.Expression, error) {
	tok, err := s.next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case Number:
		return parseNumber(tok)
	case String:
		return value.NewStr(tok.Text), nil
	case Symbol:
		return value.NewSym(tok.Text), nil
	case LParen:
		parts, err := parseParts(s)
		if err != nil {
			return nil, err
		}
		closing, err := s.next()
		if err != nil {
			return nil, err
		}
		if closing.Kind != RParen {
			return nil, &ParseError{Offset: closing.Offset, Msg: "expected ')'"}
		}
		return value.NewTable(parts...), nil
	case RParen:
		return nil, &ParseError{Offset: tok.Offset, Msg: "unexpected ')'"}
	case EOF:
		return nil, &ParseError{Offset: tok.Offset, Msg: "unexpected end of input"}
	default:
		return nil, &ParseError{Offset: tok.Offset, Msg: "unexpected token"}
	}
}

func parseNumber(tok Token) (value.Expression, error) {
	if isFloatLiteral(tok.Text) {
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, &ParseError{Offset: tok.Offset, Msg: "malformed float literal: " + tok.Text}
		}
		return value.NewF64(f), nil
	}
	n, err := strconv.ParseInt(tok.Text, 10, 32)
	if err != nil {
		return nil, &ParseError{Offset: tok.Offset, Msg: "malformed integer literal: " + tok.Text}
	}
	return value.NewI32(int32(n)), nil
}
