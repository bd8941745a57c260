/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package document

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2"
)

type tokenType uint32

const (
	tokenEOF tokenType = iota
	tokenName
	tokenString
	tokenEquals
	tokenOpen
	tokenClose
)

type token struct {
	t      tokenType
	text   string
	offset int
}

func (t token) String() string {
	switch t.t {
	case tokenEOF:
		return "end of file"
	case tokenName:
		return fmt.Sprintf("name %q", t.text)
	case tokenString:
		return fmt.Sprintf("string %q", t.text)
	case tokenEquals:
		return "'='"
	case tokenOpen:
		return "'{'"
	case tokenClose:
		return "'}'"
	}
	return "unknown token"
}

type lexer struct {
	in     *parse.Input
	src    []byte
	offset int
}

func newLexer(data []byte) *lexer {
	return &lexer{
		in:  parse.NewInputBytes(data),
		src: data,
	}
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '.', c == '-', c == ':':
		return true
	}
	return c >= 0x80
}

// eof is only valid when called at the start of a lexeme or after Peek(0) returned 0.
func (l *lexer) eof() bool {
	return l.in.Peek(0) == 0 && l.in.Err() != nil
}

func (l *lexer) skip() {
	l.offset += l.in.Pos()
	l.in.Skip()
}

func (l *lexer) shift() (string, int) {
	offset := l.offset
	lexeme := l.in.Shift()
	l.offset += len(lexeme)
	return string(lexeme), offset
}

func (l *lexer) errorf(offset int, format string, args ...any) error {
	line, column := position(l.src, offset)
	return &Error{Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) skipSpaceAndComments() {
	for {
		c := l.in.Peek(0)
		switch {
		case c == ' ', c == '\t', c == '\r', c == '\n':
			l.in.Move(1)
		case c == '/' && l.in.Peek(1) == '/':
			for c := l.in.Peek(0); c != '\n' && !(c == 0 && l.in.Err() != nil); c = l.in.Peek(0) {
				l.in.Move(1)
			}
		default:
			l.skip()
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	if l.eof() {
		return token{t: tokenEOF, offset: l.offset}, nil
	}

	c := l.in.Peek(0)
	switch {
	case c == '{', c == '}', c == '=':
		l.in.Move(1)
		text, offset := l.shift()
		t := tokenEquals
		if c == '{' {
			t = tokenOpen
		} else if c == '}' {
			t = tokenClose
		}
		return token{t: t, text: text, offset: offset}, nil

	case c == '"':
		return l.lexString()

	case isNameByte(c):
		for isNameByte(l.in.Peek(0)) {
			l.in.Move(1)
		}
		text, offset := l.shift()
		return token{t: tokenName, text: text, offset: offset}, nil
	}

	if c == 0 {
		return token{}, l.errorf(l.offset, "Unexpected NUL byte")
	}
	return token{}, l.errorf(l.offset, "Unexpected character %q", rune(c))
}

func (l *lexer) lexString() (token, error) {
	start := l.offset
	sb := strings.Builder{}
	l.in.Move(1)

	for {
		c := l.in.Peek(0)
		switch {
		case c == '"':
			l.in.Move(1)
			l.shift()
			return token{t: tokenString, text: sb.String(), offset: start}, nil

		case c == '\\':
			escaped := l.in.Peek(1)
			if escaped != '"' && escaped != '\\' {
				return token{}, l.errorf(start+l.in.Pos(), "Invalid escape sequence in string")
			}
			sb.WriteByte(escaped)
			l.in.Move(2)

		case c == '\n':
			return token{}, l.errorf(start, "Newline in string")

		case c == 0 && l.in.Err() != nil:
			return token{}, l.errorf(start, "Unterminated string")

		default:
			sb.WriteByte(c)
			l.in.Move(1)
		}
	}
}
