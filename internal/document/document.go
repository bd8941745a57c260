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

/*
Package document parses the small hierarchical text format used by root
signature files:

	document  := { element }
	element   := name [ "{" { attribute | element } "}" ]
	attribute := name [ "=" value ]
	value     := quoted-string | name

Comments start with "//" and run to the end of the line.
*/
package document

import (
	"bytes"
	"fmt"
)

type Attribute struct {
	Name  string
	Value string

	Line, Column int
}

type Element struct {
	Name       string
	Attributes []Attribute
	Children   []Element

	Line, Column int
}

type Document struct {
	Elements []Element
}

type Error struct {
	Line, Column int
	Message      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func position(src []byte, offset int) (int, int) {
	offset = min(offset, len(src))
	line := 1 + bytes.Count(src[:offset], []byte{'\n'})
	column := offset + 1
	if i := bytes.LastIndexByte(src[:offset], '\n'); i >= 0 {
		column = offset - i
	}
	return line, column
}

// Parse parses data into a Document. Like parse.NewInputBytes it may write a NUL
// byte into data's spare capacity.
func Parse(data []byte) (*Document, error) {
	p := parser{lex: newLexer(data)}
	doc := Document{}

	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.t {
		case tokenEOF:
			return &doc, nil
		case tokenName:
			e, err := p.parseElement(tok)
			if err != nil {
				return nil, err
			}
			doc.Elements = append(doc.Elements, e)
		default:
			return nil, p.errorf(tok, "Expecting element name, found %s", tok)
		}
	}
}

type parser struct {
	lex    *lexer
	peeked *token
}

func (p *parser) next() (token, error) {
	if p.peeked != nil {
		tok := *p.peeked
		p.peeked = nil
		return tok, nil
	}
	return p.lex.next()
}

func (p *parser) peek() (token, error) {
	if p.peeked == nil {
		tok, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &tok
	}
	return *p.peeked, nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	line, column := position(p.lex.src, tok.offset)
	return &Error{Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseElement(name token) (Element, error) {
	e := Element{Name: name.text}
	e.Line, e.Column = position(p.lex.src, name.offset)

	tok, err := p.peek()
	if err != nil {
		return e, err
	}
	if tok.t != tokenOpen {
		return e, nil
	}
	p.peeked = nil

	for {
		tok, err := p.next()
		if err != nil {
			return e, err
		}

		switch tok.t {
		case tokenClose:
			return e, nil

		case tokenName:
			following, err := p.peek()
			if err != nil {
				return e, err
			}
			switch following.t {
			case tokenOpen:
				child, err := p.parseElement(tok)
				if err != nil {
					return e, err
				}
				e.Children = append(e.Children, child)
			case tokenEquals:
				p.peeked = nil
				value, err := p.next()
				if err != nil {
					return e, err
				}
				if value.t != tokenName && value.t != tokenString {
					return e, p.errorf(value, "Expecting value for attribute %q, found %s", tok.text, value)
				}
				e.Attributes = append(e.Attributes, p.attribute(tok, value.text))
			default:
				e.Attributes = append(e.Attributes, p.attribute(tok, ""))
			}

		case tokenEOF:
			return e, p.errorf(tok, "Unterminated element %q", e.Name)

		default:
			return e, p.errorf(tok, "Unexpected %s in element %q", tok, e.Name)
		}
	}
}

func (p *parser) attribute(name token, value string) Attribute {
	a := Attribute{Name: name.text, Value: value}
	a.Line, a.Column = position(p.lex.src, name.offset)
	return a
}
