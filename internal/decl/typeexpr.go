package decl

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/funvibe/traitkit/internal/typesystem"
)

// ParseTypeExpr parses the small type expression syntax used by declaration
// unit files:
//
//	Int                  constant
//	a                    variable (lowercase initial)
//	List a               application
//	Map k (List v)       nested application
//	(Int, Bool)          tuple
//	(a, a) -> Bool       function
//
// This syntax exists only for the CLI driver; the engine API takes
// typesystem values directly.
func ParseTypeExpr(src string) (typesystem.Type, error) {
	p := &typeParser{tokens: tokenizeTypeExpr(src), src: src}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, fmt.Errorf("type %q: unexpected trailing %q", src, p.peek())
	}
	return t, nil
}

func tokenizeTypeExpr(src string) []string {
	var tokens []string
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')' || c == ',':
			tokens = append(tokens, string(c))
			i++
		case c == '-' && i+1 < len(src) && src[i+1] == '>':
			tokens = append(tokens, "->")
			i += 2
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(" \t(),", rune(src[j])) &&
				!(src[j] == '-' && j+1 < len(src) && src[j+1] == '>') {
				j++
			}
			tokens = append(tokens, src[i:j])
			i = j
		}
	}
	return tokens
}

type typeParser struct {
	tokens []string
	pos    int
	src    string
}

func (p *typeParser) eof() bool { return p.pos >= len(p.tokens) }

func (p *typeParser) peek() string {
	if p.eof() {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *typeParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *typeParser) expect(tok string) error {
	if p.peek() != tok {
		return fmt.Errorf("type %q: expected %q, got %q", p.src, tok, p.peek())
	}
	p.pos++
	return nil
}

// parseType handles function arrows at the lowest precedence.
func (p *typeParser) parseType() (typesystem.Type, error) {
	left, err := p.parseApp()
	if err != nil {
		return nil, err
	}
	if p.peek() != "->" {
		return left, nil
	}
	p.next()
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	// A parenthesized left side supplies the parameter list; a bare atom is a
	// single parameter.
	switch l := left.(type) {
	case typesystem.TTuple:
		return typesystem.TFunc{Params: l.Elements, ReturnType: ret}, nil
	default:
		return typesystem.TFunc{Params: []typesystem.Type{left}, ReturnType: ret}, nil
	}
}

// parseApp parses one or more atoms; the first is the constructor.
func (p *typeParser) parseApp() (typesystem.Type, error) {
	head, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	var args []typesystem.Type
	for !p.eof() {
		tok := p.peek()
		if tok == ")" || tok == "," || tok == "->" {
			break
		}
		arg, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if len(args) == 0 {
		return head, nil
	}
	return typesystem.TApp{Constructor: head, Args: args}, nil
}

func (p *typeParser) parseAtom() (typesystem.Type, error) {
	tok := p.next()
	switch tok {
	case "":
		return nil, fmt.Errorf("type %q: unexpected end of input", p.src)
	case "(":
		first, err := p.parseType()
		if err != nil {
			return nil, err
		}
		elems := []typesystem.Type{first}
		for p.peek() == "," {
			p.next()
			e, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		if len(elems) == 1 {
			// Parentheses used for grouping, not a tuple
			return elems[0], nil
		}
		return typesystem.TTuple{Elements: elems}, nil
	case ")", ",", "->":
		return nil, fmt.Errorf("type %q: unexpected %q", p.src, tok)
	default:
		r := rune(tok[0])
		if unicode.IsLower(r) {
			return typesystem.TVar{Name: tok}, nil
		}
		return typesystem.TCon{Name: tok}, nil
	}
}
