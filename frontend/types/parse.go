package types

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/source"
)

// Parser reads type expressions such as
//
//	Integer | nil
//	Array[String]
//	(Integer, *String) -> Float
//	'a
//
// Variables named the same within one Parser are the same variable.
type Parser struct {
	fresher *Fresher
	vars    map[string]*TypeVar

	src string
	pos int
}

func NewParser(f *Fresher) *Parser {
	if f == nil {
		f = NewFresher()
	}
	return &Parser{fresher: f, vars: make(map[string]*TypeVar)}
}

// Parse reads a single type expression with a Parser of its own
func Parse(src string) (Type, error) {
	return NewParser(nil).Parse(src)
}

// MustParse is Parse for expressions known to be valid, like the ones in tests
func MustParse(src string) Type {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

func (p *Parser) Parse(src string) (Type, error) {
	p.src, p.pos = src, 0
	t, err := p.union()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return ilerr.New(ilerr.NewParse{
		Positioner:    source.NoRange,
		ParserMessage: fmt.Sprintf("type %q at %d: ", p.src, p.pos) + fmt.Sprintf(format, args...),
	})
}

func (p *Parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *Parser) peek(tok string) bool {
	p.skipSpace()
	return strings.HasPrefix(p.src[p.pos:], tok)
}

func (p *Parser) accept(tok string) bool {
	if p.peek(tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *Parser) expect(tok string) error {
	if !p.accept(tok) {
		return p.errorf("expected %q", tok)
	}
	return nil
}

func (p *Parser) union() (Type, error) {
	first, err := p.postfix()
	if err != nil {
		return nil, err
	}
	members := []Type{first}
	for p.accept("|") {
		next, err := p.postfix()
		if err != nil {
			return nil, err
		}
		members = append(members, next)
	}
	if len(members) == 1 {
		return first, nil
	}
	return NewUnion(members...), nil
}

func (p *Parser) postfix() (Type, error) {
	t, err := p.atom()
	if err != nil {
		return nil, err
	}
	if p.accept("?") {
		return Optional(t), nil
	}
	return t, nil
}

func (p *Parser) atom() (Type, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of type")
	}
	switch c := p.src[p.pos]; {
	case c == '(':
		return p.parenthesised()
	case c == '\'':
		p.pos++
		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected type variable name")
		}
		v, ok := p.vars[name]
		if !ok {
			v = p.fresher.FreshNamed(name)
			p.vars[name] = v
		}
		return v, nil
	case c == ':':
		p.pos++
		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected symbol name")
		}
		return SymLit(name), nil
	case c == '"':
		end := strings.IndexByte(p.src[p.pos+1:], '"')
		if end < 0 {
			return nil, p.errorf("unterminated string literal")
		}
		value := p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return StrLit(value), nil
	case c == '-' || unicode.IsDigit(rune(c)):
		return p.number()
	}

	name := p.ident()
	switch name {
	case "":
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	case "nil":
		return Nil, nil
	case "untyped":
		return Untyped, nil
	case "bool", "Bool":
		return Bool, nil
	case "true":
		return &Literal{Kind: TrueLiteral, Value: "true"}, nil
	case "false":
		return &Literal{Kind: FalseLiteral, Value: "false"}, nil
	case "Integer":
		return Integer, nil
	case "Float":
		return Float, nil
	case "String":
		return String, nil
	case "Symbol":
		return Symbol, nil
	}
	var args []Type
	if p.accept("[") {
		for {
			arg, err := p.union()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.accept(",") {
				break
			}
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
	}
	return NewClass(name, args...), nil
}

func (p *Parser) parenthesised() (Type, error) {
	p.pos++ // (
	fn := &FunctionType{}
	grouped := false
	if !p.peek(")") {
		for {
			if p.accept("*") {
				rest, err := p.union()
				if err != nil {
					return nil, err
				}
				fn.Rest = rest
			} else {
				param, err := p.union()
				if err != nil {
					return nil, err
				}
				fn.Params = append(fn.Params, param)
			}
			if !p.accept(",") {
				break
			}
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if !p.accept("->") {
		// plain grouping: (Integer | nil)
		if len(fn.Params) == 1 && fn.Rest == nil {
			grouped = true
		}
		if !grouped {
			return nil, p.errorf("expected '->' after parameter list")
		}
		return fn.Params[0], nil
	}
	ret, err := p.postfix()
	if err != nil {
		return nil, err
	}
	fn.Return = ret
	return fn, nil
}

func (p *Parser) number() (Type, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) && (unicode.IsDigit(rune(p.src[p.pos])) || p.src[p.pos] == '.' || p.src[p.pos] == '_') {
		if p.src[p.pos] == '.' {
			isFloat = true
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	if isFloat {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return nil, p.errorf("invalid float literal %q", text)
		}
		return &Literal{Kind: FloatLiteral, Value: text}, nil
	}
	if _, err := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 10, 64); err != nil {
		return nil, p.errorf("invalid integer literal %q", text)
	}
	return &Literal{Kind: IntLiteral, Value: strings.ReplaceAll(text, "_", "")}, nil
}

func (p *Parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		if c == ':' && p.pos+2 < len(p.src) && p.src[p.pos+1] == ':' && p.pos > start {
			p.pos += 2
			continue
		}
		break
	}
	return p.src[start:p.pos]
}
