package typesystem

import (
	"fmt"
	"strings"
)

// ParseType reads the textual form produced by Type.String. A bare "?" at the
// top level is the open placeholder; inside generic arguments it is the
// unbound wildcard. Names listed in typeVars parse as type variables.
func ParseType(s string, typeVars ...TTypeVar) (Type, error) {
	p := &typeParser{src: s, vars: make(map[string]TTypeVar, len(typeVars))}
	for _, tv := range typeVars {
		p.vars[tv.Name] = tv
	}
	t, err := p.parseType(false)
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// MustParseType is ParseType that panics on malformed input. Intended for
// tests and package-level tables.
func MustParseType(s string, typeVars ...TTypeVar) Type {
	t, err := ParseType(s, typeVars...)
	if err != nil {
		panic(err)
	}
	return t
}

var placeholderAliases = map[string]Type{
	"unknown":         Unknown,
	"unknown_object":  UnknownObject,
	"unknown_array":   UnknownArray,
	"narrow":          Narrow,
	"narrow_numbers":  NarrowNumbers,
	"narrow_integral": NarrowIntegral,
	"wide":            Wide,
	"int_float":       IntFloat,
	"int_boolean":     IntBoolean,
	"byte_boolean":    ByteBoolean,
}

type typeParser struct {
	src  string
	pos  int
	vars map[string]TTypeVar
}

func (p *typeParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("type %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *typeParser) skipSpaces() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpaces()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) ident() string {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' || c == '$' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parseType(inGeneric bool) (Type, error) {
	base, err := p.parseBase(inGeneric)
	if err != nil {
		return nil, err
	}
	for p.accept("[]") {
		base = TArray{Elem: base}
	}
	return base, nil
}

func (p *typeParser) parseBase(inGeneric bool) (Type, error) {
	if p.accept("?") {
		return p.parseQuestion(inGeneric)
	}
	name := p.ident()
	if name == "" {
		return nil, p.errorf("type name expected")
	}
	if alias, ok := placeholderAliases[name]; ok {
		return alias, nil
	}
	if k, ok := KindByName(name); ok && k != KindObject && k != KindArray {
		return Prim(k), nil
	}
	if tv, ok := p.vars[name]; ok {
		return tv, nil
	}
	obj := TObject{Name: name}
	if p.accept("<") {
		for {
			arg, err := p.parseType(true)
			if err != nil {
				return nil, err
			}
			obj.Generics = append(obj.Generics, arg)
			if p.accept(">") {
				break
			}
			if !p.accept(",") {
				return nil, p.errorf("',' or '>' expected")
			}
		}
	}
	return obj, nil
}

func (p *typeParser) parseQuestion(inGeneric bool) (Type, error) {
	if p.accept("extends") {
		inner, err := p.parseType(true)
		if err != nil {
			return nil, err
		}
		return TWildcard{Bound: WildcardExtends, Inner: inner}, nil
	}
	if p.accept("super") {
		inner, err := p.parseType(true)
		if err != nil {
			return nil, err
		}
		return TWildcard{Bound: WildcardSuper, Inner: inner}, nil
	}
	if p.peek() == '[' && !strings.HasPrefix(p.src[p.pos:], "[]") {
		p.pos++
		var kinds []PrimitiveKind
		for {
			name := p.ident()
			k, ok := KindByName(name)
			if !ok {
				return nil, p.errorf("unknown kind %q", name)
			}
			kinds = append(kinds, k)
			if p.accept("]") {
				break
			}
			if !p.accept(",") {
				return nil, p.errorf("',' or ']' expected")
			}
		}
		return UnknownOf(kinds...), nil
	}
	if inGeneric {
		return TWildcard{Bound: WildcardUnbound}, nil
	}
	return Unknown, nil
}

// ParseTypeVar reads a declaration such as "T" or "T extends java.lang.Number".
func ParseTypeVar(s string, scope ...TTypeVar) (TTypeVar, error) {
	name, rest, found := strings.Cut(strings.TrimSpace(s), " extends ")
	tv := TTypeVar{Name: strings.TrimSpace(name)}
	if tv.Name == "" {
		return tv, fmt.Errorf("type variable %q: name expected", s)
	}
	if !found {
		return tv, nil
	}
	for _, part := range strings.Split(rest, "&") {
		ext, err := ParseType(strings.TrimSpace(part), scope...)
		if err != nil {
			return tv, err
		}
		tv.Extends = append(tv.Extends, ext)
	}
	return tv, nil
}
