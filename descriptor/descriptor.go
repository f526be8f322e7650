/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package descriptor parses and rewrites JVM type and method
// descriptors and the string-encoded owner.name(desc)ret targets used
// throughout mappings documents and mixin annotations. The grammar is:
//
//	type   := B|C|D|F|I|J|S|Z|V | L<internal>; | [<type>
//	method := ( <type>* ) <type>
//
// Every function here is pure: it never looks anything up in a
// Mappings or a Remapper, it only scans and substitutes strings. This
// mirrors Jacobin's own single-character type-tag switch in
// jvm/instantiate.go ("L", "[" vs "B","C","I","J","S","Z" vs "D","F"),
// generalized into a full scanner that also rewrites internal names.
package descriptor

import (
	"strings"

	"github.com/Weave-MC/mappings-util/mappingerrors"
)

// MapFunc substitutes an internal class name (e.g. "java/lang/String")
// with whatever the caller wants it renamed to.
type MapFunc func(internalName string) string

// MapTypeDesc scans a single type descriptor and, for every
// L<internal>; it finds, substitutes f(internal). Arrays and
// primitives pass through unchanged (their dimension prefix and
// primitive letter are copied verbatim).
func MapTypeDesc(desc string, f MapFunc) (string, error) {
	var sb strings.Builder
	_, err := mapTypeDescAt(desc, 0, &sb, f)
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// mapTypeDescAt scans exactly one type starting at offset i, writing
// the (possibly substituted) result to sb, and returns the offset
// just past the type it consumed.
func mapTypeDescAt(desc string, i int, sb *strings.Builder, f MapFunc) (int, error) {
	if i >= len(desc) {
		return i, mappingerrors.DescriptorParseError(desc, "", i)
	}

	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		sb.WriteByte(desc[i])
		return i + 1, nil
	case '[':
		sb.WriteByte('[')
		return mapTypeDescAt(desc, i+1, sb, f)
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return i, mappingerrors.DescriptorParseError(desc, desc[i:], i)
		}
		internal := desc[i+1 : i+end]
		sb.WriteByte('L')
		sb.WriteString(f(internal))
		sb.WriteByte(';')
		return i + end + 1, nil
	default:
		return i, mappingerrors.DescriptorParseError(desc, string(desc[i]), i)
	}
}

// MapMethodDesc splits a method descriptor into its parameter list and
// return type and applies MapTypeDesc to each.
func MapMethodDesc(desc string, f MapFunc) (string, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return "", mappingerrors.DescriptorParseError(desc, desc, 0)
	}
	closeIdx := strings.IndexByte(desc, ')')
	if closeIdx < 0 {
		return "", mappingerrors.DescriptorParseError(desc, desc, 0)
	}

	var sb strings.Builder
	sb.WriteByte('(')
	i := 1
	for i < closeIdx {
		next, err := mapTypeDescAt(desc, i, &sb, f)
		if err != nil {
			return "", err
		}
		i = next
	}
	sb.WriteByte(')')

	if _, err := mapTypeDescAt(desc, closeIdx+1, &sb, f); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ReturnType extracts just the return-type descriptor of a method
// descriptor, used by the invokedynamic-lambda special case in the
// rewrite package (spec §4.F): the instruction's descriptor's return
// type names the functional interface being implemented.
func ReturnType(methodDesc string) (string, error) {
	closeIdx := strings.IndexByte(methodDesc, ')')
	if closeIdx < 0 || closeIdx+1 > len(methodDesc) {
		return "", mappingerrors.DescriptorParseError(methodDesc, methodDesc, 0)
	}
	return methodDesc[closeIdx+1:], nil
}

// ReturnInternalName extracts the internal class name from a method
// descriptor's return type, failing if the return type isn't an
// L...; reference type (arrays/primitives have no "internal name").
func ReturnInternalName(methodDesc string) (string, error) {
	ret, err := ReturnType(methodDesc)
	if err != nil {
		return "", err
	}
	if len(ret) < 2 || ret[0] != 'L' || ret[len(ret)-1] != ';' {
		return "", mappingerrors.DescriptorParseError(methodDesc, ret, 0)
	}
	return ret[1 : len(ret)-1], nil
}

// ParseMethodDecl splits "name(params)ret" into (name, desc).
func ParseMethodDecl(s string) (name, desc string, err error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return "", "", mappingerrors.DescriptorParseError(s, s, 0)
	}
	return s[:open], s[open:], nil
}

// Target is the parsed form of an "owner.name(...)ret" or
// "owner.field" string, as used by mixin-annotation values (spec
// §4.G) and by the flat-map wire format's key grammar (spec §6).
type Target struct {
	Owner string
	Name  string
	Desc  string // "" for a field target
}

// IsMethod reports whether the parsed target names a method (vs a
// field).
func (t Target) IsMethod() bool { return t.Desc != "" }

// ParseTarget splits "owner.name(...)ret" or "owner.field" into its
// three parts. Owner and name are separated by the last '.' before any
// '(' to tolerate owners with '/' internal separators; desc is "" when
// the value has no parenthesized descriptor (a field reference).
func ParseTarget(s string) (Target, error) {
	parenIdx := strings.IndexByte(s, '(')
	searchIn := s
	if parenIdx >= 0 {
		searchIn = s[:parenIdx]
	}
	dot := strings.LastIndexByte(searchIn, '.')
	if dot < 0 {
		return Target{}, mappingerrors.DescriptorParseError(s, s, 0)
	}

	owner := s[:dot]
	rest := s[dot+1:]
	if parenIdx < 0 {
		return Target{Owner: owner, Name: rest}, nil
	}
	name, desc, err := ParseMethodDecl(rest)
	if err != nil {
		return Target{}, err
	}
	return Target{Owner: owner, Name: name, Desc: desc}, nil
}

// MapSignature rewrites a generic-signature string (JVMS §4.7.9.1)
// using the same class-name substitution as MapTypeDesc, but respects
// signature grammar: type-variable references (T<var>;), wildcard
// markers (+/-/*), bracketed type-argument lists (<...>), and the
// member-type suffix (Outer<T>.Inner<U>;) are preserved rather than
// mistaken for a type descriptor.
func MapSignature(sig string, f MapFunc) (string, error) {
	p := &sigParser{src: sig, f: f}
	// A ClassSignature or MethodSignature may open with a
	// FormalTypeParameters list ("<T:Lbound;>..."); that '<' is only
	// ever legal at position 0, so it's handled separately from the
	// type-argument-list '<' that classType/typeArgumentsIfAny handle
	// mid-signature.
	if len(p.src) > 0 && p.src[0] == '<' {
		if err := p.formalTypeParams(); err != nil {
			return "", err
		}
	}
	for p.i < len(p.src) {
		if err := p.element(); err != nil {
			return "", err
		}
	}
	return p.out.String(), nil
}

// formalTypeParams consumes "<" FormalTypeParameter+ ">" where each
// FormalTypeParameter is "Identifier" ":" ClassBound? (":" InterfaceBound)*.
// Identifiers are copied verbatim; bound types recurse through element
// so internal names inside them are still rewritten.
func (p *sigParser) formalTypeParams() error {
	p.emit('<')
	p.i++
	for p.i < len(p.src) && p.src[p.i] != '>' {
		idStart := p.i
		for p.i < len(p.src) && p.src[p.i] != ':' {
			p.i++
		}
		p.out.WriteString(p.src[idStart:p.i])
		for p.i < len(p.src) && p.src[p.i] == ':' {
			p.emit(':')
			p.i++
			if p.i < len(p.src) && p.src[p.i] != ':' && p.src[p.i] != '>' {
				if err := p.element(); err != nil {
					return err
				}
			}
		}
	}
	if p.i >= len(p.src) {
		return mappingerrors.DescriptorParseError(p.src, p.src, p.i)
	}
	p.emit('>')
	p.i++
	return nil
}

type sigParser struct {
	src string
	i   int
	out strings.Builder
	f   MapFunc
}

func (p *sigParser) emit(c byte) { p.out.WriteByte(c) }

func (p *sigParser) peek() (byte, bool) {
	if p.i >= len(p.src) {
		return 0, false
	}
	return p.src[p.i], true
}

// element consumes exactly one grammar element at the cursor: a base
// type, an array prefix plus its element type, a type variable, a
// class type (with optional type-argument list and member suffix), a
// wildcard/variance marker, or any other punctuation/identifier byte
// that passes through unchanged (method signature parens, ':' bound
// separators, '^' throws markers, formal type-parameter identifiers).
func (p *sigParser) element() error {
	c, ok := p.peek()
	if !ok {
		return mappingerrors.DescriptorParseError(p.src, "", p.i)
	}
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		p.emit(c)
		p.i++
		return nil
	case '[':
		p.emit('[')
		p.i++
		return p.element()
	case 'T':
		end := strings.IndexByte(p.src[p.i:], ';')
		if end < 0 {
			return mappingerrors.DescriptorParseError(p.src, p.src[p.i:], p.i)
		}
		p.out.WriteString(p.src[p.i : p.i+end+1])
		p.i += end + 1
		return nil
	case 'L':
		return p.classType()
	default:
		// +, -, *, <, >, (, ), ^, :, identifier bytes, '.' between
		// formal type parameters, etc. -- copied through verbatim.
		p.emit(c)
		p.i++
		return nil
	}
}

// classType consumes "L" PackageSpecifier* SimpleClassTypeSignature
// ClassTypeSignatureSuffix* ";" rewriting only the internal class name
// run(s); type-argument lists recurse back into element so nested
// class/type-variable references are rewritten too.
func (p *sigParser) classType() error {
	start := p.i // at 'L'
	p.i++        // past 'L'
	nameStart := p.i
	for p.i < len(p.src) {
		c := p.src[p.i]
		if c == ';' || c == '<' || c == '.' {
			break
		}
		p.i++
	}
	if p.i >= len(p.src) {
		return mappingerrors.DescriptorParseError(p.src, p.src[start:], start)
	}
	internal := p.src[nameStart:p.i]
	p.emit('L')
	p.out.WriteString(p.f(internal))

	if err := p.typeArgumentsIfAny(); err != nil {
		return err
	}

	// ClassTypeSignatureSuffix: one or more ". Identifier [TypeArguments]"
	for p.i < len(p.src) && p.src[p.i] == '.' {
		p.emit('.')
		p.i++
		suffixStart := p.i
		for p.i < len(p.src) && p.src[p.i] != ';' && p.src[p.i] != '<' && p.src[p.i] != '.' {
			p.i++
		}
		p.out.WriteString(p.src[suffixStart:p.i])
		if err := p.typeArgumentsIfAny(); err != nil {
			return err
		}
	}

	if p.i >= len(p.src) || p.src[p.i] != ';' {
		return mappingerrors.DescriptorParseError(p.src, p.src[start:], start)
	}
	p.emit(';')
	p.i++
	return nil
}

// typeArgumentsIfAny consumes an optional "<" TypeArgument+ ">" list.
func (p *sigParser) typeArgumentsIfAny() error {
	if p.i >= len(p.src) || p.src[p.i] != '<' {
		return nil
	}
	p.emit('<')
	p.i++
	for p.i < len(p.src) && p.src[p.i] != '>' {
		c := p.src[p.i]
		if c == '+' || c == '-' {
			p.emit(c)
			p.i++
			continue
		}
		if c == '*' {
			p.emit('*')
			p.i++
			continue
		}
		if err := p.element(); err != nil {
			return err
		}
	}
	if p.i >= len(p.src) {
		return mappingerrors.DescriptorParseError(p.src, p.src, p.i)
	}
	p.emit('>')
	p.i++
	return nil
}
