/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package mixin rewrites the string-valued elements of
// `net/weavemc/api/mixin`-prefixed annotations (spec §4.G): a mixin
// class's @Mixin({Lowner;}) annotation establishes which vanilla class
// its @Inject/@Redirect/@At-style member annotations refer to, and
// this package rewrites the "method"/"field"/"target" string values
// those annotations carry so they keep pointing at the right member
// after a Remapper has renamed it.
//
// Parse failures here are soft: spec §7 calls mixin annotation string
// values "often garbage in user code", so a failure is logged and the
// original string passed through rather than aborting the rewrite, the
// same policy Jacobin's initializeField applies to attribute content
// it doesn't understand.
package mixin

import (
	"strings"

	"github.com/Weave-MC/mappings-util/classfile"
	"github.com/Weave-MC/mappings-util/descriptor"
	"github.com/Weave-MC/mappings-util/remap"
	"github.com/Weave-MC/mappings-util/trace"
)

// TypePrefix is the annotation-descriptor prefix identifying a mixin
// annotation.
const TypePrefix = "Lnet/weavemc/api/mixin"

// IsMixinAnnotation reports whether an annotation's type descriptor
// belongs to the mixin API.
func IsMixinAnnotation(a classfile.Annotation) bool {
	return strings.HasPrefix(a.TypeDesc, TypePrefix)
}

// FindTarget scans a class's annotations for an @Mixin-style
// annotation and returns the internal name of the first class named
// in its value array ("target" in spec §4.G's @Mixin({Lowner;})
// phrasing), and whether one was found at all.
func FindTarget(anns []classfile.Annotation) (owner string, ok bool) {
	for _, a := range anns {
		if !IsMixinAnnotation(a) {
			continue
		}
		for _, p := range a.Pairs {
			if p.Value.Tag != '[' {
				continue
			}
			for _, elem := range p.Value.Array {
				if elem.Tag == 'c' {
					return strings.TrimSuffix(strings.TrimPrefix(elem.ClassDesc, "L"), ";"), true
				}
			}
		}
	}
	return "", false
}

// RewriteAnnotations walks anns (and everything nested inside them --
// @Inject's "at" element, an @At's own pairs, array elements) rewriting
// every "method"/"field"/"target" string pair per spec §4.G, using
// owner as the implied target class for "method" and "field" keys.
// cp is the declaring class's constant pool, used to resolve and
// re-intern the rewritten strings.
func RewriteAnnotations(cp *classfile.ConstantPool, owner string, anns []classfile.Annotation, r *remap.Remapper) error {
	for i := range anns {
		if err := rewriteAnnotation(cp, owner, &anns[i], r); err != nil {
			return err
		}
	}
	return nil
}

func rewriteAnnotation(cp *classfile.ConstantPool, owner string, a *classfile.Annotation, r *remap.Remapper) error {
	for i := range a.Pairs {
		p := &a.Pairs[i]
		if p.Value.Tag == 's' {
			rewriteStringValue(cp, owner, p.Name, &p.Value, r)
			continue
		}
		if err := rewriteElementValue(cp, owner, &p.Value, r); err != nil {
			return err
		}
	}
	return nil
}

func rewriteElementValue(cp *classfile.ConstantPool, owner string, ev *classfile.ElementValue, r *remap.Remapper) error {
	switch ev.Tag {
	case '@':
		if ev.Nested != nil {
			return rewriteAnnotation(cp, owner, ev.Nested, r)
		}
	case '[':
		for i := range ev.Array {
			if err := rewriteElementValue(cp, owner, &ev.Array[i], r); err != nil {
				return err
			}
		}
	}
	return nil
}

// rewriteStringValue handles one (key, "s"-tagged value) pair. Errors
// are never returned: every failure is logged and the original string
// index is left untouched, per the soft-failure policy.
func rewriteStringValue(cp *classfile.ConstantPool, owner, key string, ev *classfile.ElementValue, r *remap.Remapper) {
	if key != "method" && key != "field" && key != "target" {
		return
	}
	original, err := cp.Utf8(ev.ConstIndex)
	if err != nil {
		trace.Warn("mixin: unresolvable string constant for key " + key)
		return
	}

	rewritten, err := rewriteValue(owner, key, original, r)
	if err != nil {
		trace.Warn("mixin: " + key + "=" + original + ": " + err.Error())
		return
	}
	ev.ConstIndex = cp.InternUTF8(rewritten)
}

func rewriteValue(owner, key, value string, r *remap.Remapper) (string, error) {
	switch key {
	case "method":
		name, desc, err := descriptor.ParseMethodDecl(value)
		if err != nil {
			return "", err
		}
		mappedName, err := r.MapMethodName(owner, name, desc)
		if err != nil {
			return "", err
		}
		mappedDesc, err := r.MapMethodDesc(desc)
		if err != nil {
			return "", err
		}
		return mappedName + mappedDesc, nil

	case "field":
		if strings.ContainsRune(value, '(') {
			return "", descriptorIsNotAField(value)
		}
		return r.MapFieldName(owner, value, "")

	case "target":
		return rewriteTarget(value, r)

	default:
		return value, nil
	}
}

// rewriteTarget parses the real-world Mixin call-site form
// "Lowner;name(desc)ret" or "Lowner;name" (JVMS-style owner+member,
// not the dotted "owner.name" form ParseTarget expects elsewhere --
// spec §8 scenario E5 rewrites "LFoo;bar(I)V" to "LFoo_mapped;zap(I)V",
// keeping the owner prefix, which only this internal-descriptor
// grammar produces).
func rewriteTarget(value string, r *remap.Remapper) (string, error) {
	if !strings.HasPrefix(value, "L") {
		return "", descriptorIsNotAField(value)
	}
	semi := strings.IndexByte(value, ';')
	if semi < 0 {
		return "", descriptorIsNotAField(value)
	}
	owner := value[1:semi]
	rest := value[semi+1:]

	mappedOwner := r.MapClass(owner)

	if !strings.ContainsRune(rest, '(') {
		mappedName, err := r.MapFieldName(owner, rest, "")
		if err != nil {
			return "", err
		}
		return "L" + mappedOwner + ";" + mappedName, nil
	}

	name, desc, err := descriptor.ParseMethodDecl(rest)
	if err != nil {
		return "", err
	}
	mappedName, err := r.MapMethodName(owner, name, desc)
	if err != nil {
		return "", err
	}
	mappedDesc, err := r.MapMethodDesc(desc)
	if err != nil {
		return "", err
	}
	return "L" + mappedOwner + ";" + mappedName + mappedDesc, nil
}

func descriptorIsNotAField(value string) error {
	return mixinParseError{value}
}

type mixinParseError struct{ value string }

func (e mixinParseError) Error() string { return "malformed mixin value: " + e.value }
