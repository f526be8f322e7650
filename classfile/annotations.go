/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"encoding/binary"

	"github.com/Weave-MC/mappings-util/descriptor"
	"github.com/Weave-MC/mappings-util/mappingerrors"
)

// ElementValue is one annotation element_value (JVMS §4.7.16.1).
type ElementValue struct {
	Tag byte

	ConstIndex uint16 // primitive/String tags: const_value_index
	TypeName   string // 'e': enum type descriptor
	ConstName  string // 'e': enum constant name
	ClassDesc  string // 'c': class_info_index, resolved to a type descriptor
	Nested     *Annotation // '@'
	Array      []ElementValue // '['
}

// Annotation is one annotation structure (JVMS §4.7.16), shared by
// RuntimeVisible/InvisibleAnnotations, parameter annotations, and the
// tail of a type annotation.
type Annotation struct {
	TypeDesc string // resolved from type_index, a field descriptor like "Lfoo/Bar;"
	Pairs    []AnnotationPair
}

// AnnotationPair is one element_name_index/element_value entry.
type AnnotationPair struct {
	Name  string
	Value ElementValue
}

// TypeAnnotation is one entry of RuntimeVisible/InvisibleTypeAnnotations
// (JVMS §4.7.20). TargetInfo and TypePath are kept as opaque bytes:
// this package rewrites class names appearing in the annotation body,
// not in the target location, which never contains a class reference.
type TypeAnnotation struct {
	TargetType byte
	TargetInfo []byte
	TypePath   []byte
	Annotation Annotation
}

type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) u1() (byte, error) {
	if r.i >= len(r.b) {
		return 0, mappingerrors.New(mappingerrors.IoError, "truncated annotation data")
	}
	v := r.b[r.i]
	r.i++
	return v, nil
}

func (r *byteReader) u2() (uint16, error) {
	if r.i+2 > len(r.b) {
		return 0, mappingerrors.New(mappingerrors.IoError, "truncated annotation data")
	}
	v := binary.BigEndian.Uint16(r.b[r.i:])
	r.i += 2
	return v, nil
}

func (r *byteReader) take(n int) ([]byte, error) {
	if r.i+n > len(r.b) {
		return nil, mappingerrors.New(mappingerrors.IoError, "truncated annotation data")
	}
	v := r.b[r.i : r.i+n]
	r.i += n
	return v, nil
}

func decodeAnnotation(r *byteReader, cp *ConstantPool) (Annotation, error) {
	typeIdx, err := r.u2()
	if err != nil {
		return Annotation{}, err
	}
	typeDesc, err := cp.Utf8(typeIdx)
	if err != nil {
		return Annotation{}, err
	}
	numPairs, err := r.u2()
	if err != nil {
		return Annotation{}, err
	}
	a := Annotation{TypeDesc: typeDesc}
	for i := 0; i < int(numPairs); i++ {
		nameIdx, err := r.u2()
		if err != nil {
			return Annotation{}, err
		}
		name, err := cp.Utf8(nameIdx)
		if err != nil {
			return Annotation{}, err
		}
		val, err := decodeElementValue(r, cp)
		if err != nil {
			return Annotation{}, err
		}
		a.Pairs = append(a.Pairs, AnnotationPair{Name: name, Value: val})
	}
	return a, nil
}

func decodeElementValue(r *byteReader, cp *ConstantPool) (ElementValue, error) {
	tag, err := r.u1()
	if err != nil {
		return ElementValue{}, err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		idx, err := r.u2()
		return ElementValue{Tag: tag, ConstIndex: idx}, err
	case 'e':
		typeIdx, err := r.u2()
		if err != nil {
			return ElementValue{}, err
		}
		constIdx, err := r.u2()
		if err != nil {
			return ElementValue{}, err
		}
		typeName, err := cp.Utf8(typeIdx)
		if err != nil {
			return ElementValue{}, err
		}
		constName, err := cp.Utf8(constIdx)
		return ElementValue{Tag: tag, TypeName: typeName, ConstName: constName}, err
	case 'c':
		idx, err := r.u2()
		if err != nil {
			return ElementValue{}, err
		}
		desc, err := cp.Utf8(idx)
		return ElementValue{Tag: tag, ClassDesc: desc}, err
	case '@':
		nested, err := decodeAnnotation(r, cp)
		return ElementValue{Tag: tag, Nested: &nested}, err
	case '[':
		n, err := r.u2()
		if err != nil {
			return ElementValue{}, err
		}
		ev := ElementValue{Tag: tag}
		for i := 0; i < int(n); i++ {
			elem, err := decodeElementValue(r, cp)
			if err != nil {
				return ElementValue{}, err
			}
			ev.Array = append(ev.Array, elem)
		}
		return ev, nil
	default:
		return ElementValue{}, mappingerrors.Newf(mappingerrors.UnsupportedFormat, "unknown element_value tag %q", tag)
	}
}

// RewriteAnnotationTypes applies f to every type descriptor carried by
// an annotation structure: its own type, any enum-constant type, and
// any class-valued element (recursing into nested annotations and
// arrays). String-valued ('s') elements are left untouched -- mixin
// target strings are rewritten by the mixin package, not here.
func RewriteAnnotationTypes(a *Annotation, f descriptor.MapFunc) error {
	newDesc, err := descriptor.MapTypeDesc(a.TypeDesc, f)
	if err != nil {
		return err
	}
	a.TypeDesc = newDesc
	for i := range a.Pairs {
		if err := rewriteElementValueTypes(&a.Pairs[i].Value, f); err != nil {
			return err
		}
	}
	return nil
}

func rewriteElementValueTypes(ev *ElementValue, f descriptor.MapFunc) error {
	switch ev.Tag {
	case 'e':
		newType, err := descriptor.MapTypeDesc(ev.TypeName, f)
		if err != nil {
			return err
		}
		ev.TypeName = newType
	case 'c':
		newDesc, err := descriptor.MapTypeDesc(ev.ClassDesc, f)
		if err != nil {
			return err
		}
		ev.ClassDesc = newDesc
	case '@':
		if ev.Nested != nil {
			return RewriteAnnotationTypes(ev.Nested, f)
		}
	case '[':
		for i := range ev.Array {
			if err := rewriteElementValueTypes(&ev.Array[i], f); err != nil {
				return err
			}
		}
	}
	return nil
}

// targetInfoLen returns the byte length of a type annotation's
// target_info for a given target_type (JVMS §4.7.20.1), or -1 for
// localvar_target, whose length depends on its table_length field and
// must be read rather than looked up.
func targetInfoLen(targetType byte) int {
	switch targetType {
	case 0x00, 0x01: // type_parameter_target
		return 1
	case 0x10: // supertype_target
		return 2
	case 0x11, 0x12: // type_parameter_bound_target
		return 2
	case 0x13, 0x14, 0x15: // empty_target
		return 0
	case 0x16: // formal_parameter_target
		return 1
	case 0x17: // throws_target
		return 2
	case 0x40, 0x41: // localvar_target
		return -1
	case 0x42: // catch_target
		return 2
	case 0x43, 0x44, 0x45, 0x46: // offset_target
		return 2
	case 0x47, 0x48, 0x49, 0x4A, 0x4B: // type_argument_target
		return 3
	default:
		return -1
	}
}

func decodeTypeAnnotation(r *byteReader, cp *ConstantPool) (TypeAnnotation, error) {
	targetType, err := r.u1()
	if err != nil {
		return TypeAnnotation{}, err
	}

	var targetInfo []byte
	n := targetInfoLen(targetType)
	if n >= 0 {
		targetInfo, err = r.take(n)
		if err != nil {
			return TypeAnnotation{}, err
		}
	} else {
		// localvar_target: u2 table_length; {u2,u2,u2} table[table_length]
		start := r.i
		tableLen, err := r.u2()
		if err != nil {
			return TypeAnnotation{}, err
		}
		if _, err := r.take(int(tableLen) * 6); err != nil {
			return TypeAnnotation{}, err
		}
		targetInfo = r.b[start:r.i]
	}

	pathLenStart := r.i
	pathLen, err := r.u1()
	if err != nil {
		return TypeAnnotation{}, err
	}
	if _, err := r.take(int(pathLen) * 2); err != nil {
		return TypeAnnotation{}, err
	}
	typePath := r.b[pathLenStart:r.i]

	ann, err := decodeAnnotation(r, cp)
	if err != nil {
		return TypeAnnotation{}, err
	}
	return TypeAnnotation{TargetType: targetType, TargetInfo: targetInfo, TypePath: typePath, Annotation: ann}, nil
}

// DecodeTypeAnnotations decodes a RuntimeVisible/InvisibleTypeAnnotations
// attribute body (the num_annotations-prefixed list).
func DecodeTypeAnnotations(data []byte, cp *ConstantPool) ([]TypeAnnotation, error) {
	r := &byteReader{b: data}
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]TypeAnnotation, 0, n)
	for i := 0; i < int(n); i++ {
		ta, err := decodeTypeAnnotation(r, cp)
		if err != nil {
			return nil, err
		}
		out = append(out, ta)
	}
	return out, nil
}

// DecodeAnnotations decodes a RuntimeVisible/InvisibleAnnotations
// attribute body.
func DecodeAnnotations(data []byte, cp *ConstantPool) ([]Annotation, error) {
	r := &byteReader{b: data}
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, 0, n)
	for i := 0; i < int(n); i++ {
		a, err := decodeAnnotation(r, cp)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

type byteWriter struct {
	b []byte
}

func (w *byteWriter) u1(v byte)     { w.b = append(w.b, v) }
func (w *byteWriter) u2(v uint16)   { w.b = append(w.b, byte(v>>8), byte(v)) }
func (w *byteWriter) raw(v []byte)  { w.b = append(w.b, v...) }

func encodeElementValue(w *byteWriter, cp *ConstantPool, ev ElementValue) {
	w.u1(ev.Tag)
	switch ev.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		w.u2(ev.ConstIndex)
	case 'e':
		w.u2(cp.InternUTF8(ev.TypeName))
		w.u2(cp.InternUTF8(ev.ConstName))
	case 'c':
		w.u2(cp.InternUTF8(ev.ClassDesc))
	case '@':
		encodeAnnotation(w, cp, *ev.Nested)
	case '[':
		w.u2(uint16(len(ev.Array)))
		for _, e := range ev.Array {
			encodeElementValue(w, cp, e)
		}
	}
}

func encodeAnnotation(w *byteWriter, cp *ConstantPool, a Annotation) {
	w.u2(cp.InternUTF8(a.TypeDesc))
	w.u2(uint16(len(a.Pairs)))
	for _, p := range a.Pairs {
		w.u2(cp.InternUTF8(p.Name))
		encodeElementValue(w, cp, p.Value)
	}
}

// EncodeAnnotations serializes back to a RuntimeVisible/Invisible
// Annotations attribute body, interning any new UTF8 entries the
// rewrite introduced.
func EncodeAnnotations(cp *ConstantPool, anns []Annotation) []byte {
	w := &byteWriter{}
	w.u2(uint16(len(anns)))
	for _, a := range anns {
		encodeAnnotation(w, cp, a)
	}
	return w.b
}

// EncodeTypeAnnotations serializes back to a RuntimeVisible/Invisible
// TypeAnnotations attribute body.
func EncodeTypeAnnotations(cp *ConstantPool, tas []TypeAnnotation) []byte {
	w := &byteWriter{}
	w.u2(uint16(len(tas)))
	for _, ta := range tas {
		w.u1(ta.TargetType)
		w.raw(ta.TargetInfo)
		w.raw(ta.TypePath)
		encodeAnnotation(w, cp, ta.Annotation)
	}
	return w.b
}
