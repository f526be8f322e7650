/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import "math"

// Write serializes a ClassFile back to raw .class bytes. It re-interns
// This/Super/interfaces/field/method names and descriptors against the
// class's constant pool, so any field the rewriter mutated in place
// (ThisClass, SuperClass, a Field/Method Name/Desc, ...) picks up a
// freshly interned entry rather than a stale index.
func Write(cf *ClassFile) ([]byte, error) {
	cp := cf.cp
	if cp == nil {
		cp = newConstantPool()
		cf.cp = cp
	}

	thisIdx := cp.InternClass(cf.ThisClass)
	var superIdx uint16
	if cf.SuperClass != "" {
		superIdx = cp.InternClass(cf.SuperClass)
	}
	ifaceIdx := make([]uint16, len(cf.Interfaces))
	for i, n := range cf.Interfaces {
		ifaceIdx[i] = cp.InternClass(n)
	}

	fieldBytes, err := encodeMembers(cp, fieldsToRaw(cf.Fields))
	if err != nil {
		return nil, err
	}
	methodBytes, err := encodeMembers(cp, methodsToRaw(cf.Methods))
	if err != nil {
		return nil, err
	}

	classAttrs := append([]Attr(nil), cf.Attrs...)
	if len(cf.BootstrapMethods) > 0 {
		bmData, err := EncodeBootstrapMethods(cp, cf.BootstrapMethods)
		if err != nil {
			return nil, err
		}
		classAttrs = append(classAttrs, Attr{Name: "BootstrapMethods", Data: bmData})
	}
	var classAttrBytes []byte
	for _, a := range classAttrs {
		classAttrBytes = append(classAttrBytes, encodeAttr(cp, a)...)
	}

	// Members and class attributes are interned/encoded above (which may
	// append new constant-pool entries) before the pool itself is
	// serialized, so every freshly interned entry is included.
	var out []byte
	out = append(out, u32be(classMagic)...)
	out = append(out, u16be(uint16(cf.MinorVersion))...)
	out = append(out, u16be(uint16(cf.MajorVersion))...)

	cpBytes := encodeConstantPool(cp)
	out = append(out, cpBytes...)

	out = append(out, u16be(uint16(cf.AccessFlags))...)
	out = append(out, u16be(thisIdx)...)
	out = append(out, u16be(superIdx)...)

	out = append(out, u16be(uint16(len(ifaceIdx)))...)
	for _, idx := range ifaceIdx {
		out = append(out, u16be(idx)...)
	}

	out = append(out, u16be(uint16(len(cf.Fields)))...)
	out = append(out, fieldBytes...)

	out = append(out, u16be(uint16(len(cf.Methods)))...)
	out = append(out, methodBytes...)

	out = append(out, u16be(uint16(len(classAttrs)))...)
	out = append(out, classAttrBytes...)

	return out, nil
}

func fieldsToRaw(fs []Field) []rawMember {
	out := make([]rawMember, len(fs))
	for i, f := range fs {
		out[i] = rawMember{access: f.AccessFlags, name: f.Name, desc: f.Desc, attrs: f.Attrs}
	}
	return out
}

func methodsToRaw(ms []Method) []rawMember {
	out := make([]rawMember, len(ms))
	for i, m := range ms {
		out[i] = rawMember{access: m.AccessFlags, name: m.Name, desc: m.Desc, attrs: m.Attrs}
	}
	return out
}

func encodeMembers(cp *ConstantPool, members []rawMember) ([]byte, error) {
	var out []byte
	for _, m := range members {
		out = append(out, u16be(uint16(m.access))...)
		out = append(out, u16be(cp.InternUTF8(m.name))...)
		out = append(out, u16be(cp.InternUTF8(m.desc))...)
		out = append(out, u16be(uint16(len(m.attrs)))...)
		for _, a := range m.attrs {
			out = append(out, encodeAttr(cp, a)...)
		}
	}
	return out, nil
}

// encodeConstantPool serializes the pool's entries, including any
// interned during member/attribute encoding -- callers must intern
// everything they need before calling this.
func encodeConstantPool(cp *ConstantPool) []byte {
	var out []byte
	out = append(out, u16be(uint16(len(cp.entries)))...)
	for i := 1; i < len(cp.entries); i++ {
		e := cp.entries[i]
		switch e.Tag {
		case 0:
			continue // long/double placeholder slot
		case TagUTF8:
			out = append(out, byte(TagUTF8))
			out = append(out, u16be(uint16(len(e.Str)))...)
			out = append(out, []byte(e.Str)...)
		case TagInteger:
			out = append(out, byte(TagInteger))
			out = append(out, u32be(uint32(e.IntVal))...)
		case TagFloat:
			out = append(out, byte(TagFloat))
			out = append(out, u32be(math.Float32bits(e.FloatVal))...)
		case TagLong:
			out = append(out, byte(TagLong))
			v := uint64(e.LongVal)
			out = append(out, u32be(uint32(v>>32))...)
			out = append(out, u32be(uint32(v))...)
		case TagDouble:
			out = append(out, byte(TagDouble))
			v := math.Float64bits(e.DoubleVal)
			out = append(out, u32be(uint32(v>>32))...)
			out = append(out, u32be(uint32(v))...)
		case TagClass, TagMethodType, TagModule, TagPackage:
			out = append(out, byte(e.Tag))
			out = append(out, u16be(e.NameIndex)...)
		case TagString:
			out = append(out, byte(TagString))
			out = append(out, u16be(e.NameIndex)...)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			out = append(out, byte(e.Tag))
			out = append(out, u16be(e.ClassIndex)...)
			out = append(out, u16be(e.NatIndex)...)
		case TagNameAndType:
			out = append(out, byte(TagNameAndType))
			out = append(out, u16be(e.NameIdx)...)
			out = append(out, u16be(e.DescIdx)...)
		case TagMethodHandle:
			out = append(out, byte(TagMethodHandle))
			out = append(out, byte(e.RefKind))
			out = append(out, u16be(e.RefIndex)...)
		case TagDynamic, TagInvokeDynamic:
			out = append(out, byte(e.Tag))
			out = append(out, u16be(e.BootstrapIndex)...)
			out = append(out, u16be(e.NatIndex)...)
		}
	}
	return out
}
