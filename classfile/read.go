/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"encoding/binary"
	"math"

	"github.com/Weave-MC/mappings-util/mappingerrors"
)

const classMagic = 0xCAFEBABE

type reader struct {
	b []byte
	i int
}

func (r *reader) u1() (byte, error) {
	if r.i >= len(r.b) {
		return 0, mappingerrors.New(mappingerrors.IoError, "unexpected end of class file")
	}
	v := r.b[r.i]
	r.i++
	return v, nil
}

func (r *reader) u2() (uint16, error) {
	if r.i+2 > len(r.b) {
		return 0, mappingerrors.New(mappingerrors.IoError, "unexpected end of class file")
	}
	v := binary.BigEndian.Uint16(r.b[r.i:])
	r.i += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if r.i+4 > len(r.b) {
		return 0, mappingerrors.New(mappingerrors.IoError, "unexpected end of class file")
	}
	v := binary.BigEndian.Uint32(r.b[r.i:])
	r.i += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.i+n > len(r.b) {
		return nil, mappingerrors.New(mappingerrors.IoError, "unexpected end of class file")
	}
	v := r.b[r.i : r.i+n]
	r.i += n
	return v, nil
}

// Read parses raw .class bytes (JVMS §4.1) into a ClassFile. It keeps
// every attribute it doesn't otherwise need raw, so an unrelated
// rewrite (e.g. pure name remapping with no mixin annotations) leaves
// those bytes untouched on Write.
func Read(data []byte) (*ClassFile, error) {
	r := &reader{b: data}

	magic, err := r.u4()
	if err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, mappingerrors.New(mappingerrors.UnsupportedFormat, "not a class file: bad magic")
	}
	minor, err := r.u2()
	if err != nil {
		return nil, err
	}
	major, err := r.u2()
	if err != nil {
		return nil, err
	}

	cp, err := parseConstantPool(r)
	if err != nil {
		return nil, err
	}

	access, err := r.u2()
	if err != nil {
		return nil, err
	}
	thisIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	superIdx, err := r.u2()
	if err != nil {
		return nil, err
	}

	thisName, err := cp.ClassName(thisIdx)
	if err != nil {
		return nil, err
	}
	superName, err := cp.ClassName(superIdx)
	if err != nil {
		return nil, err
	}

	ifaceCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	interfaces := make([]string, 0, ifaceCount)
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := cp.ClassName(idx)
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, name)
	}

	fields, err := parseMembers(r, cp)
	if err != nil {
		return nil, err
	}
	methods, err := parseMembers(r, cp)
	if err != nil {
		return nil, err
	}

	classAttrs, err := parseAttrs(r, cp)
	if err != nil {
		return nil, err
	}

	cf := &ClassFile{
		MinorVersion: int(minor),
		MajorVersion: int(major),
		AccessFlags:  int(access),
		ThisClass:    thisName,
		SuperClass:   superName,
		Interfaces:   interfaces,
		Methods:      toMethods(methods),
		Attrs:        classAttrs,
		cp:           cp,
	}
	cf.Fields = toFields(fields)

	if i, bm := findAttr(cf.Attrs, "BootstrapMethods"); i >= 0 {
		decoded, err := DecodeBootstrapMethods(bm.Data, cp)
		if err != nil {
			return nil, err
		}
		cf.BootstrapMethods = decoded
		cf.Attrs = append(cf.Attrs[:i], cf.Attrs[i+1:]...)
	}

	return cf, nil
}

// ConstantPool exposes the class file's constant pool for callers
// (the rewriter, the mixin annotation walker) that need to resolve or
// intern entries directly.
func (cf *ClassFile) ConstantPool() *ConstantPool { return cf.cp }

func findAttr(attrs []Attr, name string) (int, Attr) {
	for i, a := range attrs {
		if a.Name == name {
			return i, a
		}
	}
	return -1, Attr{}
}

type rawMember struct {
	access int
	name   string
	desc   string
	attrs  []Attr
}

func parseMembers(r *reader, cp *ConstantPool) ([]rawMember, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]rawMember, 0, count)
	for i := 0; i < int(count); i++ {
		access, err := r.u2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := cp.Utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		desc, err := cp.Utf8(descIdx)
		if err != nil {
			return nil, err
		}
		attrs, err := parseAttrs(r, cp)
		if err != nil {
			return nil, err
		}
		out = append(out, rawMember{access: int(access), name: name, desc: desc, attrs: attrs})
	}
	return out, nil
}

func toFields(rm []rawMember) []Field {
	out := make([]Field, len(rm))
	for i, m := range rm {
		out[i] = Field{AccessFlags: m.access, Name: m.name, Desc: m.desc, Attrs: m.attrs}
	}
	return out
}

func toMethods(rm []rawMember) []Method {
	out := make([]Method, len(rm))
	for i, m := range rm {
		out[i] = Method{AccessFlags: m.access, Name: m.name, Desc: m.desc, Attrs: m.attrs}
	}
	return out
}

func parseAttrs(r *reader, cp *ConstantPool) ([]Attr, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]Attr, 0, count)
	for i := 0; i < int(count); i++ {
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		length, err := r.u4()
		if err != nil {
			return nil, err
		}
		data, err := r.bytes(int(length))
		if err != nil {
			return nil, err
		}
		name, err := cp.Utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		out = append(out, Attr{Name: name, Data: append([]byte(nil), data...)})
	}
	return out, nil
}

func parseConstantPool(r *reader) (*ConstantPool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	cp := newConstantPool()
	cp.entries = make([]entry, count)

	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagUTF8:
			length, err := r.u2()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(length))
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: TagUTF8, Str: string(b)}
		case TagInteger:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: TagInteger, IntVal: int32(v)}
		case TagFloat:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: TagFloat, FloatVal: math.Float32frombits(v)}
		case TagLong:
			hi, err := r.u4()
			if err != nil {
				return nil, err
			}
			lo, err := r.u4()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: TagLong, LongVal: int64(hi)<<32 | int64(lo)}
			i++ // long occupies two slots
		case TagDouble:
			hi, err := r.u4()
			if err != nil {
				return nil, err
			}
			lo, err := r.u4()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: TagDouble, DoubleVal: math.Float64frombits(uint64(hi)<<32 | uint64(lo))}
			i++
		case TagClass, TagMethodType, TagModule, TagPackage:
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: int(tag), NameIndex: idx}
		case TagString:
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: TagString, NameIndex: idx}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			ci, err := r.u2()
			if err != nil {
				return nil, err
			}
			ni, err := r.u2()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: int(tag), ClassIndex: ci, NatIndex: ni}
		case TagNameAndType:
			ni, err := r.u2()
			if err != nil {
				return nil, err
			}
			di, err := r.u2()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: TagNameAndType, NameIdx: ni, DescIdx: di}
		case TagMethodHandle:
			kind, err := r.u1()
			if err != nil {
				return nil, err
			}
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: TagMethodHandle, RefKind: int(kind), RefIndex: idx}
		case TagDynamic, TagInvokeDynamic:
			bsIdx, err := r.u2()
			if err != nil {
				return nil, err
			}
			natIdx, err := r.u2()
			if err != nil {
				return nil, err
			}
			cp.entries[i] = entry{Tag: int(tag), BootstrapIndex: bsIdx, NatIndex: natIdx}
		default:
			return nil, mappingerrors.Newf(mappingerrors.UnsupportedFormat, "unknown constant pool tag %d at entry %d", tag, i)
		}
	}

	// Populate the intern indices from the entries we just read
	// positionally, so a later InternUTF8/InternClass call during
	// rewriting reuses an existing entry instead of duplicating it.
	for i, e := range cp.entries {
		if e.Tag == TagUTF8 {
			if _, ok := cp.utf8Index[e.Str]; !ok {
				cp.utf8Index[e.Str] = uint16(i)
			}
		}
	}
	for i, e := range cp.entries {
		if e.Tag == TagClass {
			if _, ok := cp.classByNI[e.NameIndex]; !ok {
				cp.classByNI[e.NameIndex] = uint16(i)
			}
		}
	}

	return cp, nil
}
