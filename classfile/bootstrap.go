/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import "github.com/Weave-MC/mappings-util/mappingerrors"

// DecodeBootstrapMethods decodes a class-level BootstrapMethods
// attribute body (JVMS §4.7.23), resolving each bootstrap method
// handle and its loadable-constant arguments. This is what lets the
// rewriter recognize an invokedynamic call site as a
// LambdaMetafactory.metafactory/altMetafactory lambda (spec §4.F)
// without re-deriving the method handle machinery by hand each time.
func DecodeBootstrapMethods(data []byte, cp *ConstantPool) ([]BootstrapMethod, error) {
	r := &byteReader{b: data}
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]BootstrapMethod, 0, n)
	for i := 0; i < int(n); i++ {
		mhIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		refKind, owner, name, desc, err := cp.MethodHandleRef(mhIdx)
		if err != nil {
			return nil, err
		}
		argCount, err := r.u2()
		if err != nil {
			return nil, err
		}
		var args []BootstrapArg
		for j := 0; j < int(argCount); j++ {
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			arg, err := decodeBootstrapArg(cp, idx)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		out = append(out, BootstrapMethod{
			RefKind: refKind, OwnerName: owner, MemberName: name, MemberDesc: desc, Args: args,
		})
	}
	return out, nil
}

func decodeBootstrapArg(cp *ConstantPool, idx uint16) (BootstrapArg, error) {
	tag, err := cp.Tag(idx)
	if err != nil {
		return BootstrapArg{}, err
	}
	switch tag {
	case TagMethodType:
		v, err := cp.MethodTypeDesc(idx)
		return BootstrapArg{Kind: BootstrapArgMethodType, Value: v, cpIdx: idx}, err
	case TagClass:
		v, err := cp.ClassName(idx)
		return BootstrapArg{Kind: BootstrapArgClass, Value: v, cpIdx: idx}, err
	case TagString:
		v, err := cp.StringValue(idx)
		return BootstrapArg{Kind: BootstrapArgString, Value: v, cpIdx: idx}, err
	default:
		return BootstrapArg{Kind: BootstrapArgOther, cpIdx: idx}, nil
	}
}

// EncodeBootstrapMethods serializes bootstrap methods back into an
// attribute body, interning any entries a rewrite introduced (e.g. a
// renamed MethodHandle owner) and reusing cpIdx verbatim for
// untouched arguments.
func EncodeBootstrapMethods(cp *ConstantPool, methods []BootstrapMethod) ([]byte, error) {
	w := &byteWriter{}
	w.u2(uint16(len(methods)))
	for _, m := range methods {
		mhIdx, err := internMethodHandle(cp, m.RefKind, m.OwnerName, m.MemberName, m.MemberDesc)
		if err != nil {
			return nil, err
		}
		w.u2(mhIdx)
		w.u2(uint16(len(m.Args)))
		for _, a := range m.Args {
			var idx uint16
			switch a.Kind {
			case BootstrapArgMethodType:
				idx = cp.InternUTF8(a.Value)
				idx = internMethodType(cp, idx)
			case BootstrapArgClass:
				idx = cp.InternClass(a.Value)
			case BootstrapArgString:
				idx = internString(cp, a.Value)
			default:
				idx = a.cpIdx
			}
			w.u2(idx)
		}
	}
	return w.b, nil
}

// internMethodType finds or appends a MethodType entry for the given
// descriptor UTF8 index.
func internMethodType(cp *ConstantPool, descUtf8 uint16) uint16 {
	for i := 1; i < len(cp.entries); i++ {
		if cp.entries[i].Tag == TagMethodType && cp.entries[i].NameIndex == descUtf8 {
			return uint16(i)
		}
	}
	return cp.append(entry{Tag: TagMethodType, NameIndex: descUtf8})
}

func internString(cp *ConstantPool, s string) uint16 {
	ni := cp.InternUTF8(s)
	for i := 1; i < len(cp.entries); i++ {
		if cp.entries[i].Tag == TagString && cp.entries[i].NameIndex == ni {
			return uint16(i)
		}
	}
	return cp.append(entry{Tag: TagString, NameIndex: ni})
}

// refKindTag maps a MethodHandle reference kind to the member-ref tag
// (Fieldref vs Methodref vs InterfaceMethodref) its target uses.
func refKindTag(refKind int) int {
	switch refKind {
	case 1, 2, 3, 4: // REF_getField, REF_getStatic, REF_putField, REF_putStatic
		return TagFieldref
	case 9: // REF_invokeInterface
		return TagInterfaceMethodref
	default: // invokeVirtual/invokeStatic/invokeSpecial/newInvokeSpecial
		return TagMethodref
	}
}

func internMethodHandle(cp *ConstantPool, refKind int, owner, name, desc string) (uint16, error) {
	if refKind < 1 || refKind > 9 {
		return 0, mappingerrors.Newf(mappingerrors.UnsupportedFormat, "invalid method handle ref_kind %d", refKind)
	}
	refIdx := cp.InternMemberRef(refKindTag(refKind), owner, name, desc)
	for i := 1; i < len(cp.entries); i++ {
		e := cp.entries[i]
		if e.Tag == TagMethodHandle && e.RefKind == refKind && e.RefIndex == refIdx {
			return uint16(i), nil
		}
	}
	return cp.append(entry{Tag: TagMethodHandle, RefKind: refKind, RefIndex: refIdx}), nil
}
