/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import "github.com/Weave-MC/mappings-util/mappingerrors"

// Constant pool tags (JVMS §4.4), named the way Jacobin names its own
// CP entry-type constants in classloader.CPutils.go (ClassRef,
// StringConst, UTF8, Dynamic, MethodHandle, MethodRef, NameAndType,
// InterfaceRef, InvokeDynamic).
const (
	TagUTF8              = 1
	TagInteger           = 3
	TagFloat             = 4
	TagLong              = 5
	TagDouble            = 6
	TagClass             = 7
	TagString            = 8
	TagFieldref          = 9
	TagMethodref         = 10
	TagInterfaceMethodref = 11
	TagNameAndType       = 12
	TagMethodHandle      = 15
	TagMethodType        = 16
	TagDynamic           = 17
	TagInvokeDynamic     = 18
	TagModule            = 19
	TagPackage           = 20
)

// entry is one constant-pool slot. Only the fields relevant to its Tag
// are meaningful; Long/Double entries occupy the following slot too
// (JVMS §4.4.5), represented here by a nil placeholder entry with
// Tag == 0.
type entry struct {
	Tag int

	// TagUTF8
	Str string
	// TagInteger/TagFloat/TagLong/TagDouble
	IntVal    int32
	LongVal   int64
	FloatVal  float32
	DoubleVal float64
	// TagClass: NameIndex -> UTF8 (internal name)
	// TagString: NameIndex -> UTF8 (string constant)
	// TagMethodType: NameIndex -> UTF8 (method descriptor)
	NameIndex uint16
	// TagFieldref/TagMethodref/TagInterfaceMethodref: ClassIndex -> Class,
	// NatIndex -> NameAndType
	ClassIndex uint16
	NatIndex   uint16
	// TagNameAndType
	NameIdx uint16 // UTF8
	DescIdx uint16 // UTF8
	// TagMethodHandle
	RefKind  int
	RefIndex uint16
	// TagDynamic/TagInvokeDynamic
	BootstrapIndex uint16
	// TagModule/TagPackage
	// NameIndex reused
}

// ConstantPool is a mutable constant pool supporting both the lookups
// the rewriter needs (resolve a Class/Fieldref/Methodref/NameAndType
// entry to strings) and the interning new entries require when a
// rewritten name or descriptor didn't already exist in the pool.
type ConstantPool struct {
	entries []entry // 1-indexed; entries[0] is unused padding

	utf8Index map[string]uint16
	classByNI map[uint16]uint16 // name-utf8-index -> class-entry-index
}

func newConstantPool() *ConstantPool {
	return &ConstantPool{
		entries:   make([]entry, 1),
		utf8Index: make(map[string]uint16),
		classByNI: make(map[uint16]uint16),
	}
}

func (cp *ConstantPool) count() int { return len(cp.entries) }

func (cp *ConstantPool) get(idx uint16) (entry, error) {
	if int(idx) <= 0 || int(idx) >= len(cp.entries) {
		return entry{}, mappingerrors.Newf(mappingerrors.IoError, "constant pool index %d out of range", idx)
	}
	return cp.entries[idx], nil
}

func (cp *ConstantPool) append(e entry) uint16 {
	idx := uint16(len(cp.entries))
	cp.entries = append(cp.entries, e)
	if e.Tag == TagLong || e.Tag == TagDouble {
		cp.entries = append(cp.entries, entry{Tag: 0})
	}
	return idx
}

// Utf8 resolves a UTF8 entry to its string.
func (cp *ConstantPool) Utf8(idx uint16) (string, error) {
	e, err := cp.get(idx)
	if err != nil {
		return "", err
	}
	if e.Tag != TagUTF8 {
		return "", mappingerrors.Newf(mappingerrors.IoError, "cp entry %d is not UTF8", idx)
	}
	return e.Str, nil
}

// ClassName resolves a Class entry to its internal name.
func (cp *ConstantPool) ClassName(idx uint16) (string, error) {
	if idx == 0 {
		return "", nil
	}
	e, err := cp.get(idx)
	if err != nil {
		return "", err
	}
	if e.Tag != TagClass {
		return "", mappingerrors.Newf(mappingerrors.IoError, "cp entry %d is not Class", idx)
	}
	return cp.Utf8(e.NameIndex)
}

// NameAndType resolves a NameAndType entry to (name, descriptor).
func (cp *ConstantPool) NameAndType(idx uint16) (name, desc string, err error) {
	e, err := cp.get(idx)
	if err != nil {
		return "", "", err
	}
	if e.Tag != TagNameAndType {
		return "", "", mappingerrors.Newf(mappingerrors.IoError, "cp entry %d is not NameAndType", idx)
	}
	name, err = cp.Utf8(e.NameIdx)
	if err != nil {
		return "", "", err
	}
	desc, err = cp.Utf8(e.DescIdx)
	return name, desc, err
}

// MemberRef resolves a Fieldref/Methodref/InterfaceMethodref entry to
// (owner internal name, member name, member descriptor).
func (cp *ConstantPool) MemberRef(idx uint16) (owner, name, desc string, err error) {
	e, err := cp.get(idx)
	if err != nil {
		return "", "", "", err
	}
	if e.Tag != TagFieldref && e.Tag != TagMethodref && e.Tag != TagInterfaceMethodref {
		return "", "", "", mappingerrors.Newf(mappingerrors.IoError, "cp entry %d is not a member ref", idx)
	}
	owner, err = cp.ClassName(e.ClassIndex)
	if err != nil {
		return "", "", "", err
	}
	name, desc, err = cp.NameAndType(e.NatIndex)
	return owner, name, desc, err
}

// InternUTF8 finds an existing UTF8 entry equal to s, or appends a new
// one, and returns its index.
func (cp *ConstantPool) InternUTF8(s string) uint16 {
	if idx, ok := cp.utf8Index[s]; ok {
		return idx
	}
	idx := cp.append(entry{Tag: TagUTF8, Str: s})
	cp.utf8Index[s] = idx
	return idx
}

// InternClass finds an existing Class entry naming internalName, or
// appends new Class+UTF8 entries, and returns its index.
func (cp *ConstantPool) InternClass(internalName string) uint16 {
	ni := cp.InternUTF8(internalName)
	if idx, ok := cp.classByNI[ni]; ok {
		return idx
	}
	idx := cp.append(entry{Tag: TagClass, NameIndex: ni})
	cp.classByNI[ni] = idx
	return idx
}

// InternNameAndType finds or appends a NameAndType entry for
// (name, desc).
func (cp *ConstantPool) InternNameAndType(name, desc string) uint16 {
	ni := cp.InternUTF8(name)
	di := cp.InternUTF8(desc)
	for i := 1; i < len(cp.entries); i++ {
		e := cp.entries[i]
		if e.Tag == TagNameAndType && e.NameIdx == ni && e.DescIdx == di {
			return uint16(i)
		}
	}
	return cp.append(entry{Tag: TagNameAndType, NameIdx: ni, DescIdx: di})
}

// InternMethodType finds an existing MethodType entry for desc, or
// appends a new one, and returns its index.
func (cp *ConstantPool) InternMethodType(desc string) uint16 {
	ni := cp.InternUTF8(desc)
	for i := 1; i < len(cp.entries); i++ {
		if cp.entries[i].Tag == TagMethodType && cp.entries[i].NameIndex == ni {
			return uint16(i)
		}
	}
	return cp.append(entry{Tag: TagMethodType, NameIndex: ni})
}

// InternMemberRef finds or appends a Fieldref/Methodref/
// InterfaceMethodref entry, per the given tag, for owner.name desc.
func (cp *ConstantPool) InternMemberRef(tag int, owner, name, desc string) uint16 {
	ci := cp.InternClass(owner)
	nati := cp.InternNameAndType(name, desc)
	for i := 1; i < len(cp.entries); i++ {
		e := cp.entries[i]
		if e.Tag == tag && e.ClassIndex == ci && e.NatIndex == nati {
			return uint16(i)
		}
	}
	return cp.append(entry{Tag: tag, ClassIndex: ci, NatIndex: nati})
}

// Tag returns the tag of the entry at idx, used by the instruction
// rewriter to decide how to interpret a CP-index operand.
func (cp *ConstantPool) Tag(idx uint16) (int, error) {
	e, err := cp.get(idx)
	if err != nil {
		return 0, err
	}
	return e.Tag, nil
}

// StringValue resolves a String entry to its UTF8 contents.
func (cp *ConstantPool) StringValue(idx uint16) (string, error) {
	e, err := cp.get(idx)
	if err != nil {
		return "", err
	}
	if e.Tag != TagString {
		return "", mappingerrors.Newf(mappingerrors.IoError, "cp entry %d is not String", idx)
	}
	return cp.Utf8(e.NameIndex)
}

// MethodTypeDesc resolves a MethodType entry to its descriptor.
func (cp *ConstantPool) MethodTypeDesc(idx uint16) (string, error) {
	e, err := cp.get(idx)
	if err != nil {
		return "", err
	}
	if e.Tag != TagMethodType {
		return "", mappingerrors.Newf(mappingerrors.IoError, "cp entry %d is not MethodType", idx)
	}
	return cp.Utf8(e.NameIndex)
}

// MethodHandleRef resolves a MethodHandle entry to the owner/name/desc
// of the field or method it references, plus its reference kind
// (JVMS §5.4.3.5 table).
func (cp *ConstantPool) MethodHandleRef(idx uint16) (refKind int, owner, name, desc string, err error) {
	e, err := cp.get(idx)
	if err != nil {
		return 0, "", "", "", err
	}
	if e.Tag != TagMethodHandle {
		return 0, "", "", "", mappingerrors.Newf(mappingerrors.IoError, "cp entry %d is not MethodHandle", idx)
	}
	owner, name, desc, err = cp.MemberRef(e.RefIndex)
	return e.RefKind, owner, name, desc, err
}

// InvokeDynamicRef resolves an InvokeDynamic entry to its bootstrap
// method index (into the class's BootstrapMethods table) and its
// NameAndType index.
func (cp *ConstantPool) InvokeDynamicRef(idx uint16) (bootstrapIndex, natIndex uint16, err error) {
	e, err := cp.get(idx)
	if err != nil {
		return 0, 0, err
	}
	if e.Tag != TagInvokeDynamic {
		return 0, 0, mappingerrors.Newf(mappingerrors.IoError, "cp entry %d is not InvokeDynamic", idx)
	}
	return e.BootstrapIndex, e.NatIndex, nil
}

// InternInvokeDynamic finds or appends an InvokeDynamic entry for the
// given bootstrap-method index and NameAndType index.
func (cp *ConstantPool) InternInvokeDynamic(bootstrapIndex, natIndex uint16) uint16 {
	for i := 1; i < len(cp.entries); i++ {
		e := cp.entries[i]
		if e.Tag == TagInvokeDynamic && e.BootstrapIndex == bootstrapIndex && e.NatIndex == natIndex {
			return uint16(i)
		}
	}
	return cp.append(entry{Tag: TagInvokeDynamic, BootstrapIndex: bootstrapIndex, NatIndex: natIndex})
}
