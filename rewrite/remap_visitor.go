/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package rewrite

import (
	"encoding/binary"

	"github.com/Weave-MC/mappings-util/classfile"
	"github.com/Weave-MC/mappings-util/mappingerrors"
	"github.com/Weave-MC/mappings-util/mixin"
	"github.com/Weave-MC/mappings-util/remap"
)

// RemapVisitor is the component-F visitor that does the actual
// renaming: the class's own name, superclass and interfaces, field and
// method names and descriptors, Signature and Exceptions attributes,
// instruction constant-pool operands, annotation types and
// LambdaMetafactory call sites are passed through a Remapper, and any
// mixin-annotation string values are rewritten too once the class's
// own @Mixin target has been identified. Attributes nested inside Code
// (LocalVariableTable, LocalVariableTypeTable and the like), type and
// parameter annotations, BootstrapMethods handles and arguments, and the
// descriptors of invokedynamic call sites with other bootstrap methods
// are left as they are.
//
// A RemapVisitor is stateful across one class's visit (it remembers
// the class's original name and its current @Mixin target), so a
// fresh instance is required per class -- NewClassRewriter callers
// should build one RemapVisitor per RewriteClass call, never share it
// across classes or goroutines.
type RemapVisitor struct {
	BaseVisitor
	r *remap.Remapper

	originalOwner string
	mixinTarget   string
}

// NewRemapVisitor builds a RemapVisitor driven by r.
func NewRemapVisitor(r *remap.Remapper) *RemapVisitor {
	return &RemapVisitor{r: r}
}

func (v *RemapVisitor) OnClass(cf *classfile.ClassFile) error {
	v.originalOwner = cf.ThisClass

	cf.SuperClass = v.r.MapClass(cf.SuperClass)
	for i, iface := range cf.Interfaces {
		cf.Interfaces[i] = v.r.MapClass(iface)
	}
	cf.ThisClass = v.r.MapClass(cf.ThisClass)

	attrs, err := rewriteSignatureAttr(cf.ConstantPool(), cf.Attrs, v.r.MapSignature)
	if err != nil {
		return err
	}
	cf.Attrs = attrs
	return nil
}

func (v *RemapVisitor) OnField(cf *classfile.ClassFile, f *classfile.Field) error {
	newName, err := v.r.MapFieldName(v.originalOwner, f.Name, f.Desc)
	if err != nil {
		return err
	}
	newDesc, err := v.r.MapTypeDesc(f.Desc)
	if err != nil {
		return err
	}
	f.Name, f.Desc = newName, newDesc
	attrs, err := rewriteSignatureAttr(cf.ConstantPool(), f.Attrs, v.r.MapSignature)
	if err != nil {
		return err
	}
	f.Attrs = attrs
	return nil
}

func (v *RemapVisitor) OnMethod(cf *classfile.ClassFile, mc *MethodContext) error {
	m := mc.Method
	newName, err := v.r.MapMethodName(v.originalOwner, m.Name, m.Desc)
	if err != nil {
		return err
	}
	newDesc, err := v.r.MapMethodDesc(m.Desc)
	if err != nil {
		return err
	}
	m.Name, m.Desc = newName, newDesc

	attrs, err := rewriteSignatureAttr(cf.ConstantPool(), m.Attrs, v.r.MapSignature)
	if err != nil {
		return err
	}
	m.Attrs = attrs
	if err := v.rewriteExceptionsAttr(cf, m.Attrs); err != nil {
		return err
	}

	if mc.Code != nil {
		for i := range mc.Code.ExceptionTable {
			e := &mc.Code.ExceptionTable[i]
			if e.CatchType != "" {
				e.CatchType = v.r.MapClass(e.CatchType)
			}
		}
	}
	return nil
}

func (v *RemapVisitor) OnInstruction(cf *classfile.ClassFile, _ *MethodContext, in *classfile.Instruction) error {
	idx, ok := in.CPIndex()
	if !ok {
		return nil
	}
	cp := cf.ConstantPool()
	tag, err := cp.Tag(idx)
	if err != nil {
		return err
	}

	switch tag {
	case classfile.TagClass:
		name, err := cp.ClassName(idx)
		if err != nil {
			return err
		}
		in.SetCPIndex(cp.InternClass(v.r.MapClass(name)))

	case classfile.TagFieldref:
		owner, name, desc, err := cp.MemberRef(idx)
		if err != nil {
			return err
		}
		mappedName, err := v.r.MapFieldName(owner, name, desc)
		if err != nil {
			return err
		}
		mappedDesc, err := v.r.MapTypeDesc(desc)
		if err != nil {
			return err
		}
		in.SetCPIndex(cp.InternMemberRef(classfile.TagFieldref, v.r.MapClass(owner), mappedName, mappedDesc))

	case classfile.TagMethodref, classfile.TagInterfaceMethodref:
		owner, name, desc, err := cp.MemberRef(idx)
		if err != nil {
			return err
		}
		mappedName, err := v.r.MapMethodName(owner, name, desc)
		if err != nil {
			return err
		}
		mappedDesc, err := v.r.MapMethodDesc(desc)
		if err != nil {
			return err
		}
		in.SetCPIndex(cp.InternMemberRef(tag, v.r.MapClass(owner), mappedName, mappedDesc))

	case classfile.TagInvokeDynamic:
		bsIdx, _, err := cp.InvokeDynamicRef(idx)
		if err != nil {
			return err
		}
		if int(bsIdx) >= len(cf.BootstrapMethods) {
			return nil
		}
		bm := cf.BootstrapMethods[bsIdx]
		if !isLambdaBootstrap(bm) {
			return nil
		}
		return rewriteLambdaInstruction(cp, in, bm, v.r)

	case classfile.TagMethodType:
		desc, err := cp.MethodTypeDesc(idx)
		if err != nil {
			return err
		}
		mapped, err := v.r.MapMethodDesc(desc)
		if err != nil {
			return err
		}
		in.SetCPIndex(cp.InternMethodType(mapped))
	}

	return nil
}

// OnAnnotation rewrites an annotation's type descriptors through the
// remapper and, for a mixin annotation, its "method"/"field"/"target"
// string values too. @Mixin's own value array establishes the target
// for every member annotation that follows it in the class's
// attribute order -- RewriteClass visits class-level annotations
// before field/method ones, so by the time a member annotation is
// seen here v.mixinTarget already names the right vanilla class.
func (v *RemapVisitor) OnAnnotation(cf *classfile.ClassFile, _ string, a *classfile.Annotation) error {
	if mixin.IsMixinAnnotation(*a) {
		if target, ok := mixin.FindTarget([]classfile.Annotation{*a}); ok {
			v.mixinTarget = target
		}
		if v.mixinTarget != "" {
			if err := mixin.RewriteAnnotations(cf.ConstantPool(), v.mixinTarget, []classfile.Annotation{*a}, v.r); err != nil {
				return err
			}
		}
	}
	return classfile.RewriteAnnotationTypes(a, v.r.MapClass)
}

// rewriteSignatureAttr rewrites a Signature attribute (JVMS §4.7.9.1)
// in place, dropping it entirely when mapSig returns an empty string
// rather than re-encoding an empty UTF8 entry -- some downstream
// tooling chokes on a present-but-empty generic signature, so an empty
// result is normalized to "no signature present" (spec §4.F).
func rewriteSignatureAttr(cp *classfile.ConstantPool, attrs []classfile.Attr, mapSig func(string) (string, error)) ([]classfile.Attr, error) {
	idx, attr := findAttr(attrs, "Signature")
	if idx < 0 {
		return attrs, nil
	}
	if len(attr.Data) < 2 {
		return nil, mappingerrors.New(mappingerrors.IoError, "truncated Signature attribute")
	}
	sigIdx := binary.BigEndian.Uint16(attr.Data)
	sig, err := cp.Utf8(sigIdx)
	if err != nil {
		return nil, err
	}
	mapped, err := mapSig(sig)
	if err != nil {
		return nil, err
	}
	if mapped == "" {
		out := append([]classfile.Attr(nil), attrs[:idx]...)
		return append(out, attrs[idx+1:]...), nil
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, cp.InternUTF8(mapped))
	attrs[idx] = classfile.Attr{Name: "Signature", Data: buf}
	return attrs, nil
}

// rewriteExceptionsAttr rewrites a method's Exceptions attribute
// (JVMS §4.7.5: a list of Class entries naming checked exceptions).
func (v *RemapVisitor) rewriteExceptionsAttr(cf *classfile.ClassFile, attrs []classfile.Attr) error {
	idx, attr := findAttr(attrs, "Exceptions")
	if idx < 0 {
		return nil
	}
	cp := cf.ConstantPool()
	data := attr.Data
	if len(data) < 2 {
		return mappingerrors.New(mappingerrors.IoError, "truncated Exceptions attribute")
	}
	n := binary.BigEndian.Uint16(data)
	out := make([]byte, 2, 2+2*int(n))
	binary.BigEndian.PutUint16(out, n)
	for i := 0; i < int(n); i++ {
		off := 2 + i*2
		if off+2 > len(data) {
			return mappingerrors.New(mappingerrors.IoError, "truncated Exceptions attribute")
		}
		classIdx := binary.BigEndian.Uint16(data[off:])
		name, err := cp.ClassName(classIdx)
		if err != nil {
			return err
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, cp.InternClass(v.r.MapClass(name)))
		out = append(out, buf...)
	}
	attrs[idx] = classfile.Attr{Name: "Exceptions", Data: out}
	return nil
}
