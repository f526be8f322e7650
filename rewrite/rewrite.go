/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package rewrite applies a chain of visitors to a parsed class file
// and re-serializes it (spec §4.F): a ClassRewriter owns the chain and
// drives it over a class's fields, methods, instructions and
// annotations, the way Jacobin's ParseAndPostClass drives a class
// through parse -> check -> transform -> post-to-method-area. Here the
// "post" step is classfile.Write instead of loading into a method
// area, since this engine never executes what it rewrites.
package rewrite

import "github.com/Weave-MC/mappings-util/classfile"

// MethodContext carries a method's decoded Code body (if it has one)
// to the visitor chain for the duration of one method's processing,
// so a visitor can rewrite the exception table's catch types or other
// Code-level metadata in OnMethod before OnInstruction runs over the
// individual instructions.
type MethodContext struct {
	Method *classfile.Method
	Code   *classfile.Code // nil for abstract/native methods
}

// Visitor is the interceptor interface the rewrite pipeline dispatches
// to at each of the five event points spec §4.F/§9 names. Embed
// BaseVisitor to pick up no-op defaults for the events a visitor
// doesn't care about.
type Visitor interface {
	OnClass(cf *classfile.ClassFile) error
	OnField(cf *classfile.ClassFile, f *classfile.Field) error
	OnMethod(cf *classfile.ClassFile, mc *MethodContext) error
	OnInstruction(cf *classfile.ClassFile, mc *MethodContext, in *classfile.Instruction) error
	OnAnnotation(cf *classfile.ClassFile, owner string, a *classfile.Annotation) error
}

// BaseVisitor gives every hook a no-op default so a concrete visitor
// only needs to override the events it actually cares about.
type BaseVisitor struct{}

func (BaseVisitor) OnClass(*classfile.ClassFile) error { return nil }
func (BaseVisitor) OnField(*classfile.ClassFile, *classfile.Field) error { return nil }
func (BaseVisitor) OnMethod(*classfile.ClassFile, *MethodContext) error { return nil }
func (BaseVisitor) OnInstruction(*classfile.ClassFile, *MethodContext, *classfile.Instruction) error {
	return nil
}
func (BaseVisitor) OnAnnotation(*classfile.ClassFile, string, *classfile.Annotation) error {
	return nil
}

const (
	attrCode                        = "Code"
	attrRuntimeVisibleAnnotations    = "RuntimeVisibleAnnotations"
	attrRuntimeInvisibleAnnotations  = "RuntimeInvisibleAnnotations"
)

// ClassRewriter drives a fixed chain of Visitors over one class at a
// time. A ClassRewriter is not safe for concurrent use (spec §5): a
// fan-out over many classes (RewriteJar) gives each worker its own
// instance.
type ClassRewriter struct {
	chain []Visitor
}

// NewClassRewriter builds a rewriter running visitors in the given
// order at every event.
func NewClassRewriter(visitors ...Visitor) *ClassRewriter {
	return &ClassRewriter{chain: append([]Visitor(nil), visitors...)}
}

// RewriteClass parses data, runs the visitor chain over it, and
// re-serializes the result.
func (cr *ClassRewriter) RewriteClass(data []byte) ([]byte, error) {
	cf, err := classfile.Read(data)
	if err != nil {
		return nil, err
	}

	for _, v := range cr.chain {
		if err := v.OnClass(cf); err != nil {
			return nil, err
		}
	}
	if err := cr.visitAnnotationAttrs(cf, cf.ThisClass, cf.Attrs); err != nil {
		return nil, err
	}

	for i := range cf.Fields {
		f := &cf.Fields[i]
		for _, v := range cr.chain {
			if err := v.OnField(cf, f); err != nil {
				return nil, err
			}
		}
		if err := cr.visitAnnotationAttrs(cf, cf.ThisClass, f.Attrs); err != nil {
			return nil, err
		}
	}

	for i := range cf.Methods {
		m := &cf.Methods[i]
		if err := cr.rewriteMethod(cf, m); err != nil {
			return nil, err
		}
	}

	return classfile.Write(cf)
}

func (cr *ClassRewriter) rewriteMethod(cf *classfile.ClassFile, m *classfile.Method) error {
	codeIdx, codeAttr := findAttr(m.Attrs, attrCode)

	mc := &MethodContext{Method: m}
	if codeIdx >= 0 {
		code, err := classfile.DecodeCode(codeAttr.Data, cf.ConstantPool())
		if err != nil {
			return err
		}
		mc.Code = &code
	}

	for _, v := range cr.chain {
		if err := v.OnMethod(cf, mc); err != nil {
			return err
		}
	}

	if mc.Code != nil {
		for i := range mc.Code.Instructions {
			in := &mc.Code.Instructions[i]
			for _, v := range cr.chain {
				if err := v.OnInstruction(cf, mc, in); err != nil {
					return err
				}
			}
		}
		m.Attrs[codeIdx] = classfile.Attr{
			Name: attrCode,
			Data: classfile.EncodeCode(cf.ConstantPool(), *mc.Code),
		}
	}

	return cr.visitAnnotationAttrs(cf, cf.ThisClass, m.Attrs)
}

// visitAnnotationAttrs decodes any Runtime(In)VisibleAnnotations
// attribute present in attrs, runs OnAnnotation over each entry, and
// re-encodes the attribute in place.
func (cr *ClassRewriter) visitAnnotationAttrs(cf *classfile.ClassFile, owner string, attrs []classfile.Attr) error {
	for _, name := range []string{attrRuntimeVisibleAnnotations, attrRuntimeInvisibleAnnotations} {
		idx, attr := findAttr(attrs, name)
		if idx < 0 {
			continue
		}
		anns, err := classfile.DecodeAnnotations(attr.Data, cf.ConstantPool())
		if err != nil {
			return err
		}
		for i := range anns {
			for _, v := range cr.chain {
				if err := v.OnAnnotation(cf, owner, &anns[i]); err != nil {
					return err
				}
			}
		}
		attrs[idx] = classfile.Attr{Name: name, Data: classfile.EncodeAnnotations(cf.ConstantPool(), anns)}
	}
	return nil
}

func findAttr(attrs []classfile.Attr, name string) (int, classfile.Attr) {
	for i, a := range attrs {
		if a.Name == name {
			return i, a
		}
	}
	return -1, classfile.Attr{}
}
