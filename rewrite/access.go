/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package rewrite

import "github.com/Weave-MC/mappings-util/classfile"

// Access flag bits relevant to widening (JVMS §4.1 Table 4.1-A /
// §4.5 Table 4.5-A / §4.6 Table 4.6-A). Only the handful this visitor
// touches are named here.
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccFinal     = 0x0010
)

// AccessWideningVisitor clears PRIVATE/PROTECTED and FINAL and sets
// PUBLIC on classes and methods, so a mixin or any other caller that
// no longer controls the original source can still reach and override
// members javac sealed off. Fields keep their FINAL bit: widening a
// field's write-access is not part of this visitor's job, only its
// visibility (spec §4.F). Neither it nor a RemapVisitor depends on
// the other's output, but convention in this engine's pipelines puts
// widening first in the chain so renamed members
// are already public by the time anything else might inspect them.
type AccessWideningVisitor struct {
	BaseVisitor
}

func (AccessWideningVisitor) OnClass(cf *classfile.ClassFile) error {
	cf.AccessFlags = widen(cf.AccessFlags, false)
	return nil
}

func (AccessWideningVisitor) OnMethod(cf *classfile.ClassFile, mc *MethodContext) error {
	mc.Method.AccessFlags = widen(mc.Method.AccessFlags, false)
	return nil
}

func (AccessWideningVisitor) OnField(cf *classfile.ClassFile, f *classfile.Field) error {
	f.AccessFlags = widen(f.AccessFlags, true)
	return nil
}

func widen(flags int, keepFinal bool) int {
	flags &^= AccPrivate | AccProtected
	flags |= AccPublic
	if !keepFinal {
		flags &^= AccFinal
	}
	return flags
}
