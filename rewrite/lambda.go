/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package rewrite

import (
	"github.com/Weave-MC/mappings-util/classfile"
	"github.com/Weave-MC/mappings-util/descriptor"
	"github.com/Weave-MC/mappings-util/remap"
)

const lambdaMetafactoryOwner = "java/lang/invoke/LambdaMetafactory"

// isLambdaBootstrap reports whether bm is a LambdaMetafactory call,
// under either its standard or "altMetafactory" form (spec §4.F: both
// are treated identically -- altMetafactory only adds encoded extra
// flags/markers after the three metafactory arguments, it doesn't
// change how the SAM method is named).
func isLambdaBootstrap(bm classfile.BootstrapMethod) bool {
	return bm.OwnerName == lambdaMetafactoryOwner &&
		(bm.MemberName == "metafactory" || bm.MemberName == "altMetafactory")
}

// lambdaSAMDesc recovers the single-abstract-method descriptor a
// LambdaMetafactory call site implements: its first bootstrap argument
// is always the erased+specialized MethodType of the SAM (JVMS
// §4.7.23, java.lang.invoke.LambdaMetafactory javadoc).
func lambdaSAMDesc(bm classfile.BootstrapMethod) (string, bool) {
	if len(bm.Args) == 0 || bm.Args[0].Kind != classfile.BootstrapArgMethodType {
		return "", false
	}
	return bm.Args[0].Value, true
}

// rewriteLambdaInstruction handles one invokedynamic instruction whose
// bootstrap method is a LambdaMetafactory call: the NameAndType it
// references names the single abstract method being implemented, on
// the functional interface named by the instruction descriptor's
// return type, so that name and the call site's descriptor (not the
// bootstrap method handle itself) are what get remapped.
func rewriteLambdaInstruction(cp *classfile.ConstantPool, in *classfile.Instruction, bm classfile.BootstrapMethod, r *remap.Remapper) error {
	idx, ok := in.CPIndex()
	if !ok {
		return nil
	}
	bsIdx, natIdx, err := cp.InvokeDynamicRef(idx)
	if err != nil {
		return err
	}
	name, desc, err := cp.NameAndType(natIdx)
	if err != nil {
		return err
	}

	samDesc, ok := lambdaSAMDesc(bm)
	if !ok {
		// Not recognizably a SAM-implementing call; leave the
		// NameAndType alone rather than guess.
		return nil
	}
	// desc is the invokedynamic call site's own descriptor (the
	// synthetic factory method), whose return type names the
	// functional interface being implemented -- samDesc is only the
	// SAM method's specialized signature and carries no owner.
	samOwner, err := descriptor.ReturnInternalName(desc)
	if err != nil {
		return nil
	}

	mappedName, err := r.LambdaSAMMethodName(samOwner, name, samDesc)
	if err != nil {
		return err
	}
	mappedDesc, err := r.MapMethodDesc(desc)
	if err != nil {
		return err
	}
	newNat := cp.InternNameAndType(mappedName, mappedDesc)
	in.SetCPIndex(cp.InternInvokeDynamic(bsIdx, newNat))
	return nil
}
