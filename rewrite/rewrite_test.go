/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package rewrite

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Weave-MC/mappings-util/classfile"
	"github.com/Weave-MC/mappings-util/mapping"
	"github.com/Weave-MC/mappings-util/remap"
)

// buildClass builds "class A extends java/lang/Object" with one field
// (f:I) and one method (m()V) whose body is
// aload_0; getfield A.f:I; return -- just enough surface to exercise
// a class/field/instruction rewrite end to end.
func buildClass(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	utf8 := func(s string) {
		buf.WriteByte(classfile.TagUTF8)
		w(uint16(len(s)))
		buf.WriteString(s)
	}

	w(uint32(0xCAFEBABE))
	w(uint16(0))  // minor
	w(uint16(52)) // major

	w(uint16(12)) // constant_pool_count
	utf8("A")                                 // #1
	buf.WriteByte(classfile.TagClass); w(uint16(1)) // #2 -> A
	utf8("java/lang/Object")                  // #3
	buf.WriteByte(classfile.TagClass); w(uint16(3)) // #4 -> Object
	utf8("f")                                 // #5
	utf8("I")                                 // #6
	utf8("m")                                 // #7
	utf8("()V")                               // #8
	utf8("Code")                              // #9
	buf.WriteByte(classfile.TagNameAndType); w(uint16(5)); w(uint16(6)) // #10
	buf.WriteByte(classfile.TagFieldref); w(uint16(2)); w(uint16(10))   // #11

	w(uint16(0x0021)) // access: public, super
	w(uint16(2))      // this_class
	w(uint16(4))      // super_class
	w(uint16(0))      // interfaces_count

	w(uint16(1)) // fields_count
	w(uint16(0)) // access
	w(uint16(5)) // name -> "f"
	w(uint16(6)) // desc -> "I"
	w(uint16(0)) // attributes_count

	w(uint16(1))    // methods_count
	w(uint16(1))    // access: public
	w(uint16(7))    // name -> "m"
	w(uint16(8))    // desc -> "()V"
	w(uint16(1))    // attributes_count
	w(uint16(9))    // attribute name -> "Code"

	code := []byte{42, 180, 0, 11, 177} // aload_0; getfield #11; return
	var codeBuf bytes.Buffer
	cw := func(v interface{}) {
		if err := binary.Write(&codeBuf, binary.BigEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	cw(uint16(2))            // max_stack
	cw(uint16(1))            // max_locals
	cw(uint32(len(code)))    // code_length
	codeBuf.Write(code)
	cw(uint16(0)) // exception_table_length
	cw(uint16(0)) // attributes_count

	w(uint32(codeBuf.Len())) // attribute_length
	buf.Write(codeBuf.Bytes())

	w(uint16(0)) // class attributes_count

	return buf.Bytes()
}

func sampleRemapper(t *testing.T) *remap.Remapper {
	t.Helper()
	descI := "I"
	m := mapping.Mappings{
		Namespaces: []string{"obf", "named"},
		Classes: []mapping.MappedClass{
			{
				Names: []string{"A", "A2"},
				Fields: []mapping.MappedField{
					{Names: []string{"f", "g"}, Desc: &descI},
				},
			},
		},
	}
	r, err := remap.New(m, "obf", "named", nil)
	require.NoError(t, err)
	return r
}

func TestRemapVisitor_RewritesClassFieldAndInstruction(t *testing.T) {
	r := sampleRemapper(t)
	rw := NewClassRewriter(NewRemapVisitor(r))

	out, err := rw.RewriteClass(buildClass(t))
	require.NoError(t, err)

	cf, err := classfile.Read(out)
	require.NoError(t, err)
	require.Equal(t, "A2", cf.ThisClass)
	require.Len(t, cf.Fields, 1)
	require.Equal(t, "g", cf.Fields[0].Name)

	codeIdx, attr := findAttr(cf.Methods[0].Attrs, "Code")
	require.GreaterOrEqual(t, codeIdx, 0)
	code, err := classfile.DecodeCode(attr.Data, cf.ConstantPool())
	require.NoError(t, err)
	require.Len(t, code.Instructions, 3)

	fieldIdx, ok := code.Instructions[1].CPIndex()
	require.True(t, ok)
	owner, name, desc, err := cf.ConstantPool().MemberRef(fieldIdx)
	require.NoError(t, err)
	require.Equal(t, "A2", owner)
	require.Equal(t, "g", name)
	require.Equal(t, "I", desc)
}

func TestAccessWideningVisitor_Class(t *testing.T) {
	v := AccessWideningVisitor{}
	cf := &classfile.ClassFile{AccessFlags: AccPrivate | AccFinal}
	require.NoError(t, v.OnClass(cf))
	require.Equal(t, AccPublic, cf.AccessFlags)
}

func TestAccessWideningVisitor_FieldKeepsFinal(t *testing.T) {
	v := AccessWideningVisitor{}
	f := &classfile.Field{AccessFlags: AccProtected | AccFinal}
	require.NoError(t, v.OnField(nil, f))
	require.Equal(t, AccPublic|AccFinal, f.AccessFlags)
}

func TestAccessWideningVisitor_MethodDropsFinal(t *testing.T) {
	v := AccessWideningVisitor{}
	mc := &MethodContext{Method: &classfile.Method{AccessFlags: AccPrivate | AccFinal}}
	require.NoError(t, v.OnMethod(nil, mc))
	require.Equal(t, AccPublic, mc.Method.AccessFlags)
}

func TestIsLambdaBootstrap(t *testing.T) {
	require.True(t, isLambdaBootstrap(classfile.BootstrapMethod{
		OwnerName: lambdaMetafactoryOwner, MemberName: "metafactory",
	}))
	require.True(t, isLambdaBootstrap(classfile.BootstrapMethod{
		OwnerName: lambdaMetafactoryOwner, MemberName: "altMetafactory",
	}))
	require.False(t, isLambdaBootstrap(classfile.BootstrapMethod{
		OwnerName: "some/other/Factory", MemberName: "metafactory",
	}))
}

func TestLambdaSAMDesc(t *testing.T) {
	bm := classfile.BootstrapMethod{
		Args: []classfile.BootstrapArg{{Kind: classfile.BootstrapArgMethodType, Value: "()Ljava/lang/String;"}},
	}
	desc, ok := lambdaSAMDesc(bm)
	require.True(t, ok)
	require.Equal(t, "()Ljava/lang/String;", desc)

	_, ok = lambdaSAMDesc(classfile.BootstrapMethod{})
	require.False(t, ok)
}

// buildLambdaClass builds "class A extends java/lang/Object" with one
// method m()V whose body is an invokedynamic call site implementing
// the functional interface I via LambdaMetafactory.metafactory, the
// invokedynamic NameAndType being I.get()LI; (the synthetic factory
// method) followed by pop; return.
func buildLambdaClass(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	utf8 := func(s string) {
		buf.WriteByte(classfile.TagUTF8)
		w(uint16(len(s)))
		buf.WriteString(s)
	}

	w(uint32(0xCAFEBABE))
	w(uint16(0))
	w(uint16(52))

	w(uint16(22)) // constant_pool_count
	utf8("A")                                       // #1
	buf.WriteByte(classfile.TagClass); w(uint16(1)) // #2 -> A
	utf8("java/lang/Object")                        // #3
	buf.WriteByte(classfile.TagClass); w(uint16(3)) // #4 -> Object
	utf8("m")                                       // #5
	utf8("()V")                                     // #6
	utf8("Code")                                    // #7
	utf8("get")                                     // #8
	utf8("()LI;")                                   // #9: factory descriptor
	buf.WriteByte(classfile.TagNameAndType); w(uint16(8)); w(uint16(9)) // #10
	utf8("java/lang/invoke/LambdaMetafactory")                          // #11
	buf.WriteByte(classfile.TagClass); w(uint16(11))                    // #12
	utf8("metafactory")                                                 // #13
	utf8("(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;[Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/CallSite;") // #14
	buf.WriteByte(classfile.TagNameAndType); w(uint16(13)); w(uint16(14)) // #15
	buf.WriteByte(classfile.TagMethodref); w(uint16(12)); w(uint16(15))   // #16
	buf.WriteByte(classfile.TagMethodHandle); buf.WriteByte(6); w(uint16(16)) // #17
	utf8("()Ljava/lang/String;")                                        // #18: SAM specialized desc
	buf.WriteByte(classfile.TagMethodType); w(uint16(18))                // #19
	utf8("BootstrapMethods")                                            // #20
	buf.WriteByte(classfile.TagInvokeDynamic); w(uint16(0)); w(uint16(10)) // #21

	w(uint16(0x0021)) // access
	w(uint16(2))      // this_class
	w(uint16(4))      // super_class
	w(uint16(0))      // interfaces_count

	w(uint16(0)) // fields_count

	w(uint16(1)) // methods_count
	w(uint16(1)) // access: public
	w(uint16(5)) // name -> "m"
	w(uint16(6)) // desc -> "()V"
	w(uint16(1)) // attributes_count
	w(uint16(7)) // attribute name -> "Code"

	code := []byte{186, 0, 21, 0, 0, 87, 177} // invokedynamic #21; pop; return
	var codeBuf bytes.Buffer
	cw := func(v interface{}) {
		if err := binary.Write(&codeBuf, binary.BigEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	cw(uint16(2))
	cw(uint16(1))
	cw(uint32(len(code)))
	codeBuf.Write(code)
	cw(uint16(0)) // exception_table_length
	cw(uint16(0)) // attributes_count

	w(uint32(codeBuf.Len()))
	buf.Write(codeBuf.Bytes())

	w(uint16(1)) // class attributes_count
	w(uint16(20)) // attribute name -> "BootstrapMethods"

	var bmBuf bytes.Buffer
	bw := func(v interface{}) {
		if err := binary.Write(&bmBuf, binary.BigEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	bw(uint16(1))  // num_bootstrap_methods
	bw(uint16(17)) // bootstrap_method_ref
	bw(uint16(1))  // num_bootstrap_arguments
	bw(uint16(19)) // arg[0] -> MethodType "()Ljava/lang/String;"

	w(uint32(bmBuf.Len()))
	buf.Write(bmBuf.Bytes())

	return buf.Bytes()
}

func lambdaRemapper(t *testing.T) *remap.Remapper {
	t.Helper()
	descGet := "()Ljava/lang/String;"
	m := mapping.Mappings{
		Namespaces: []string{"obf", "named"},
		Classes: []mapping.MappedClass{
			{Names: []string{"A", "A2"}},
			{
				Names: []string{"I", "I2"},
				Methods: []mapping.MappedMethod{
					{Names: []string{"get", "produce"}, Desc: descGet},
				},
			},
		},
	}
	r, err := remap.New(m, "obf", "named", nil)
	require.NoError(t, err)
	return r
}

// TestRemapVisitor_RewritesLambdaInvokedynoymic confirms the SAM owner
// used to look up the lambda implementation's new name is resolved
// from the invokedynamic call site's own descriptor return type (the
// functional interface, "I"), not from the bootstrap argument's
// specialized SAM signature (which names no class at all here).
func TestRemapVisitor_RewritesLambdaInvokedynoymic(t *testing.T) {
	r := lambdaRemapper(t)
	rw := NewClassRewriter(NewRemapVisitor(r))

	out, err := rw.RewriteClass(buildLambdaClass(t))
	require.NoError(t, err)

	cf, err := classfile.Read(out)
	require.NoError(t, err)

	codeIdx, attr := findAttr(cf.Methods[0].Attrs, "Code")
	require.GreaterOrEqual(t, codeIdx, 0)
	code, err := classfile.DecodeCode(attr.Data, cf.ConstantPool())
	require.NoError(t, err)
	require.Len(t, code.Instructions, 3)

	idx, ok := code.Instructions[0].CPIndex()
	require.True(t, ok)
	bsIdx, natIdx, err := cf.ConstantPool().InvokeDynamicRef(idx)
	require.NoError(t, err)
	require.EqualValues(t, 0, bsIdx)

	name, desc, err := cf.ConstantPool().NameAndType(natIdx)
	require.NoError(t, err)
	require.Equal(t, "produce", name)
	require.Equal(t, "()LI2;", desc)
}

func TestRewriteJar_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.jar")
	outPath := filepath.Join(dir, "out.jar")

	f, err := os.Create(inPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("A.class")
	require.NoError(t, err)
	_, err = w.Write(buildClass(t))
	require.NoError(t, err)
	w, err = zw.Create("META-INF/MANIFEST.MF")
	require.NoError(t, err)
	_, err = w.Write([]byte("Manifest-Version: 1.0\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	err = RewriteJar(inPath, outPath, func() *ClassRewriter {
		return NewClassRewriter(NewRemapVisitor(sampleRemapper(t)))
	}, 2)
	require.NoError(t, err)

	zr, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer zr.Close()

	names := map[string]bool{}
	for _, e := range zr.File {
		names[e.Name] = true
	}
	require.True(t, names["A.class"])
	require.True(t, names["META-INF/MANIFEST.MF"])
}

// buildClassWithEmptyFieldSignature builds the same class as buildClass
// but gives field f an empty-string Signature attribute, the shape a
// rewriter must normalize to "no signature present" rather than write
// back verbatim.
func buildClassWithEmptyFieldSignature(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	utf8 := func(s string) {
		buf.WriteByte(classfile.TagUTF8)
		w(uint16(len(s)))
		buf.WriteString(s)
	}

	w(uint32(0xCAFEBABE))
	w(uint16(0))  // minor
	w(uint16(52)) // major

	w(uint16(14)) // constant_pool_count
	utf8("A")                                       // #1
	buf.WriteByte(classfile.TagClass); w(uint16(1)) // #2 -> A
	utf8("java/lang/Object")                        // #3
	buf.WriteByte(classfile.TagClass); w(uint16(3)) // #4 -> Object
	utf8("f")                                       // #5
	utf8("I")                                       // #6
	utf8("m")                                       // #7
	utf8("()V")                                     // #8
	utf8("Code")                                    // #9
	buf.WriteByte(classfile.TagNameAndType); w(uint16(5)); w(uint16(6)) // #10
	buf.WriteByte(classfile.TagFieldref); w(uint16(2)); w(uint16(10))   // #11
	utf8("Signature")                               // #12
	utf8("")                                        // #13

	w(uint16(0x0021)) // access: public, super
	w(uint16(2))      // this_class
	w(uint16(4))      // super_class
	w(uint16(0))      // interfaces_count

	w(uint16(1))  // fields_count
	w(uint16(0))  // access
	w(uint16(5))  // name -> "f"
	w(uint16(6))  // desc -> "I"
	w(uint16(1))  // attributes_count
	w(uint16(12)) // attribute name -> "Signature"
	w(uint32(2))  // attribute_length
	w(uint16(13)) // signature_index -> ""

	w(uint16(0)) // methods_count
	w(uint16(0)) // class attributes_count

	return buf.Bytes()
}

func TestRemapVisitor_DropsEmptySignatureAttr(t *testing.T) {
	r := sampleRemapper(t)
	rw := NewClassRewriter(NewRemapVisitor(r))

	out, err := rw.RewriteClass(buildClassWithEmptyFieldSignature(t))
	require.NoError(t, err)

	cf, err := classfile.Read(out)
	require.NoError(t, err)
	require.Len(t, cf.Fields, 1)

	idx, _ := findAttr(cf.Fields[0].Attrs, "Signature")
	require.Equal(t, -1, idx, "an empty mapped signature must be dropped, not rewritten as an empty UTF8 entry")
}
