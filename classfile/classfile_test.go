/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// minimalClass builds the bytes of "public class a extends
// java/lang/Object" with no fields, methods, or attributes -- just
// enough to exercise Read/Write without a real compiler.
func minimalClass(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatal(err)
		}
	}

	w(uint32(classMagic))
	w(uint16(0))  // minor
	w(uint16(52)) // major

	w(uint16(5)) // constant_pool_count (1..4 used)
	// #1 Utf8 "a"
	buf.WriteByte(TagUTF8)
	w(uint16(1))
	buf.WriteString("a")
	// #2 Class -> #1
	buf.WriteByte(TagClass)
	w(uint16(1))
	// #3 Utf8 "java/lang/Object"
	buf.WriteByte(TagUTF8)
	w(uint16(16))
	buf.WriteString("java/lang/Object")
	// #4 Class -> #3
	buf.WriteByte(TagClass)
	w(uint16(3))

	w(uint16(0x0021)) // access: public, super
	w(uint16(2))      // this_class
	w(uint16(4))      // super_class
	w(uint16(0))      // interfaces_count
	w(uint16(0))      // fields_count
	w(uint16(0))      // methods_count
	w(uint16(0))      // attributes_count

	return buf.Bytes()
}

func TestReadMinimalClass(t *testing.T) {
	cf, err := Read(minimalClass(t))
	if err != nil {
		t.Fatal(err)
	}
	if cf.ThisClass != "a" {
		t.Errorf("ThisClass = %q", cf.ThisClass)
	}
	if cf.SuperClass != "java/lang/Object" {
		t.Errorf("SuperClass = %q", cf.SuperClass)
	}
	if cf.MajorVersion != 52 {
		t.Errorf("MajorVersion = %d", cf.MajorVersion)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	cf, err := Read(minimalClass(t))
	if err != nil {
		t.Fatal(err)
	}
	cf.ThisClass = "b"

	data, err := Write(cf)
	if err != nil {
		t.Fatal(err)
	}

	cf2, err := Read(data)
	if err != nil {
		t.Fatalf("re-reading written class: %v", err)
	}
	if cf2.ThisClass != "b" {
		t.Errorf("ThisClass after round-trip = %q", cf2.ThisClass)
	}
	if cf2.SuperClass != "java/lang/Object" {
		t.Errorf("SuperClass after round-trip = %q", cf2.SuperClass)
	}
}

func TestDecodeEncodeInstructions(t *testing.T) {
	// aload_0 ; invokespecial #1 ; return
	code := []byte{42, 183, 0, 1, 177}
	instrs, err := DecodeInstructions(code)
	if err != nil {
		t.Fatal(err)
	}
	if len(instrs) != 3 {
		t.Fatalf("got %d instructions", len(instrs))
	}
	idx, ok := instrs[1].CPIndex()
	if !ok || idx != 1 {
		t.Fatalf("CPIndex = %d, %v", idx, ok)
	}
	instrs[1].SetCPIndex(7)
	out := EncodeInstructions(instrs)
	want := []byte{42, 183, 0, 7, 177}
	if !bytes.Equal(out, want) {
		t.Fatalf("got %v, want %v", out, want)
	}
}

func TestDecodeInstructions_Tableswitch(t *testing.T) {
	// tableswitch at offset 0: pad 3 bytes, default=20, low=0, high=1, 2 targets
	code := []byte{
		opTableswitch,
		0, 0, 0, // padding
		0, 0, 0, 20, // default
		0, 0, 0, 0, // low
		0, 0, 0, 1, // high
		0, 0, 0, 10, // target 0
		0, 0, 0, 11, // target 1
	}
	instrs, err := DecodeInstructions(code)
	if err != nil {
		t.Fatal(err)
	}
	if len(instrs) != 1 {
		t.Fatalf("got %d instructions", len(instrs))
	}
	out := EncodeInstructions(instrs)
	if !bytes.Equal(out, code) {
		t.Fatalf("tableswitch did not round-trip: got %v", out)
	}
}
