/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package hierarchy

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/Weave-MC/mappings-util/classfile"
)

// buildClass assembles the raw bytes of a class with the given super
// and interfaces, no fields/methods/attributes -- just enough for
// Walk to read SuperClass/Interfaces back out.
func buildClass(t *testing.T, super string, interfaces []string) []byte {
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
	classRef := func(nameIdx uint16) {
		buf.WriteByte(classfile.TagClass)
		w(nameIdx)
	}

	w(uint32(0xCAFEBABE))
	w(uint16(0))
	w(uint16(52))

	// #1 Utf8 "this" (unused name, walker doesn't need ThisClass)
	// #2 Class -> #1
	// #3 Utf8 super ; #4 Class -> #3
	// then one Utf8/Class pair per interface
	count := 2 + 2 + 2*len(interfaces)
	w(uint16(count + 1))

	utf8("x")
	classRef(1)
	utf8(super)
	classRef(3)
	next := uint16(5)
	ifaceIdx := make([]uint16, len(interfaces))
	for i, iface := range interfaces {
		utf8(iface)
		classRef(next)
		ifaceIdx[i] = next + 1
		next += 2
	}

	w(uint16(0x0021))
	w(uint16(2)) // this_class
	superIdx := uint16(0)
	if super != "" {
		superIdx = 4
	}
	w(superIdx)
	w(uint16(len(ifaceIdx)))
	for _, idx := range ifaceIdx {
		w(idx)
	}
	w(uint16(0)) // fields
	w(uint16(0)) // methods
	w(uint16(0)) // attrs

	return buf.Bytes()
}

func TestWalk_FindsSelf(t *testing.T) {
	name, err := Walk(nil, "a/A", ByName("a/A"))
	if err != nil || name != "a/A" {
		t.Fatalf("got %q, %v", name, err)
	}
}

func TestWalk_FindsSuperclass(t *testing.T) {
	classes := map[string][]byte{
		"a/A": buildClass(t, "a/B", nil),
		"a/B": buildClass(t, "java/lang/Object", []string{"a/I"}),
	}
	load := func(name string) ([]byte, error) { return classes[name], nil }

	name, err := Walk(load, "a/A", ByName("java/lang/Object"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "java/lang/Object" {
		t.Fatalf("got %q", name)
	}
}

func TestWalk_SuperclassBeforeInterfaces(t *testing.T) {
	classes := map[string][]byte{
		"a/A": buildClass(t, "a/B", []string{"a/I"}),
	}
	load := func(name string) ([]byte, error) { return classes[name], nil }

	var seen []string
	pred := func(n string) bool {
		seen = append(seen, n)
		return n == "a/B" || n == "a/I"
	}
	name, err := Walk(load, "a/A", pred)
	if err != nil {
		t.Fatal(err)
	}
	if name != "a/B" {
		t.Fatalf("expected superclass to win, got %q", name)
	}
}

func TestWalk_UnknownClassIsTerminalLeaf(t *testing.T) {
	load := func(string) ([]byte, error) { return nil, nil }
	name, err := Walk(load, "a/A", ByName("nonexistent"))
	if err != nil || name != "" {
		t.Fatalf("got %q, %v", name, err)
	}
}
