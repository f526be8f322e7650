/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package remap

import (
	"testing"

	"github.com/Weave-MC/mappings-util/loader"
	"github.com/Weave-MC/mappings-util/mapping"
)

func sample() mapping.Mappings {
	return mapping.Mappings{
		Namespaces: []string{"obf", "named"},
		Classes: []mapping.MappedClass{
			{
				Names: []string{"a", "Foo"},
				Methods: []mapping.MappedMethod{
					{Names: []string{"a", "hello"}, Desc: "()V"},
				},
			},
			{
				Names: []string{"b", "Bar"},
			},
		},
	}
}

func strPtr(s string) *string { return &s }

// sampleWithFields is sample() plus a field on class "a" whose type is
// class "a" itself (so its descriptor exercises the same class-name
// remap as the class/method lookups).
func sampleWithFields() mapping.Mappings {
	m := sample()
	m.Classes[0].Fields = []mapping.MappedField{
		{Names: []string{"f", "value"}, Desc: strPtr("La;")},
	}
	return m
}

// chain3 is a three-namespace "obf" -> "intermediate" -> "named"
// mapping where class "a" and its field/method change names at every
// hop, used to exercise a Remapper whose from namespace isn't
// mappings.Namespaces[0].
func chain3() mapping.Mappings {
	return mapping.Mappings{
		Namespaces: []string{"obf", "intermediate", "named"},
		Classes: []mapping.MappedClass{
			{
				Names: []string{"a", "mid_a", "Foo"},
				Fields: []mapping.MappedField{
					{Names: []string{"f", "mid_f", "value"}, Desc: strPtr("La;")},
				},
				Methods: []mapping.MappedMethod{
					{Names: []string{"a", "mid_m", "hello"}, Desc: "(La;)V"},
				},
			},
		},
	}
}

func TestMapClass(t *testing.T) {
	r, err := New(sample(), "obf", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.MapClass("a"); got != "Foo" {
		t.Fatalf("MapClass = %q", got)
	}
	if got := r.MapClass("unmapped"); got != "unmapped" {
		t.Fatalf("unmapped class should pass through unchanged, got %q", got)
	}
}

func TestMapMethodName_Direct(t *testing.T) {
	r, err := New(sample(), "obf", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.MapMethodName("a", "a", "()V")
	if err != nil || got != "hello" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestMapMethodName_ConstructorNeverMapped(t *testing.T) {
	r, err := New(sample(), "obf", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.MapMethodName("a", "<init>", "()V")
	if err != nil || got != "<init>" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestMapMethodName_UnloadableOwnerPassesThrough(t *testing.T) {
	m := sample()
	classBytes := map[string][]byte{}
	load := loader.Loader(func(name string) ([]byte, error) { return classBytes[name], nil })

	r, err := New(m, "obf", "named", load)
	if err != nil {
		t.Fatal(err)
	}
	// "c" has no mapping of its own and isn't loadable, so its method
	// name passes through unchanged rather than erroring.
	got, err := r.MapMethodName("c", "a", "()V")
	if err != nil || got != "a" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestMapFieldName_Direct(t *testing.T) {
	r, err := New(sampleWithFields(), "obf", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.MapFieldName("a", "f", "La;")
	if err != nil || got != "value" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestMapFieldName_UnmappedFallsBackToName(t *testing.T) {
	r, err := New(sample(), "obf", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.MapFieldName("unknown", "f", "La;")
	if err != nil || got != "f" {
		t.Fatalf("got %q, %v", got, err)
	}
}

// TestMapFieldName_FromNonNamespaceZero and
// TestMapMethodName_FromNonNamespaceZero pin the §4.D descriptor
// re-encoding fix: a Remapper built with from != mappings.Namespaces[0]
// must re-express its caller's descriptor (given in the Remapper's own
// from namespace) into namespace-0 form before using it as a flat-map
// lookup key, since AsFlatMap always stores descriptors that way.
func TestMapFieldName_FromNonNamespaceZero(t *testing.T) {
	r, err := New(chain3(), "intermediate", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.MapFieldName("mid_a", "mid_f", "Lmid_a;")
	if err != nil || got != "value" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestMapMethodName_FromNonNamespaceZero(t *testing.T) {
	r, err := New(chain3(), "intermediate", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.MapMethodName("mid_a", "mid_m", "(Lmid_a;)V")
	if err != nil || got != "hello" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestMapTypeDesc(t *testing.T) {
	r, err := New(sample(), "obf", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.MapTypeDesc("La;")
	if err != nil || got != "LFoo;" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestReverse(t *testing.T) {
	r, err := New(sample(), "obf", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	rev, err := r.Reverse()
	if err != nil {
		t.Fatal(err)
	}
	if got := rev.MapClass("Foo"); got != "a" {
		t.Fatalf("reversed MapClass = %q", got)
	}
}
