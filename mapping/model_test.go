/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package mapping

import (
	"testing"

	"github.com/Weave-MC/mappings-util/mappingerrors"
)

func sampleMappings() Mappings {
	return Mappings{
		Namespaces: []string{"obf", "named"},
		Classes: []MappedClass{
			{
				Names: []string{"a", "Foo"},
				Methods: []MappedMethod{
					{Names: []string{"a", "hello"}, Desc: "(I)V"},
				},
			},
		},
	}
}

func TestNamespaceIndex(t *testing.T) {
	m := sampleMappings()
	idx, err := m.NamespaceIndex("named")
	if err != nil || idx != 1 {
		t.Fatalf("got idx=%d err=%v", idx, err)
	}
}

func TestNamespaceIndex_NotFound(t *testing.T) {
	m := sampleMappings()
	_, err := m.NamespaceIndex("bogus")
	if !mappingerrors.Is(err, mappingerrors.NamespaceNotFound) {
		t.Fatalf("expected NamespaceNotFound, got %v", err)
	}
}

func TestValidate_OK(t *testing.T) {
	if err := sampleMappings().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidate_ArityMismatch(t *testing.T) {
	m := sampleMappings()
	m.Classes[0].Names = []string{"only-one"}
	if err := m.Validate(); !mappingerrors.Is(err, mappingerrors.ArityMismatch) {
		t.Fatalf("expected ArityMismatch, got %v", err)
	}
}

func TestValidate_NoNamespaces(t *testing.T) {
	m := Mappings{}
	if err := m.Validate(); !mappingerrors.Is(err, mappingerrors.ArityMismatch) {
		t.Fatalf("expected ArityMismatch, got %v", err)
	}
}

func TestAsFlatMap(t *testing.T) {
	m := sampleMappings()
	flat, err := m.AsFlatMap("obf", "named", true, true)
	if err != nil {
		t.Fatal(err)
	}
	want := FlatKey{Kind: FlatKeyMethod, Owner: "a", Name: "a", Desc: "(I)V"}
	got, ok := flat[want]
	if !ok || got != "hello" {
		t.Fatalf("flat[%v] = %q, %v", want, got, ok)
	}
	classKey := FlatKey{Kind: FlatKeyClass, Owner: "a"}
	if flat[classKey] != "Foo" {
		t.Fatalf("class entry = %q", flat[classKey])
	}
}

func TestAsFlatMap_ExcludesConstructors(t *testing.T) {
	m := sampleMappings()
	m.Classes[0].Methods = append(m.Classes[0].Methods, MappedMethod{
		Names: []string{"<init>", "<init>"}, Desc: "()V",
	})
	flat, err := m.AsFlatMap("obf", "named", true, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := flat[FlatKey{Kind: FlatKeyMethod, Owner: "a", Name: "<init>", Desc: "()V"}]; ok {
		t.Fatal("constructor should be excluded from the flat map")
	}
}

func TestFlatKeyString(t *testing.T) {
	cases := []struct {
		k    FlatKey
		want string
	}{
		{FlatKey{Kind: FlatKeyClass, Owner: "a/b"}, "a/b"},
		{FlatKey{Kind: FlatKeyField, Owner: "a/b", Name: "f"}, "a/b.f"},
		{FlatKey{Kind: FlatKeyMethod, Owner: "a/b", Name: "m", Desc: "(I)V"}, "a/b.m(I)V"},
	}
	for _, c := range cases {
		if got := c.k.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestIsConstructorLike(t *testing.T) {
	m := MappedMethod{Names: []string{"<init>", "<init>"}}
	if !m.IsConstructorLike() {
		t.Fatal("expected <init> to be constructor-like")
	}
	m2 := MappedMethod{Names: []string{"a", "hello"}}
	if m2.IsConstructorLike() {
		t.Fatal("did not expect hello to be constructor-like")
	}
}
