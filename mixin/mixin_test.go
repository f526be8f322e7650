/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package mixin

import (
	"testing"

	"github.com/Weave-MC/mappings-util/classfile"
	"github.com/Weave-MC/mappings-util/mapping"
	"github.com/Weave-MC/mappings-util/remap"
)

func sampleMappings() mapping.Mappings {
	return mapping.Mappings{
		Namespaces: []string{"obf", "named"},
		Classes: []mapping.MappedClass{
			{
				Names: []string{"Foo", "Foo_mapped"},
				Methods: []mapping.MappedMethod{
					{Names: []string{"bar", "zap"}, Desc: "(I)V"},
				},
				Fields: []mapping.MappedField{
					{Names: []string{"f", "g"}},
				},
			},
		},
	}
}

func newTestRemapper(t *testing.T) *remap.Remapper {
	t.Helper()
	r, err := remap.New(sampleMappings(), "obf", "named", nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRewriteTarget_MethodForm(t *testing.T) {
	r := newTestRemapper(t)
	got, err := rewriteTarget("LFoo;bar(I)V", r)
	if err != nil {
		t.Fatal(err)
	}
	if got != "LFoo_mapped;zap(I)V" {
		t.Fatalf("got %q", got)
	}
}

func TestRewriteTarget_FieldForm(t *testing.T) {
	r := newTestRemapper(t)
	got, err := rewriteTarget("LFoo;f", r)
	if err != nil {
		t.Fatal(err)
	}
	if got != "LFoo_mapped;g" {
		t.Fatalf("got %q", got)
	}
}

func TestRewriteValue_Method(t *testing.T) {
	r := newTestRemapper(t)
	got, err := rewriteValue("Foo", "method", "bar(I)V", r)
	if err != nil {
		t.Fatal(err)
	}
	if got != "zap(I)V" {
		t.Fatalf("got %q", got)
	}
}

func TestRewriteValue_Field(t *testing.T) {
	r := newTestRemapper(t)
	got, err := rewriteValue("Foo", "field", "f", r)
	if err != nil {
		t.Fatal(err)
	}
	if got != "g" {
		t.Fatalf("got %q", got)
	}
}

func TestFindTarget(t *testing.T) {
	anns := []classfile.Annotation{
		{
			TypeDesc: TypePrefix + "/Mixin;",
			Pairs: []classfile.AnnotationPair{
				{Name: "value", Value: classfile.ElementValue{
					Tag:   '[',
					Array: []classfile.ElementValue{{Tag: 'c', ClassDesc: "LFoo;"}},
				}},
			},
		},
	}
	owner, ok := FindTarget(anns)
	if !ok || owner != "Foo" {
		t.Fatalf("got %q, %v", owner, ok)
	}
}

func TestRewriteValue_MalformedFieldPassesThrough(t *testing.T) {
	r := newTestRemapper(t)
	_, err := rewriteValue("Foo", "field", "bar(I)V", r)
	if err == nil {
		t.Fatal("expected a parse error for a field value containing '('")
	}
}
