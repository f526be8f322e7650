/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package descriptor

import "testing"

func identity(s string) string { return s }

func upper(s string) string {
	if s == "a/Foo" {
		return "a/Bar"
	}
	return s
}

func TestMapTypeDesc_Primitive(t *testing.T) {
	out, err := MapTypeDesc("I", identity)
	if err != nil || out != "I" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestMapTypeDesc_Array(t *testing.T) {
	out, err := MapTypeDesc("[[La/Foo;", upper)
	if err != nil {
		t.Fatal(err)
	}
	if out != "[[La/Bar;" {
		t.Fatalf("got %q", out)
	}
}

func TestMapTypeDesc_MalformedMissingSemicolon(t *testing.T) {
	_, err := MapTypeDesc("La/Foo", identity)
	if err == nil {
		t.Fatal("expected error for unterminated class type")
	}
}

func TestMapMethodDesc(t *testing.T) {
	out, err := MapMethodDesc("(ILa/Foo;[J)La/Foo;", upper)
	if err != nil {
		t.Fatal(err)
	}
	want := "(ILa/Bar;[J)La/Bar;"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMapMethodDesc_NoParams(t *testing.T) {
	out, err := MapMethodDesc("()V", identity)
	if err != nil || out != "()V" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestParseMethodDecl(t *testing.T) {
	name, desc, err := ParseMethodDecl("hello(I)V")
	if err != nil {
		t.Fatal(err)
	}
	if name != "hello" || desc != "(I)V" {
		t.Fatalf("got name=%q desc=%q", name, desc)
	}
}

func TestParseTarget_Method(t *testing.T) {
	tgt, err := ParseTarget("Foo.bar(I)V")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Owner != "Foo" || tgt.Name != "bar" || tgt.Desc != "(I)V" || !tgt.IsMethod() {
		t.Fatalf("got %+v", tgt)
	}
}

func TestParseTarget_Field(t *testing.T) {
	tgt, err := ParseTarget("Foo.bar")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Owner != "Foo" || tgt.Name != "bar" || tgt.IsMethod() {
		t.Fatalf("got %+v", tgt)
	}
}

func TestParseTarget_Malformed(t *testing.T) {
	if _, err := ParseTarget("nodothere"); err == nil {
		t.Fatal("expected error for missing '.'")
	}
}

func TestReturnInternalName(t *testing.T) {
	name, err := ReturnInternalName("(I)LFoo;")
	if err != nil {
		t.Fatal(err)
	}
	if name != "Foo" {
		t.Fatalf("got %q", name)
	}
}

func TestReturnInternalName_NotAReference(t *testing.T) {
	if _, err := ReturnInternalName("(I)V"); err == nil {
		t.Fatal("expected error, V is not a reference type")
	}
}

func TestMapSignature_Simple(t *testing.T) {
	out, err := MapSignature("La/Foo;", upper)
	if err != nil {
		t.Fatal(err)
	}
	if out != "La/Bar;" {
		t.Fatalf("got %q", out)
	}
}

func TestMapSignature_TypeVariablePreserved(t *testing.T) {
	sig := "Ljava/util/List<TE;>;"
	out, err := MapSignature(sig, identity)
	if err != nil {
		t.Fatal(err)
	}
	if out != sig {
		t.Fatalf("got %q, want unchanged %q", out, sig)
	}
}

func TestMapSignature_NestedGeneric(t *testing.T) {
	sig := "La/Foo<La/Foo;>;"
	out, err := MapSignature(sig, upper)
	if err != nil {
		t.Fatal(err)
	}
	want := "La/Bar<La/Bar;>;"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMapSignature_Wildcards(t *testing.T) {
	sig := "Ljava/util/List<+La/Foo;>;"
	out, err := MapSignature(sig, upper)
	if err != nil {
		t.Fatal(err)
	}
	want := "Ljava/util/List<+La/Bar;>;"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMapSignature_MemberSuffix(t *testing.T) {
	sig := "La/Foo<TT;>.Inner;"
	out, err := MapSignature(sig, upper)
	if err != nil {
		t.Fatal(err)
	}
	want := "La/Bar<TT;>.Inner;"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestMapSignature_MethodSignature(t *testing.T) {
	sig := "<T:Ljava/lang/Object;>(TT;La/Foo;)La/Foo;"
	out, err := MapSignature(sig, upper)
	if err != nil {
		t.Fatal(err)
	}
	want := "<T:Ljava/lang/Object;>(TT;La/Bar;)La/Bar;"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}
