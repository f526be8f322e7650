/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package mapping is the immutable, multi-namespace symbol-table model
// (spec §3). Mirrors the parallel-index shape Jacobin's ParsedClass
// uses for a single namespace (classNameIndex, superClassIndex, the
// name/description index pairs on field and method) generalized to N
// namespaces held as parallel Names slices.
package mapping

import (
	"github.com/Weave-MC/mappings-util/mappingerrors"
)

// Namespace is a string label identifying one naming scheme.
type Namespace = string

// MappedParameter is a formal parameter name, kept only on
// non-joined methods (spec §4.E rule 7: joined methods drop
// parameters/locals).
type MappedParameter struct {
	Index int
	Names []string
}

// MappedLocal is a local-variable record, kept only on non-joined
// methods.
type MappedLocal struct {
	Index   int
	StartPc int
	Names   []string
	Desc    string
}

// MappedMethod is one method entry across all namespaces of a class.
// Desc is always the JVM method descriptor in namespace 0 (invariant
// 3).
type MappedMethod struct {
	Names      []string
	Comments   []string
	Desc       string
	Parameters []MappedParameter
	Variables  []MappedLocal
}

// IsConstructorLike reports whether this method's name is "<init>" or
// "<clinit>" -- these never participate in cross-namespace translation
// (invariant 5).
func (m MappedMethod) IsConstructorLike() bool {
	if len(m.Names) == 0 {
		return false
	}
	n := m.Names[0]
	return n == "<init>" || n == "<clinit>"
}

// Key returns the (name[0], desc) uniqueness key used within a class
// (invariant 4).
func (m MappedMethod) Key() (string, string) {
	name := ""
	if len(m.Names) > 0 {
		name = m.Names[0]
	}
	return name, m.Desc
}

// MappedField is one field entry across all namespaces of a class.
// Desc, when present, is the JVM type descriptor in namespace 0.
type MappedField struct {
	Names    []string
	Comments []string
	Desc     *string
}

// Key returns the name[0] uniqueness key used within a class
// (invariant 4).
func (f MappedField) Key() string {
	if len(f.Names) == 0 {
		return ""
	}
	return f.Names[0]
}

// MappedClass is one class entry. Names[i] is the internal class name
// (slash-separated) in namespace i.
type MappedClass struct {
	Names    []string
	Comments []string
	Fields   []MappedField
	Methods  []MappedMethod
}

// Mappings is the top-level, immutable document: an ordered sequence
// of namespaces plus the classes defined across them. Format is a
// free-form tag for serialization only (e.g. "tiny-2", "srg"); this
// core never interprets it.
type Mappings struct {
	Namespaces []Namespace
	Classes    []MappedClass
	Format     string
}

// NamespaceIndex returns the index of the given namespace label.
func (m Mappings) NamespaceIndex(name Namespace) (int, error) {
	for i, n := range m.Namespaces {
		if n == name {
			return i, nil
		}
	}
	return -1, mappingerrors.Newf(mappingerrors.NamespaceNotFound, "namespace %q not found", name)
}

// Validate checks invariants 1 and 2 from spec §3.2: every entity's
// Names length matches the namespace count, and there is at least one
// namespace. Invariant 2's duplicate-namespace rule is enforced by
// individual algebra operations, not here, since FilterNamespaces keeps
// every namespace its predicate accepts, duplicate labels included.
func (m Mappings) Validate() error {
	if len(m.Namespaces) < 1 {
		return mappingerrors.New(mappingerrors.ArityMismatch, "mappings must have at least one namespace")
	}
	n := len(m.Namespaces)
	for ci, c := range m.Classes {
		if len(c.Names) != n {
			return mappingerrors.Newf(mappingerrors.ArityMismatch,
				"class %d has %d names, want %d", ci, len(c.Names), n)
		}
		for fi, f := range c.Fields {
			if len(f.Names) != n {
				return mappingerrors.Newf(mappingerrors.ArityMismatch,
					"class %d field %d has %d names, want %d", ci, fi, len(f.Names), n)
			}
		}
		for mi, meth := range c.Methods {
			if len(meth.Names) != n {
				return mappingerrors.Newf(mappingerrors.ArityMismatch,
					"class %d method %d has %d names, want %d", ci, mi, len(meth.Names), n)
			}
		}
	}
	return nil
}

// FlatKeyKind distinguishes the three key shapes AsFlatMap can
// produce, per spec §4.B/§6.
type FlatKeyKind int

const (
	FlatKeyClass FlatKeyKind = iota
	FlatKeyField
	FlatKeyMethod
)

// FlatKey is one entry of the flat map the remapper's fast path reads
// from (spec §4.B, wire format in spec §6).
type FlatKey struct {
	Kind  FlatKeyKind
	Owner string // from-name of the owning class
	Name  string // from-name of the member (empty for FlatKeyClass)
	Desc  string // namespace-0 desc; always set for methods, only when known for fields
}

// String renders the key the way the wire format describes it in spec
// §6: "<owner>", "<owner>.<name>", or "<owner>.<name><desc>".
func (k FlatKey) String() string {
	switch k.Kind {
	case FlatKeyClass:
		return k.Owner
	case FlatKeyMethod:
		return k.Owner + "." + k.Name + k.Desc
	default:
		return k.Owner + "." + k.Name
	}
}

// AsFlatMap builds the remapper's fast-path lookup table: class,
// field, and/or method entries keyed per spec §4.B, mapping the
// from-namespace name to the to-namespace name.
func (m Mappings) AsFlatMap(from, to Namespace, includeMethods, includeFields bool) (map[FlatKey]string, error) {
	fi, err := m.NamespaceIndex(from)
	if err != nil {
		return nil, err
	}
	ti, err := m.NamespaceIndex(to)
	if err != nil {
		return nil, err
	}

	out := make(map[FlatKey]string)
	for _, c := range m.Classes {
		fromOwner := c.Names[fi]
		toOwner := c.Names[ti]
		out[FlatKey{Kind: FlatKeyClass, Owner: fromOwner}] = toOwner

		if includeFields {
			for _, f := range c.Fields {
				key := FlatKey{Kind: FlatKeyField, Owner: fromOwner, Name: f.Names[fi]}
				if f.Desc != nil {
					key.Desc = *f.Desc
				}
				out[key] = f.Names[ti]
			}
		}
		if includeMethods {
			for _, meth := range c.Methods {
				if meth.IsConstructorLike() {
					continue
				}
				out[FlatKey{Kind: FlatKeyMethod, Owner: fromOwner, Name: meth.Names[fi], Desc: meth.Desc}] = meth.Names[ti]
			}
		}
	}
	return out, nil
}
