/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package remap implements the inheritance-aware remapper (spec §4.D):
// given a Mappings and a source/target namespace pair, it answers
// "what does this class/field/method/descriptor become", walking the
// class hierarchy through a pluggable loader.Loader when a member
// isn't declared directly on its owner but inherited from a supertype
// or interface.
package remap

import (
	"sync"

	"github.com/Weave-MC/mappings-util/descriptor"
	"github.com/Weave-MC/mappings-util/hierarchy"
	"github.com/Weave-MC/mappings-util/loader"
	"github.com/Weave-MC/mappings-util/mapping"
	"github.com/Weave-MC/mappings-util/mappingerrors"
)

// Remapper answers class/member/descriptor rename queries for one
// (from, to) namespace pair of a Mappings tree.
type Remapper struct {
	mappings mapping.Mappings
	from, to mapping.Namespace
	load     loader.Loader

	classes map[string]string
	fields  map[mapping.FlatKey]string
	methods map[mapping.FlatKey]string

	// selfMap lazily wraps MapClass as a descriptor.MapFunc. Building
	// it eagerly in New would force every Remapper to pay for a
	// closure allocation even when only MapClass itself is ever
	// called; sync.Once defers that to the first descriptor/signature
	// lookup, and also gives every later descriptor remap a stable,
	// non-recursive view of MapClass rather than re-closing over it.
	selfMapOnce sync.Once
	selfMap     descriptor.MapFunc

	// base is the (from -> mappings.Namespaces[0]) Remapper used to
	// re-express an incoming field/method descriptor into namespace-0
	// form before it's used as a flat-map lookup key (spec §4.D's
	// descriptor re-encoding): AsFlatMap's keys are always built from
	// namespace-0 descriptors, but a caller passes one expressed in
	// this Remapper's own from namespace. Built lazily, and only when
	// from isn't already namespace 0.
	baseOnce sync.Once
	base     *Remapper
	baseErr  error
}

// New builds a Remapper for the (from, to) namespace pair of m. load
// resolves ancestor classes for inherited-member lookups; pass
// loader.None to disable inheritance resolution (mapping-only mode,
// spec §9), in which case only members declared directly on a class
// are found.
func New(m mapping.Mappings, from, to mapping.Namespace, load loader.Loader) (*Remapper, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	classes, err := m.AsFlatMap(from, to, false, false)
	if err != nil {
		return nil, err
	}
	fields, err := m.AsFlatMap(from, to, false, true)
	if err != nil {
		return nil, err
	}
	methods, err := m.AsFlatMap(from, to, true, false)
	if err != nil {
		return nil, err
	}

	classNames := make(map[string]string, len(classes))
	for k, v := range classes {
		if k.Kind == mapping.FlatKeyClass {
			classNames[k.Owner] = v
		}
	}

	if load == nil {
		load = loader.None
	}

	return &Remapper{
		mappings: m, from: from, to: to, load: load,
		classes: classNames, fields: fields, methods: methods,
	}, nil
}

func (r *Remapper) mapFunc() descriptor.MapFunc {
	r.selfMapOnce.Do(func() {
		r.selfMap = r.MapClass
	})
	return r.selfMap
}

// baseRemapper lazily builds r's namespace-0 sibling, or returns nil
// when r.from already is namespace 0 (the common case, and the one
// that would otherwise recurse building itself).
func (r *Remapper) baseRemapper() (*Remapper, error) {
	if r.from == r.mappings.Namespaces[0] {
		return nil, nil
	}
	r.baseOnce.Do(func() {
		r.base, r.baseErr = New(r.mappings, r.from, r.mappings.Namespaces[0], r.load)
	})
	return r.base, r.baseErr
}

// fieldDescToNamespaceZero re-expresses a field type descriptor given
// in r.from into its namespace-0 form.
func (r *Remapper) fieldDescToNamespaceZero(desc string) (string, error) {
	base, err := r.baseRemapper()
	if err != nil {
		return "", err
	}
	if base == nil {
		return desc, nil
	}
	return base.MapTypeDesc(desc)
}

// methodDescToNamespaceZero re-expresses a method descriptor given in
// r.from into its namespace-0 form.
func (r *Remapper) methodDescToNamespaceZero(desc string) (string, error) {
	base, err := r.baseRemapper()
	if err != nil {
		return "", err
	}
	if base == nil {
		return desc, nil
	}
	return base.MapMethodDesc(desc)
}

// MapClass maps a class's internal name. Unmapped classes are
// returned unchanged (spec §4.D: a remap miss is a silent identity,
// never an error).
func (r *Remapper) MapClass(internalName string) string {
	if mapped, ok := r.classes[internalName]; ok {
		return mapped
	}
	return internalName
}

// MapFieldName maps a field's name, walking owner's supertypes and
// interfaces (superclass before interfaces, per spec §4.D) when owner
// itself has no mapping for name. desc is re-expressed into
// namespace-0 form before lookup, since that's the basis AsFlatMap's
// keys carry it in whenever a mapping format records field types; a
// mapping format that doesn't record them stores no desc at all, so
// the desc-qualified lookup falls back to a name-only one.
func (r *Remapper) MapFieldName(owner, name, desc string) (string, error) {
	desc0, err := r.fieldDescToNamespaceZero(desc)
	if err != nil {
		return "", err
	}
	if mapped, ok := r.lookupField(owner, name, desc0); ok {
		return mapped, nil
	}
	found, err := hierarchy.Walk(r.load, owner, func(ancestor string) bool {
		_, ok := r.lookupField(ancestor, name, desc0)
		return ok
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return name, nil
	}
	mapped, _ := r.lookupField(found, name, desc0)
	return mapped, nil
}

func (r *Remapper) lookupField(owner, name, desc0 string) (string, bool) {
	if mapped, ok := r.fields[mapping.FlatKey{Kind: mapping.FlatKeyField, Owner: owner, Name: name, Desc: desc0}]; ok {
		return mapped, true
	}
	return r.fields[mapping.FlatKey{Kind: mapping.FlatKeyField, Owner: owner, Name: name}]
}

// MapMethodName maps a method's name the same way MapFieldName maps a
// field's, except <init>/<clinit> are never looked up (spec §4.B: they
// are never translated). desc is re-expressed into namespace-0 form
// before lookup, since AsFlatMap's method keys always carry it that
// way (invariant 3).
func (r *Remapper) MapMethodName(owner, name, desc string) (string, error) {
	if name == "<init>" || name == "<clinit>" {
		return name, nil
	}
	desc0, err := r.methodDescToNamespaceZero(desc)
	if err != nil {
		return "", err
	}
	key := mapping.FlatKey{Kind: mapping.FlatKeyMethod, Owner: owner, Name: name, Desc: desc0}
	if mapped, ok := r.methods[key]; ok {
		return mapped, nil
	}
	found, err := hierarchy.Walk(r.load, owner, func(ancestor string) bool {
		_, ok := r.methods[mapping.FlatKey{Kind: mapping.FlatKeyMethod, Owner: ancestor, Name: name, Desc: desc0}]
		return ok
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return name, nil
	}
	return r.methods[mapping.FlatKey{Kind: mapping.FlatKeyMethod, Owner: found, Name: name, Desc: desc0}], nil
}

// MapRecordComponentName maps a record component's name. The class
// file format gives record components no identity of their own beyond
// name+descriptor (JVMS §4.7.30), and javac always backs a component
// with an instance field of the same name and descriptor, so this is
// exactly a field-name lookup.
func (r *Remapper) MapRecordComponentName(owner, name, desc string) (string, error) {
	return r.MapFieldName(owner, name, desc)
}

// MapTypeDesc maps every internal class name in a field descriptor.
func (r *Remapper) MapTypeDesc(desc string) (string, error) {
	return descriptor.MapTypeDesc(desc, r.mapFunc())
}

// MapMethodDesc maps every internal class name in a method descriptor.
func (r *Remapper) MapMethodDesc(desc string) (string, error) {
	return descriptor.MapMethodDesc(desc, r.mapFunc())
}

// MapSignature maps every internal class name in a generic signature
// (JVMS §4.7.9.1), leaving type variables untouched.
func (r *Remapper) MapSignature(sig string) (string, error) {
	return descriptor.MapSignature(sig, r.mapFunc())
}

// Reverse swaps from/to, returning a Remapper for mapping names back
// the other direction. It shares the underlying Mappings and loader;
// its lookup tables are rebuilt by New, so it costs as much as New.
func (r *Remapper) Reverse() (*Remapper, error) {
	return New(r.mappings, r.to, r.from, r.load)
}

// From/To expose the namespace pair this Remapper was built for --
// the rewrite package uses these to label log output and errors.
func (r *Remapper) From() mapping.Namespace { return r.from }
func (r *Remapper) To() mapping.Namespace   { return r.to }

// LambdaSAMMethodName resolves the rename of a functional-interface
// method implemented by an invokedynamic lambda call site (spec §4.F):
// samOwner is the SAM interface's internal name, as recovered from the
// invokedynamic's own descriptor return type, and samDesc is the
// descriptor of the single abstract method being implemented.
func (r *Remapper) LambdaSAMMethodName(samOwner, samName, samDesc string) (string, error) {
	if samOwner == "" {
		return "", mappingerrors.New(mappingerrors.DescriptorParse, "lambda call site has no resolvable SAM owner")
	}
	return r.MapMethodName(samOwner, samName, samDesc)
}
