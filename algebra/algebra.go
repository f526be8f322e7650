/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package algebra provides the structural operations over a
// mapping.Mappings tree (spec §4.E): projecting, renaming, reordering
// and filtering namespaces, filtering and transforming classes, and
// joining two Mappings on their shared namespaces. Every operation
// rebuilds a new Mappings field-by-field rather than mutating its
// input, the same "never mutate the record you were handed" shape
// Jacobin's convertToPostableClass uses when repackaging a parsed
// class for the method area.
package algebra

import (
	"go.uber.org/multierr"

	"github.com/Weave-MC/mappings-util/mapping"
	"github.com/Weave-MC/mappings-util/mappingerrors"
	"github.com/Weave-MC/mappings-util/remap"
)

// ExtractNamespaces projects m down to the given namespaces, in the
// order given, dropping every class/field/method name slot outside
// that selection. All of keep must already be namespaces of m.
//
// Every MappedMethod.Desc (and every non-nil MappedField.Desc) is
// expressed in m's namespace 0 (invariant 3). When the projection
// changes which namespace sits at index 0, those descriptors are
// re-expressed into the new namespace 0 by building a
// (m.Namespaces[0] -> keep[0]) remapper and routing every descriptor
// through it (spec §4.E); copying Desc verbatim in that case would
// leave every reshaped descriptor naming classes by their old rather
// than new namespace-0 names.
func ExtractNamespaces(m mapping.Mappings, keep []mapping.Namespace) (mapping.Mappings, error) {
	idx := make([]int, len(keep))
	for i, ns := range keep {
		j, err := m.NamespaceIndex(ns)
		if err != nil {
			return mapping.Mappings{}, err
		}
		idx[i] = j
	}

	var descRemap *remap.Remapper
	if len(keep) > 0 && keep[0] != m.Namespaces[0] {
		rm, err := remap.New(m, m.Namespaces[0], keep[0], nil)
		if err != nil {
			return mapping.Mappings{}, err
		}
		descRemap = rm
	}

	out := mapping.Mappings{Namespaces: append([]mapping.Namespace(nil), keep...), Format: m.Format}
	for _, c := range m.Classes {
		nc := mapping.MappedClass{Names: selectStrings(c.Names, idx), Comments: c.Comments}
		for _, f := range c.Fields {
			desc, err := remapFieldDesc(descRemap, f.Desc)
			if err != nil {
				return mapping.Mappings{}, err
			}
			nc.Fields = append(nc.Fields, mapping.MappedField{
				Names: selectStrings(f.Names, idx), Comments: f.Comments, Desc: desc,
			})
		}
		for _, meth := range c.Methods {
			desc := meth.Desc
			if descRemap != nil {
				d, err := descRemap.MapMethodDesc(desc)
				if err != nil {
					return mapping.Mappings{}, err
				}
				desc = d
			}
			nc.Methods = append(nc.Methods, mapping.MappedMethod{
				Names: selectStrings(meth.Names, idx), Comments: meth.Comments,
				Desc: desc, Parameters: meth.Parameters, Variables: meth.Variables,
			})
		}
		out.Classes = append(out.Classes, nc)
	}
	return out, out.Validate()
}

// remapFieldDesc re-expresses an optional field descriptor through rm,
// leaving a nil descriptor (unknown field type) untouched.
func remapFieldDesc(rm *remap.Remapper, desc *string) (*string, error) {
	if desc == nil || rm == nil {
		return desc, nil
	}
	d, err := rm.MapTypeDesc(*desc)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func selectStrings(names []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		if j < len(names) {
			out[i] = names[j]
		}
	}
	return out
}

// RenameNamespaces relabels m's namespaces per renames (old -> new),
// leaving every name/field/method slot untouched. Every key of renames
// must name an existing namespace.
func RenameNamespaces(m mapping.Mappings, renames map[mapping.Namespace]mapping.Namespace) (mapping.Mappings, error) {
	for old := range renames {
		if _, err := m.NamespaceIndex(old); err != nil {
			return mapping.Mappings{}, err
		}
	}
	out := m
	out.Namespaces = make([]mapping.Namespace, len(m.Namespaces))
	for i, ns := range m.Namespaces {
		if renamed, ok := renames[ns]; ok {
			out.Namespaces[i] = renamed
		} else {
			out.Namespaces[i] = ns
		}
	}
	out.Classes = append([]mapping.MappedClass(nil), m.Classes...)
	return out, out.Validate()
}

// ReorderNamespaces permutes m's namespaces to match order, which must
// be a permutation of m.Namespaces (same set, same length).
func ReorderNamespaces(m mapping.Mappings, order []mapping.Namespace) (mapping.Mappings, error) {
	if len(order) != len(m.Namespaces) {
		return mapping.Mappings{}, mappingerrors.Newf(mappingerrors.ArityMismatch,
			"reorder: %d namespaces given, mappings has %d", len(order), len(m.Namespaces))
	}
	return ExtractNamespaces(m, order)
}

// FilterNamespaces keeps only the namespaces of m for which keep
// returns true, preserving their original relative order.
func FilterNamespaces(m mapping.Mappings, keep func(mapping.Namespace) bool) (mapping.Mappings, error) {
	var kept []mapping.Namespace
	for _, ns := range m.Namespaces {
		if keep(ns) {
			kept = append(kept, ns)
		}
	}
	return ExtractNamespaces(m, kept)
}

// FilterClasses keeps only the classes of m for which keep returns
// true; keep is handed the whole MappedClass, every namespace's name
// and its members included.
func FilterClasses(m mapping.Mappings, keep func(mapping.MappedClass) bool) mapping.Mappings {
	out := mapping.Mappings{Namespaces: append([]mapping.Namespace(nil), m.Namespaces...), Format: m.Format}
	for _, c := range m.Classes {
		if keep(c) {
			out.Classes = append(out.Classes, c)
		}
	}
	return out
}

// MapClasses rebuilds m with f applied to every MappedClass, useful
// for bulk edits (stripping comments, normalizing names) that don't
// change the namespace shape.
func MapClasses(m mapping.Mappings, f func(mapping.MappedClass) mapping.MappedClass) mapping.Mappings {
	out := mapping.Mappings{Namespaces: append([]mapping.Namespace(nil), m.Namespaces...), Format: m.Format}
	for _, c := range m.Classes {
		out.Classes = append(out.Classes, f(c))
	}
	return out
}

// JoinOptions controls Join's behavior for entities present in one
// input but not the other.
type JoinOptions struct {
	// RequireMatch, when true, makes Join fail (aggregating every
	// miss via multierr) instead of keeping unmatched classes/members
	// of a with their intermediate name filled into b's namespaces.
	RequireMatch bool
}

// Join combines a and b on intermediate, a namespace that must be
// present in both (the classic "link two mapping chains" case:
// obf->intermediate joined with intermediate->named on "intermediate"
// yields obf->named, but intermediate need not be either side's last
// namespace -- a:[x,obf] joined with b:[other,x] on "x" is equally
// valid). A class/member present in a but absent from b is kept, with
// its intermediate-namespace name filled into every namespace of b,
// unless opts.RequireMatch, in which case every miss is collected into
// one aggregated error via multierr rather than failing on the first.
//
// The result's namespace list is
// (a.Namespaces minus intermediate) ++ [intermediate] ++
// (b.Namespaces minus intermediate), and the result's classes are a's
// classes, in a's order. A class present only in b does not appear in
// the result and is not reported, even with opts.RequireMatch.
// Joined methods carry no parameters or locals.
func Join(a, b mapping.Mappings, intermediate mapping.Namespace, opts JoinOptions) (mapping.Mappings, error) {
	if len(a.Namespaces) == 0 || len(b.Namespaces) == 0 {
		return mapping.Mappings{}, mappingerrors.New(mappingerrors.ArityMismatch, "join: both sides need at least one namespace")
	}
	aIdx, err := a.NamespaceIndex(intermediate)
	if err != nil {
		return mapping.Mappings{}, mappingerrors.Wrap(mappingerrors.NamespaceNotFound, err,
			"join: a has no namespace "+intermediate)
	}
	bIdx, err := b.NamespaceIndex(intermediate)
	if err != nil {
		return mapping.Mappings{}, mappingerrors.Wrap(mappingerrors.NamespaceNotFound, err,
			"join: b has no namespace "+intermediate)
	}

	bByBridgeName := make(map[string]mapping.MappedClass, len(b.Classes))
	for _, c := range b.Classes {
		if bIdx < len(c.Names) {
			bByBridgeName[c.Names[bIdx]] = c
		}
	}

	resultNamespaces := append(selectExcept(a.Namespaces, aIdx), intermediate)
	resultNamespaces = append(resultNamespaces, selectExcept(b.Namespaces, bIdx)...)

	var joinErr error
	out := mapping.Mappings{Namespaces: resultNamespaces, Format: a.Format}
	for _, ac := range a.Classes {
		bridgeName := ac.Names[aIdx]
		bc, ok := bByBridgeName[bridgeName]
		if !ok {
			if opts.RequireMatch {
				joinErr = multierr.Append(joinErr, mappingerrors.Newf(mappingerrors.JoinMissingEntity,
					"join: class %s has no counterpart in b", bridgeName))
				continue
			}
			// No counterpart: extend every name slot (class, fields,
			// methods) with its own bridge name so every added
			// namespace still has a non-empty slot and the result
			// keeps a uniform arity (spec invariant 1).
			nc := mapping.MappedClass{
				Names: extendWithOwnBridge(ac.Names, aIdx, len(b.Namespaces), bIdx), Comments: ac.Comments,
			}
			for _, f := range ac.Fields {
				nc.Fields = append(nc.Fields, mapping.MappedField{
					Names: extendWithOwnBridge(f.Names, aIdx, len(b.Namespaces), bIdx), Comments: f.Comments, Desc: f.Desc,
				})
			}
			for _, meth := range ac.Methods {
				nc.Methods = append(nc.Methods, mapping.MappedMethod{
					Names: extendWithOwnBridge(meth.Names, aIdx, len(b.Namespaces), bIdx), Comments: meth.Comments,
					Desc: meth.Desc,
				})
			}
			out.Classes = append(out.Classes, nc)
			continue
		}
		joined, err := joinClass(ac, bc, aIdx, bIdx, len(b.Namespaces), opts, &joinErr)
		if err != nil {
			return mapping.Mappings{}, err
		}
		out.Classes = append(out.Classes, joined)
	}

	if joinErr != nil {
		return mapping.Mappings{}, mappingerrors.Wrap(mappingerrors.JoinMissingEntity, joinErr, "join: unresolved entities")
	}
	return out, out.Validate()
}

// selectExcept returns names with the entry at skip removed, otherwise
// preserving order.
func selectExcept(names []string, skip int) []string {
	out := make([]string, 0, len(names))
	for i, n := range names {
		if i == skip {
			continue
		}
		out = append(out, n)
	}
	return out
}

// extendWithOwnBridge rebuilds names as (names minus aIdx) ++
// [names[aIdx]] ++ (names[aIdx] repeated once per namespace of b other
// than bIdx), used when an entity has no counterpart on the other side
// of a Join -- every slot b would have contributed instead falls back
// to the entity's own bridge-namespace name.
func extendWithOwnBridge(names []string, aIdx, bNamespaceCount, bIdx int) []string {
	bridgeName := names[aIdx]
	out := append(selectExcept(names, aIdx), bridgeName)
	for i := 0; i < bNamespaceCount; i++ {
		if i == bIdx {
			continue
		}
		out = append(out, bridgeName)
	}
	return out
}

func joinClass(ac, bc mapping.MappedClass, aIdx, bIdx, bNamespaceCount int, opts JoinOptions, joinErr *error) (mapping.MappedClass, error) {
	bridgeName := ac.Names[aIdx]
	nc := mapping.MappedClass{Names: append(selectExcept(ac.Names, aIdx), bridgeName), Comments: ac.Comments}
	for i := 0; i < bNamespaceCount; i++ {
		if i == bIdx {
			continue
		}
		if i < len(bc.Names) {
			nc.Names = append(nc.Names, bc.Names[i])
		} else {
			nc.Names = append(nc.Names, bridgeName)
		}
	}

	bFieldsByBridge := make(map[string]mapping.MappedField, len(bc.Fields))
	for _, f := range bc.Fields {
		if bIdx < len(f.Names) {
			bFieldsByBridge[f.Names[bIdx]] = f
		}
	}
	for _, af := range ac.Fields {
		fieldBridgeName := af.Names[aIdx]
		bf, ok := bFieldsByBridge[fieldBridgeName]
		nf := mapping.MappedField{Names: append(selectExcept(af.Names, aIdx), fieldBridgeName), Comments: af.Comments, Desc: af.Desc}
		if !ok {
			if opts.RequireMatch {
				*joinErr = multierr.Append(*joinErr, mappingerrors.Newf(mappingerrors.JoinMissingEntity,
					"join: field %s.%s has no counterpart in b", ac.Names[0], fieldBridgeName))
				continue
			}
			for i := 0; i < bNamespaceCount; i++ {
				if i != bIdx {
					nf.Names = append(nf.Names, fieldBridgeName)
				}
			}
		} else {
			for i := 0; i < bNamespaceCount; i++ {
				if i == bIdx {
					continue
				}
				if i < len(bf.Names) {
					nf.Names = append(nf.Names, bf.Names[i])
				} else {
					nf.Names = append(nf.Names, fieldBridgeName)
				}
			}
		}
		nc.Fields = append(nc.Fields, nf)
	}

	bMethodsByBridge := make(map[string]mapping.MappedMethod, len(bc.Methods))
	for _, meth := range bc.Methods {
		if bIdx < len(meth.Names) {
			bMethodsByBridge[meth.Names[bIdx]+meth.Desc] = meth
		}
	}
	for _, am := range ac.Methods {
		methBridgeName := am.Names[aIdx]
		bm, ok := bMethodsByBridge[methBridgeName+am.Desc]
		nm := mapping.MappedMethod{
			Names: append(selectExcept(am.Names, aIdx), methBridgeName), Comments: am.Comments,
			Desc: am.Desc,
		}
		if !ok {
			if opts.RequireMatch {
				*joinErr = multierr.Append(*joinErr, mappingerrors.Newf(mappingerrors.JoinMissingEntity,
					"join: method %s.%s%s has no counterpart in b", ac.Names[0], methBridgeName, am.Desc))
				continue
			}
			for i := 0; i < bNamespaceCount; i++ {
				if i != bIdx {
					nm.Names = append(nm.Names, methBridgeName)
				}
			}
		} else {
			for i := 0; i < bNamespaceCount; i++ {
				if i == bIdx {
					continue
				}
				if i < len(bm.Names) {
					nm.Names = append(nm.Names, bm.Names[i])
				} else {
					nm.Names = append(nm.Names, methBridgeName)
				}
			}
		}
		nc.Methods = append(nc.Methods, nm)
	}

	return nc, nil
}

// JoinAll folds Join across a chain of Mappings left to right
// (obf->a joined with a->b joined with b->named, ...) on intermediate,
// the common case of composing several intermediate mapping files
// into one source-to-target Mappings.
func JoinAll(chain []mapping.Mappings, intermediate mapping.Namespace, opts JoinOptions) (mapping.Mappings, error) {
	if len(chain) == 0 {
		return mapping.Mappings{}, mappingerrors.New(mappingerrors.ArityMismatch, "joinAll: empty chain")
	}
	acc := chain[0]
	for _, next := range chain[1:] {
		joined, err := Join(acc, next, intermediate, opts)
		if err != nil {
			return mapping.Mappings{}, err
		}
		acc = joined
	}
	return acc, nil
}

// DeduplicateNamespaces drops every namespace after the first one
// that shares both its label and contents with an earlier namespace,
// the common cleanup after a Join produces a namespace identical to
// one already present (e.g. joining obf->named with a named->named
// mapping whose two columns agree).
func DeduplicateNamespaces(m mapping.Mappings) mapping.Mappings {
	keepIdx := []int{0}
	for i := 1; i < len(m.Namespaces); i++ {
		dup := false
		for _, j := range keepIdx {
			if m.Namespaces[i] == m.Namespaces[j] && columnsEqual(m, i, j) {
				dup = true
				break
			}
		}
		if !dup {
			keepIdx = append(keepIdx, i)
		}
	}
	if len(keepIdx) == len(m.Namespaces) {
		return m
	}

	keep := make([]mapping.Namespace, len(keepIdx))
	for i, j := range keepIdx {
		keep[i] = m.Namespaces[j]
	}
	out, err := ExtractNamespaces(m, keep)
	if err != nil {
		// keepIdx is always a valid subset of m's own namespaces, so
		// this can only fail if m itself was already invalid.
		return m
	}
	return out
}

func columnsEqual(m mapping.Mappings, i, j int) bool {
	for _, c := range m.Classes {
		if !sameSlot(c.Names, i, j) {
			return false
		}
		for _, f := range c.Fields {
			if !sameSlot(f.Names, i, j) {
				return false
			}
		}
		for _, meth := range c.Methods {
			if !sameSlot(meth.Names, i, j) {
				return false
			}
		}
	}
	return true
}

func sameSlot(names []string, i, j int) bool {
	var a, b string
	if i < len(names) {
		a = names[i]
	}
	if j < len(names) {
		b = names[j]
	}
	return a == b
}
