/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package hierarchy walks the class-inheritance graph (supertypes and
// interfaces) through a pluggable classpath loader. It generalizes
// Jacobin's own superclass-chasing loop in
// classloader.LoadClassFromNameOnly (the "loadAclass: ... goto
// loadAclass" pattern that follows superClassIndex until it reaches
// java/lang/Object) into a LIFO traversal that also visits interfaces
// and stops at the first node satisfying a caller-supplied predicate.
package hierarchy

import (
	"github.com/Weave-MC/mappings-util/classfile"
	"github.com/Weave-MC/mappings-util/loader"
	"github.com/Weave-MC/mappings-util/mappingerrors"
)

// Predicate decides whether a visited internal class name is the one
// being searched for.
type Predicate func(internalName string) bool

// Walk traverses the inheritance graph starting at start, visiting the
// start node first (so a same-class hit is decided before any parent
// is inspected, per spec §4.C), then supertypes and interfaces in
// last-in-first-out order, deduplicating visited names. It returns the
// first name satisfying pred, or "" if none does.
//
// The loader is consulted lazily: a nil return (class bytes unknown)
// means "treat as a terminal leaf for that branch", not a failure.
// loader errors (I/O failures) propagate immediately.
func Walk(load loader.Loader, start string, pred Predicate) (string, error) {
	if pred(start) {
		return start, nil
	}

	visited := map[string]bool{start: true}
	stack := []string{start}

	for len(stack) > 0 {
		// pop the most recently pushed name -- LIFO order per spec §4.C
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		data, err := load(current)
		if err != nil {
			return "", mappingerrors.Wrap(mappingerrors.IoError, err, "hierarchy: loading "+current)
		}
		if data == nil {
			continue // unknown class: terminal leaf for this branch
		}

		cf, err := classfile.Read(data)
		if err != nil {
			return "", err
		}

		var parents []string
		if cf.SuperClass != "" {
			parents = append(parents, cf.SuperClass)
		}
		parents = append(parents, cf.Interfaces...)

		for _, p := range parents {
			if visited[p] {
				continue
			}
			visited[p] = true
			if pred(p) {
				return p, nil
			}
			stack = append(stack, p)
		}
	}

	return "", nil
}

// ByName is a convenience Predicate matching exact internal names,
// useful when the caller just wants to know if ancestor equals a
// fixed name (e.g. a single-hop check).
func ByName(name string) Predicate {
	return func(internalName string) bool { return internalName == name }
}
