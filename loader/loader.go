/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package loader provides the classpath loader abstraction used by
// the hierarchy walker and remapper (spec §6, §9): a callable that
// resolves an internal class name to its raw .class bytes, or nil if
// the class is unknown -- distinct from an I/O error, which the
// loader is expected to surface as an error rather than swallow.
//
// This is the generalization of Jacobin's Archive/NewJarFile/
// cl.Archives cache (classloader.go's getJarFile) from a read-only,
// app-wide classloader into a narrow, swappable function value that
// never exposes file paths to its callers (spec §9).
package loader

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/Weave-MC/mappings-util/trace"
)

// Loader resolves an internal class name ("java/lang/String") to its
// class-file bytes. A nil, nil return means "absent" -- the caller
// (the hierarchy walker) treats that branch as a terminal leaf rather
// than failing. A non-nil error means the loader itself failed (e.g.
// a corrupt zip entry) and must propagate.
type Loader func(internalName string) ([]byte, error)

// None is the constant loader used for mapping-only work (spec §9):
// it never has bytes for any class, so every inheritance walk
// terminates immediately at its start node.
func None(string) ([]byte, error) { return nil, nil }

// jarArchive mirrors Jacobin's Archive: a jar file opened once and
// cached, queried repeatedly by class name.
type jarArchive struct {
	mu      sync.Mutex
	path    string
	entries map[string]*zip.File
	reader  *zip.ReadCloser
}

func openJarArchive(jarPath string) (*jarArchive, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: opening jar %s", jarPath)
	}
	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}
	return &jarArchive{path: jarPath, entries: entries, reader: r}, nil
}

func (a *jarArchive) classBytes(internalName string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[normalize(internalName)+".class"]
	if !ok {
		return nil, nil
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "loader: reading %s from %s", internalName, a.path)
	}
	defer rc.Close()

	buf := make([]byte, entry.UncompressedSize64)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return nil, errors.Wrapf(err, "loader: reading %s from %s", internalName, a.path)
	}
	return buf, nil
}

// NewJarLoader returns a Loader backed by a single jar file, opened
// once and cached for the lifetime of the returned Loader -- the
// "jar-file-backed cache" default named in spec §9. This reads the
// classpath the caller points it at; it is not the "on-disk caching of
// remote mapping archives" spec §1 excludes.
func NewJarLoader(jarPath string) (Loader, error) {
	archive, err := openJarArchive(jarPath)
	if err != nil {
		return nil, err
	}
	return archive.classBytes, nil
}

// root is one entry of a MultiLoader: a loader plus the glob patterns
// (in doublestar syntax) that decide whether an internal class name is
// routed to it.
type root struct {
	include []string
	exclude []string
	load    Loader
}

// multiLoader is the "classpath multiplexer" default named in spec §9:
// it tries each root in order, skipping roots whose include/exclude
// globs reject the class name, and returns the first non-nil result.
type multiLoader struct {
	roots []root
}

// NewMultiLoader starts a builder for a Loader that routes a lookup to
// the first matching root. include/exclude patterns use doublestar
// glob syntax over the internal class name (e.g. "java/**" to scope
// the JDK roots); a nil include list matches everything.
func NewMultiLoader() *MultiLoaderBuilder {
	return &MultiLoaderBuilder{}
}

// MultiLoaderBuilder accumulates roots before Build produces the
// Loader func value.
type MultiLoaderBuilder struct {
	roots []root
}

// AddRoot registers a loader scoped by glob patterns. A class name
// matches this root if it matches at least one include pattern (or no
// include patterns were given) and matches no exclude pattern.
func (b *MultiLoaderBuilder) AddRoot(load Loader, include, exclude []string) *MultiLoaderBuilder {
	b.roots = append(b.roots, root{include: include, exclude: exclude, load: load})
	return b
}

// Build finalizes the multiplexer into a Loader.
func (b *MultiLoaderBuilder) Build() Loader {
	ml := &multiLoader{roots: append([]root(nil), b.roots...)}
	return ml.load
}

func (m *multiLoader) load(internalName string) ([]byte, error) {
	for _, r := range m.roots {
		if !rootMatches(r, internalName) {
			continue
		}
		data, err := r.load(internalName)
		if err != nil {
			return nil, err
		}
		if data != nil {
			return data, nil
		}
	}
	return nil, nil
}

func rootMatches(r root, internalName string) bool {
	for _, pat := range r.exclude {
		if globMatch(pat, internalName) {
			return false
		}
	}
	if len(r.include) == 0 {
		return true
	}
	for _, pat := range r.include {
		if globMatch(pat, internalName) {
			return true
		}
	}
	return false
}

func globMatch(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		trace.Warn("loader: invalid glob pattern " + pattern + ": " + err.Error())
		return false
	}
	return ok
}

// NewDirLoader returns a Loader backed by an uncompressed directory of
// .class files laid out by internal name, the simplest possible
// classpath root and a natural AddRoot argument for NewMultiLoader.
func NewDirLoader(dir string) Loader {
	return func(internalName string) ([]byte, error) {
		full := path.Join(dir, normalize(internalName)+".class")
		data, err := os.ReadFile(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, errors.Wrapf(err, "loader: reading %s", full)
		}
		return data, nil
	}
}

// normalize converts a dotted class name ("java.lang.String") to
// internal form ("java/lang/String"), tolerating callers that pass
// either form.
func normalize(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
