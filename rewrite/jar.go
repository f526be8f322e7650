/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package rewrite

import (
	"archive/zip"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Weave-MC/mappings-util/mappingerrors"
)

// RewriterFactory builds a fresh ClassRewriter. RewriteJar calls it
// once per class: a ClassRewriter (and the RemapVisitor it wraps)
// carries per-class state, so sharing one across concurrent workers
// would let one class's in-flight mixin-target tracking leak into
// another's (spec §5).
type RewriterFactory func() *ClassRewriter

// RewriteJar rewrites every .class entry of the jar at inPath and
// writes the result to outPath, fanning out across up to workers
// goroutines (spec §5's jar-level parallel rewrite; workers <= 0 means
// unbounded). Non-class entries (resources, manifests, signature
// files) are copied through unchanged.
func RewriteJar(inPath, outPath string, newRewriter RewriterFactory, workers int) error {
	zr, err := zip.OpenReader(inPath)
	if err != nil {
		return mappingerrors.Wrap(mappingerrors.IoError, err, "opening jar "+inPath)
	}
	defer zr.Close()

	type entryResult struct {
		name string
		data []byte
	}
	results := make([]entryResult, len(zr.File))

	g := new(errgroup.Group)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, f := range zr.File {
		i, f := i, f
		g.Go(func() error {
			data, err := readZipEntry(f)
			if err != nil {
				return err
			}
			if !isClassEntry(f.Name) {
				results[i] = entryResult{name: f.Name, data: data}
				return nil
			}
			rewritten, err := newRewriter().RewriteClass(data)
			if err != nil {
				return mappingerrors.Wrap(mappingerrors.IoError, err, "rewriting "+f.Name)
			}
			results[i] = entryResult{name: f.Name, data: rewritten}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return mappingerrors.Wrap(mappingerrors.IoError, err, "creating "+outPath)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, r := range results {
		w, err := zw.Create(r.name)
		if err != nil {
			return mappingerrors.Wrap(mappingerrors.IoError, err, "writing entry "+r.name)
		}
		if _, err := w.Write(r.data); err != nil {
			return mappingerrors.Wrap(mappingerrors.IoError, err, "writing entry "+r.name)
		}
	}
	return zw.Close()
}

func isClassEntry(name string) bool {
	return strings.HasSuffix(name, ".class")
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, mappingerrors.Wrap(mappingerrors.IoError, err, "reading "+f.Name)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, mappingerrors.Wrap(mappingerrors.IoError, err, "reading "+f.Name)
	}
	return data, nil
}
