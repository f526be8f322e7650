/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package engine holds the one process-wide configuration surface for
// the mappings engine, the analogue of Jacobin's globals.Global /
// globals.GetGlobalRef() singleton.
package engine

import (
	"runtime"
	"sync"

	"dario.cat/mergo"

	"github.com/Weave-MC/mappings-util/trace"
)

// Config is the resolved, effective configuration for a run of the
// engine: a worker count for jar-level fan-out, a trace level, and a
// default for access widening. No other package reads it; RewriteJar
// takes its worker count as an argument and access widening is chosen
// by adding an AccessWideningVisitor to the chain.
type Config struct {
	Workers            int
	TraceLevel         trace.Level
	DefaultWidenAccess bool
}

// Options is a partial override of Config. Zero values mean "use the
// default" -- Merge fills them in with mergo rather than hand-rolled
// field copying, the same partial-override pattern yuin/sesame uses
// for its container configuration.
type Options struct {
	Workers            int
	TraceLevel         *trace.Level
	DefaultWidenAccess *bool
}

func defaultConfig() Config {
	return Config{
		Workers:            runtime.NumCPU(),
		TraceLevel:         trace.WARNING,
		DefaultWidenAccess: false,
	}
}

// Merge produces an effective Config by layering opts on top of the
// engine defaults. Unset fields in opts (zero Workers, nil pointers)
// leave the default untouched.
func Merge(opts Options) (Config, error) {
	cfg := defaultConfig()

	// mergo.WithOverride only overwrites cfg fields where override
	// carries a non-zero value, so a zero/unset Workers in opts
	// leaves runtime.NumCPU() in place.
	if err := mergo.Merge(&cfg, Config{Workers: opts.Workers}, mergo.WithOverride); err != nil {
		return Config{}, err
	}

	// TraceLevel/DefaultWidenAccess can meaningfully be the zero
	// value (FINE, false), so they're resolved from the *pointer*
	// Options fields directly rather than through mergo's
	// non-zero-wins merge.
	if opts.TraceLevel != nil {
		cfg.TraceLevel = *opts.TraceLevel
	}
	if opts.DefaultWidenAccess != nil {
		cfg.DefaultWidenAccess = *opts.DefaultWidenAccess
	}
	return cfg, nil
}

var (
	globalMu  sync.RWMutex
	globalRef *Config
)

// Init sets the process-wide Config, mirroring globals.InitGlobals.
func Init(opts Options) (*Config, error) {
	cfg, err := Merge(opts)
	if err != nil {
		return nil, err
	}
	globalMu.Lock()
	globalRef = &cfg
	globalMu.Unlock()
	return globalRef, nil
}

// GetGlobalRef returns the process-wide Config, initializing it with
// defaults on first use if Init was never called.
func GetGlobalRef() *Config {
	globalMu.RLock()
	ref := globalRef
	globalMu.RUnlock()
	if ref != nil {
		return ref
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalRef == nil {
		cfg := defaultConfig()
		globalRef = &cfg
	}
	return globalRef
}
