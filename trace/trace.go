/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package trace centralizes logging the way Jacobin's trace/log
// packages do: every subsystem calls Trace/Info/Warn/Error instead of
// writing to stdout/stderr directly, and logging is gated by a level
// that callers can leave at its zero value safely.
package trace

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Level mirrors Jacobin's FINE/INFO/WARNING/SEVERE ladder.
type Level int32

const (
	FINE Level = iota
	INFO
	WARNING
	SEVERE
)

var (
	level   atomic.Int32
	initMu  sync.Mutex
	sugared *zap.SugaredLogger
)

// Init builds the backing zap logger. Safe to call more than once;
// the last call wins. Calling Trace/Info/Warn/Error before Init is
// also safe -- a no-op logger is used until Init runs, mirroring
// Jacobin's globals.TraceClass being false until globals.InitGlobals.
func Init() error {
	initMu.Lock()
	defer initMu.Unlock()

	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	sugared = logger.Sugar()
	return nil
}

// SetLevel changes the minimum level that is actually emitted.
func SetLevel(l Level) { level.Store(int32(l)) }

func enabled(l Level) bool { return l >= Level(level.Load()) }

func logger() *zap.SugaredLogger {
	initMu.Lock()
	defer initMu.Unlock()
	if sugared == nil {
		return zap.NewNop().Sugar()
	}
	return sugared
}

// Trace logs at FINE.
func Trace(msg string) {
	if enabled(FINE) {
		logger().Debug(msg)
	}
}

// Info logs at INFO.
func Info(msg string) {
	if enabled(INFO) {
		logger().Info(msg)
	}
}

// Warn logs at WARNING. Used for soft failures such as a malformed
// mixin-annotation value that is passed through unchanged.
func Warn(msg string) {
	if enabled(WARNING) {
		logger().Warn(msg)
	}
}

// Error logs at SEVERE.
func Error(msg string) {
	if enabled(SEVERE) {
		logger().Error(msg)
	}
}
