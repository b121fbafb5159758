// Package logging holds the process-wide structured logger.
// It defaults to a no-op logger so library code and tests stay quiet
// until the CLI calls Init.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const fileName = "baldi.log"

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init points the process logger at dir/baldi.log. Debug level is enabled
// when debug is true or BALDI_DEBUG=true.
func Init(dir string, debug bool) error {
	if os.Getenv("BALDI_DEBUG") == "true" {
		debug = true
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(dir, fileName)}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// L returns the current process logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Set replaces the process logger and returns a func restoring the previous one.
func Set(l *zap.Logger) (restore func()) {
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	return func() { Set(prev) }
}

// With returns the process logger annotated with fields.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = L().Sync()
}
