package logger

import (
	"go.uber.org/zap"
)

// Log is the package-wide logger. It is a no-op until Initialize is called,
// so library code can log unconditionally.
var Log = zap.NewNop()

// Initialize replaces Log with a real logger at the given level
// ("debug", "info", "warn", "error").
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = zl
	return nil
}
