// Package utils holds the operator-facing logger. Progress and per-venue
// failure reporting go here; the append log itself never carries log output.
package utils

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = newLogger(false)

func newLogger(debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core).Sugar()
}

// InitLogger reconfigures the global logger; call once at startup.
func InitLogger(debug bool) {
	logger = newLogger(debug)
}

// Sync flushes buffered log output.
func Sync() {
	_ = logger.Sync()
}

// Debug logs a debug-level message for a module and operation.
func Debug(module, operation string, details ...any) {
	logger.Debugw(fmt.Sprint(details...), "module", module, "op", operation)
}

// Info logs an informational message for a module and operation.
func Info(module, operation string, details ...any) {
	logger.Infow(fmt.Sprint(details...), "module", module, "op", operation)
}

// Infof logs a formatted informational message for a module and operation.
func Infof(module, operation, format string, args ...any) {
	logger.Infow(fmt.Sprintf(format, args...), "module", module, "op", operation)
}

// Warn logs a warning for a module and operation.
func Warn(module, operation string, details ...any) {
	logger.Warnw(fmt.Sprint(details...), "module", module, "op", operation)
}

// Error logs an error for a module and operation.
func Error(module, operation string, details ...any) {
	logger.Errorw(fmt.Sprint(details...), "module", module, "op", operation)
}
