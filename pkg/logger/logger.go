// Package logger holds the process-wide zap logger shared by the monitor,
// sync engine, and HTTP layer. Init must run before anything logs; tests
// swap in zap.NewNop().
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global logger. Nil until Init (or a test) assigns it.
var Log *zap.Logger

// Init builds the global logger. With a log file configured it uses the JSON
// production encoder writing to both the file and stdout, which is what the
// long-running poller wants in deployment; without one it uses the console
// development encoder. Unknown level names fall back to info.
func Init(level, logFile string) error {
	cfg := zap.NewDevelopmentConfig()
	if logFile != "" {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{logFile, "stdout"}
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = built
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes buffered entries. Safe to call before Init.
func Sync() error {
	if Log == nil {
		return nil
	}
	return Log.Sync()
}
