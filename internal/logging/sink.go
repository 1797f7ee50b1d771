package logging

import (
	"errors"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newEncoder creates a JSON or console encoder whose level key renders the
// eight uppercase severity names.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.NameKey = "module"
	encoderCfg.EncodeLevel = encodeSeverity

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// encodeSeverity renders the sink entry level as the uppercase severity name.
func encodeSeverity(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(strings.ToUpper(severityFromZapLevel(l).String()))
}

// newStderrSink creates the production sink writing one line per record to
// stderr. Stdout belongs to the stdio protocol transport. Severity gating
// happens in the pipeline before the sink is reached, so the core itself
// accepts every level.
func newStderrSink(format string) zapcore.Core {
	return zapcore.NewCore(
		newEncoder(format),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		zap.LevelEnablerFunc(func(zapcore.Level) bool { return true }),
	)
}

// isTerminalSyncError checks for the harmless EINVAL/ENOTTY that syncing
// stderr returns on Linux.
func isTerminalSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
