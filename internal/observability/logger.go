// Package observability provides the structured logger and Prometheus
// metrics used by the bdiff command-line layer. The core library stays
// free of logging and metrics; progress and telemetry are external
// collaborators of the delta engine, so they live here and in cmd.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a structured logger writing to output. Pass a
// zerolog.ConsoleWriter when the output is a terminal.
func NewLogger(component string, output io.Writer, debug bool) *Logger {
	if output == nil {
		output = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(output).Level(level).With().
		Timestamp().
		Str("component", component).
		Logger()

	return &Logger{logger: logger}
}

// WithOperation adds operation name and id context to the logger.
func (l *Logger) WithOperation(op, opID string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("operation", op).Str("op_id", opID).Logger(),
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(err error, msg string) {
	l.logger.Error().Err(err).Msg(msg)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(err error, msg string) {
	l.logger.Fatal().Err(err).Msg(msg)
}

// SignatureDone logs the outcome of a signature generation.
func (l *Logger) SignatureDone(blocks int, bytes int64, blockSize int, elapsed time.Duration) {
	l.logger.Info().
		Int("blocks", blocks).
		Int64("basis_bytes", bytes).
		Int("block_size", blockSize).
		Float64("elapsed_seconds", elapsed.Seconds()).
		Msg("signature written")
}

// DeltaDone logs the outcome of a delta computation.
func (l *Logger) DeltaDone(newBytes, literalBytes int64, copyOps, literalOps, matched int, elapsed time.Duration) {
	reused := int64(0)
	if newBytes > 0 {
		reused = (newBytes - literalBytes) * 100 / newBytes
	}
	l.logger.Info().
		Int64("new_bytes", newBytes).
		Int64("literal_bytes", literalBytes).
		Int("copy_ops", copyOps).
		Int("literal_ops", literalOps).
		Int("blocks_matched", matched).
		Int64("reused_percent", reused).
		Float64("elapsed_seconds", elapsed.Seconds()).
		Msg("delta written")
}

// PatchDone logs the outcome of a patch application.
func (l *Logger) PatchDone(written, copied, literal int64, elapsed time.Duration) {
	l.logger.Info().
		Int64("bytes_written", written).
		Int64("copied_bytes", copied).
		Int64("literal_bytes", literal).
		Float64("elapsed_seconds", elapsed.Seconds()).
		Msg("patch applied")
}
