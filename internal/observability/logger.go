// Package observability holds the process-wide CLI logger.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger used by commands. It is a no-op logger until
// InitCLILogger is called.
var CLILogger = zap.NewNop()

// LoggerOptions configures the CLI logger.
type LoggerOptions struct {
	// Level is debug, info, warn or error. Default: info.
	Level string

	// Format is console or json. Default: console.
	Format string

	// Verbose forces debug level.
	Verbose bool

	// OutputPaths defaults to stderr so stdout stays free for records.
	OutputPaths []string
}

// InitCLILogger configures CLILogger with console output on stderr.
func InitCLILogger(name string, verbose bool) {
	logger, err := NewLogger(name, LoggerOptions{Verbose: verbose})
	if err != nil {
		// The default options are always valid.
		panic(err)
	}
	CLILogger = logger
}

// InitCLILoggerWithOptions configures CLILogger from opts.
func InitCLILoggerWithOptions(name string, opts LoggerOptions) error {
	logger, err := NewLogger(name, opts)
	if err != nil {
		return err
	}
	CLILogger = logger
	return nil
}

// NewLogger builds a named logger from opts.
func NewLogger(name string, opts LoggerOptions) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console", "text":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", opts.Format)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named(name), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
