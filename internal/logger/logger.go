// Package logger builds the zap loggers used by the desktop app and the CLI.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger writing to stderr.
// json - if true logs are in json format
func New(json bool, level string) *zap.SugaredLogger {
	return NewWithOutput(json, level, os.Stderr)
}

// NewWithOutput creates a logger writing to the given output.
func NewWithOutput(json bool, level string, output io.Writer) *zap.SugaredLogger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	lvl := parseLevel(level)
	ws := zapcore.AddSync(output)

	var core zapcore.Core
	if json {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), ws, lvl)
	} else {
		econf.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(econf), ws, lvl)
	}
	return zap.New(core).Sugar()
}

// parseLevel falls back to info for empty or unknown level names.
func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
