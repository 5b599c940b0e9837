// Package logger
package logger

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"coremeter/internal/config"
)

type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// New builds the process logger. Logs go to stderr so stdout carries only the report.
func New(cfg *config.Config) Logger {
	return NewWithWriter(cfg, os.Stderr)
}

func NewWithWriter(cfg *config.Config, w io.Writer) Logger {
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Warn
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "coremeter",
		Level:      level,
		Output:     w,
		JSONFormat: cfg.LogFormat == "json",
	})
}

func Discard() Logger {
	return hclog.NewNullLogger()
}
