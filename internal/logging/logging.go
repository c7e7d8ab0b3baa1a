// Package logging configures the process logger.
//
// Logs always go to stderr or another explicit writer. In MCP mode stdout
// carries the protocol and must never receive log lines.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "info"

// Options controls logger construction.
type Options struct {
	Level  string
	Format string // "text" (default) or "json"
	Output io.Writer
}

// New returns a logrus logger writing to opts.Output.
func New(opts Options) (*logrus.Logger, error) {
	if opts.Output == nil {
		return nil, fmt.Errorf("logging: no output writer")
	}

	level := strings.TrimSpace(opts.Level)
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	logger := logrus.New()
	logger.SetOutput(opts.Output)
	logger.SetLevel(lvl)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	return logger, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
