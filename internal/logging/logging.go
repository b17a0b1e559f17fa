// Package logging wires the standard logger to stderr plus a rolling log file
// and provides the flag-gated logger used by the refresh loop.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the rolling log file.
type Options struct {
	Path      string
	MaxFiles  int
	MaxSizeMB int
}

// Setup points the global logger at stderr and the rolling file at opts.Path.
// The returned closer flushes and closes the file.
func Setup(opts Options) io.Closer {
	roller := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxBackups: opts.MaxFiles,
		MaxSize:    opts.MaxSizeMB,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, roller))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return roller
}

// Gate writes informational and error messages only when the matching flag is on.
type Gate struct {
	logger *log.Logger
	info   bool
	errors bool
}

// NewGate creates a Gate. A nil logger means the standard logger.
func NewGate(logger *log.Logger, info, errors bool) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	return &Gate{logger: logger, info: info, errors: errors}
}

// Infof logs with an [INFO] prefix when info logging is enabled.
func (g *Gate) Infof(format string, args ...interface{}) {
	if g == nil || !g.info {
		return
	}
	_ = g.logger.Output(2, "[INFO] "+fmt.Sprintf(format, args...))
}

// Errorf logs with an [ERROR] prefix when error logging is enabled.
func (g *Gate) Errorf(format string, args ...interface{}) {
	if g == nil || !g.errors {
		return
	}
	_ = g.logger.Output(2, "[ERROR] "+fmt.Sprintf(format, args...))
}
