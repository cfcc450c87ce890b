// Package logging builds the prefixed loggers used by the sync engine and
// scheduler. Logs go to a size-rotated file when one is configured, otherwise
// to stderr.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"gymsync/internal/config"
)

// Writer returns the destination for all client logs.
func Writer(cfg config.LogConfig) io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
}

// New returns a logger with a component prefix, e.g. New(w, "sync") writes
// lines prefixed "[sync] ".
func New(w io.Writer, component string) *log.Logger {
	return log.New(w, "["+component+"] ", log.LstdFlags)
}
