// Package logutil adapts the daemon's subsystem-logging setup into a small
// standalone helper: a stdout log writer and a debug-level parser, without
// the multi-subsystem registry the original daemon needed for its much
// larger set of components.
package logutil

import (
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btclog"
)

// Writer writes every log line to stdout. Grounded on build/log.go's
// LogWriter, narrowed to the single-destination case this daemon needs
// since it has no log-rotation requirement of its own.
type Writer struct{}

func (Writer) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

var _ io.Writer = Writer{}

// NewBackend constructs a btclog.Backend writing to stdout.
func NewBackend() *btclog.Backend {
	return btclog.NewBackend(Writer{})
}

// ParseLevel validates and converts a level string ("trace", "debug",
// "info", "warn", "error", "critical", "off") the same way build/log.go's
// ParseAndSetDebugLevels validates each subsystem/level pair, simplified
// here to the single-logger case.
func ParseLevel(level string) (btclog.Level, error) {
	if !validLevel(level) {
		return 0, fmt.Errorf("invalid log level: %v", level)
	}
	parsed, ok := btclog.LevelFromString(level)
	if !ok {
		return 0, fmt.Errorf("invalid log level: %v", level)
	}
	return parsed, nil
}

func validLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "error", "critical", "off":
		return true
	}
	return false
}
