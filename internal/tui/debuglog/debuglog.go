// ABOUTME: Debug logger for the TUI that writes structured lines to a log file
// ABOUTME: Keeps the terminal free for rendering while capturing requests and errors

package debuglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// FileName is the log file created inside the config directory
const FileName = "debug.log"

var (
	logFile *os.File
	logger  = zerolog.Nop()
	mu      sync.Mutex
)

// Init opens <configDir>/debug.log and logs at level.
// If configDir is empty, logging is disabled.
func Init(configDir, level string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	if configDir == "" {
		return nil
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	logPath := filepath.Join(configDir, FileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	logFile = f
	logger = newLogger(f, level)
	return nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a string log level to a zerolog level.
// Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the current logger. It discards everything until Init succeeds.
func Logger() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Close closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logger = zerolog.Nop()
}

// Log writes an info message to the debug log
func Log(format string, args ...interface{}) {
	l := Logger()
	l.Info().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error with context
func Error(context string, err error) {
	if err == nil {
		return
	}
	l := Logger()
	l.Error().Str("context", context).Err(err).Msg("error")
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	l := Logger()
	l.Warn().Msg(fmt.Sprintf(format, args...))
}
