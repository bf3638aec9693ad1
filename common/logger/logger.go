package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger provides a unified leveled logging interface for the engine.
// Output defaults to stderr and can be redirected in tests.

// LogLevel represents log severity levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu sync.RWMutex

	// currentLevel is the current logging level (default: Info)
	currentLevel = LevelInfo

	output io.Writer = os.Stderr
)

// Debugf logs a debug message
func Debugf(format string, args ...interface{}) {
	logf(LevelDebug, format, args...)
}

// Infof logs an info message
func Infof(format string, args ...interface{}) {
	logf(LevelInfo, format, args...)
}

// Warnf logs a warning message
func Warnf(format string, args ...interface{}) {
	logf(LevelWarn, format, args...)
}

// Errorf logs an error message
func Errorf(format string, args ...interface{}) {
	logf(LevelError, format, args...)
}

func logf(level LogLevel, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if level < currentLevel {
		return
	}
	fmt.Fprintf(output, levelPrefix(level)+format+"\n", args...)
}

// levelPrefix returns the prefix for each log level
func levelPrefix(level LogLevel) string {
	switch level {
	case LevelDebug:
		return "[DEBUG] "
	case LevelInfo:
		return "[INFO] "
	case LevelWarn:
		return "[WARN] "
	case LevelError:
		return "[ERROR] "
	default:
		return "[LOG] "
	}
}

// SetLevel sets the minimum log level
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

// SetOutput redirects log output. Defaults to os.Stderr; useful for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}
