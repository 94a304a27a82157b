// Package logging provides structured logging for Meridian.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) color() string {
	switch l {
	case DEBUG:
		return "\033[36m"
	case INFO:
		return "\033[32m"
	case WARN:
		return "\033[33m"
	case ERROR:
		return "\033[31m"
	default:
		return "\033[0m"
	}
}

// ParseLevel maps a config string to a level, defaulting to INFO
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger is a leveled logger carrying a fixed set of fields
type Logger struct {
	level  Level
	output io.Writer
	mu     *sync.Mutex
	fields map[string]any
}

var defaultLogger = &Logger{
	level:  INFO,
	output: os.Stdout,
	mu:     &sync.Mutex{},
	fields: map[string]any{},
}

// SetLevel sets the global log level
func SetLevel(level Level) {
	defaultLogger.level = level
}

// SetOutput sets the output writer
func SetOutput(w io.Writer) {
	defaultLogger.output = w
}

// WithField returns a logger with one field added to the default logger
func WithField(key string, value any) *Logger {
	return defaultLogger.WithField(key, value)
}

// WithField returns a copy of the logger with a field added
func (l *Logger) WithField(key string, value any) *Logger {
	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{level: l.level, output: l.output, mu: l.mu, fields: fields}
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if level < l.level {
		return
	}

	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}

	// Fields print in key order so output is stable
	var b strings.Builder
	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.output, "%s %s[%s]\033[0m %s%s\n",
		time.Now().Format("15:04:05"), level.color(), level, formatted, b.String())
}

// Debug logs a debug message on the default logger
func Debug(msg string, args ...any) { defaultLogger.log(DEBUG, msg, args...) }

// Info logs an info message on the default logger
func Info(msg string, args ...any) { defaultLogger.log(INFO, msg, args...) }

// Warn logs a warning on the default logger
func Warn(msg string, args ...any) { defaultLogger.log(WARN, msg, args...) }

// Error logs an error on the default logger
func Error(msg string, args ...any) { defaultLogger.log(ERROR, msg, args...) }

// Logger methods
func (l *Logger) Debug(msg string, args ...any) { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(ERROR, msg, args...) }
