// Package logger provides the small logging interface shared by linkpulse
// components so they can report without binding to an implementation.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Prefix is prepended to every line written by the env logger.
const Prefix = "[linkpulse]"

// Logger defines printf-style logging at four levels.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type envLogger struct {
	prefix  string
	verbose bool
}

// New returns a logger writing through the standard log package. Debug
// lines are only printed when verbose is set.
func New(verbose bool) Logger {
	return &envLogger{prefix: Prefix, verbose: verbose}
}

// FromEnv returns a logger that is verbose when LINKPULSE_VERBOSE=true.
func FromEnv() Logger {
	return New(os.Getenv("LINKPULSE_VERBOSE") == "true")
}

func (l *envLogger) Debug(format string, args ...any) {
	if l.verbose {
		log.Printf(l.prefix+" "+format, args...)
	}
}

func (l *envLogger) Info(format string, args ...any) {
	log.Printf(l.prefix+" "+format, args...)
}

func (l *envLogger) Warn(format string, args ...any) {
	log.Printf(l.prefix+" WARN: "+format, args...)
}

func (l *envLogger) Error(format string, args ...any) {
	log.Printf(l.prefix+" ERROR: "+format, args...)
}

type noopLogger struct{}

// Noop returns a logger that discards everything.
func Noop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Message is one captured log line.
type Message struct {
	Level   string
	Message string
}

// BufferLogger captures messages for test assertions. Safe for concurrent use
// since probes log from their own goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	messages []Message
}

func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, Message{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...any) { l.record("error", format, args...) }

// Messages returns a copy of everything captured so far.
func (l *BufferLogger) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel reports whether any message was logged at level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages() {
		if m.Level == level {
			return true
		}
	}
	return false
}
