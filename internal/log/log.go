// Package log supports leveled logging with a context-first API.
package log

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/logging"
)

// Severity is the severity of a log entry.
type Severity = logging.Severity

const (
	SeverityDefault  = logging.Default
	SeverityDebug    = logging.Debug
	SeverityInfo     = logging.Info
	SeverityWarning  = logging.Warning
	SeverityError    = logging.Error
	SeverityCritical = logging.Critical
)

var (
	mu     sync.Mutex
	logger interface {
		log(context.Context, logging.Severity, any)
	} = stdlibLogger{}

	// currentLevel holds the current log level.
	// No logs will be printed below currentLevel.
	currentLevel = SeverityDefault
)

// requestIDKey is the type of the context key for request IDs.
type requestIDKey struct{}

// NewContextWithRequestID creates a new context from ctx that adds the
// request ID. The ID is printed with every entry logged with that context.
func NewContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// stdlibLogger uses the Go standard library logger.
type stdlibLogger struct{}

func (stdlibLogger) log(ctx context.Context, s logging.Severity, payload any) {
	id, _ := ctx.Value(requestIDKey{}).(string) // if not present, id is ""
	if id != "" {
		log.Printf("%s (request %s): %+v", s, id, payload)
	} else {
		log.Printf("%s: %+v", s, payload)
	}
}

// SetLevel sets the minimum severity that is logged. It accepts debug, info,
// warning, error and fatal; any other value logs everything.
func SetLevel(v string) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = toLevel(v)
}

func getLevel() Severity {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel
}

func toLevel(v string) Severity {
	switch strings.ToLower(v) {
	case "debug":
		return SeverityDebug
	case "info":
		return SeverityInfo
	case "warning":
		return SeverityWarning
	case "error":
		return SeverityError
	case "fatal":
		return SeverityCritical
	default:
		return SeverityDefault
	}
}

// Debugf logs a formatted string at the Debug level.
func Debugf(ctx context.Context, format string, args ...any) {
	logf(ctx, SeverityDebug, format, args)
}

// Infof logs a formatted string at the Info level.
func Infof(ctx context.Context, format string, args ...any) {
	logf(ctx, SeverityInfo, format, args)
}

// Warningf logs a formatted string at the Warning level.
func Warningf(ctx context.Context, format string, args ...any) {
	logf(ctx, SeverityWarning, format, args)
}

// Errorf logs a formatted string at the Error level.
func Errorf(ctx context.Context, format string, args ...any) {
	logf(ctx, SeverityError, format, args)
}

// Fatalf is equivalent to Errorf followed by exiting the program.
func Fatalf(ctx context.Context, format string, args ...any) {
	logf(ctx, SeverityCritical, format, args)
	die()
}

func logf(ctx context.Context, s Severity, format string, args []any) {
	doLog(ctx, s, fmt.Sprintf(format, args...))
}

// Debug logs arg, which can be a string or a struct, at the Debug level.
func Debug(ctx context.Context, arg any) { doLog(ctx, SeverityDebug, arg) }

// Info logs arg, which can be a string or a struct, at the Info level.
func Info(ctx context.Context, arg any) { doLog(ctx, SeverityInfo, arg) }

// Warning logs arg, which can be a string or a struct, at the Warning level.
func Warning(ctx context.Context, arg any) { doLog(ctx, SeverityWarning, arg) }

// Error logs arg, which can be a string or a struct, at the Error level.
func Error(ctx context.Context, arg any) { doLog(ctx, SeverityError, arg) }

// Fatal is equivalent to Error followed by exiting the program.
func Fatal(ctx context.Context, arg any) {
	doLog(ctx, SeverityCritical, arg)
	die()
}

func doLog(ctx context.Context, s Severity, payload any) {
	if getLevel() > s {
		return
	}
	mu.Lock()
	l := logger
	mu.Unlock()
	l.log(ctx, s, payload)
}

func die() {
	os.Exit(1)
}
