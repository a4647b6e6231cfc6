// Package debug provides conditional debug logging for fold.
//
// Debug logging is enabled by setting the FOLD_DEBUG environment variable:
//
//	FOLD_DEBUG=1 fold --robot-toggle 0,2
//
// Messages go to stderr with a timestamp. When disabled (the default) every
// function here returns immediately.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

const prefix = "[FOLD_DEBUG] "

var (
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("FOLD_DEBUG") != "" {
		SetEnabled(true)
	}
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	return enabled
}

// SetEnabled turns debug logging on or off at runtime.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. Tests use it to capture log lines.
func SetOutput(w io.Writer) {
	logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogIf writes a debug message only if cond holds.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes how long the named step took.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogEnterExit logs entry immediately and exit with elapsed time when the
// returned func runs:
//
//	defer debug.LogEnterExit("reload")()
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type.
func Dump(name string, v any) {
	if !enabled {
		return
	}
	logger.Printf("%s: %T = %+v", name, v, v)
}

// Assert panics when cond is false. Only active when debug is enabled.
func Assert(cond bool, msg string) {
	if !enabled || cond {
		return
	}
	logger.Printf("ASSERTION FAILED: %s", msg)
	panic(fmt.Sprintf("debug assertion failed: %s", msg))
}

// AssertNoError panics when err is non-nil. Only active when debug is enabled.
func AssertNoError(err error, context string) {
	if !enabled || err == nil {
		return
	}
	logger.Printf("ASSERTION FAILED: %s: %v", context, err)
	panic(fmt.Sprintf("debug assertion failed: %s: %v", context, err))
}
