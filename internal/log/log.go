// Package log provides structured logging for traitkit.
// Logging is disabled unless TRAITD_DEBUG is set; output goes to stderr or a
// file named by TRAITD_LOG_FILE.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Category groups related log messages.
type Category string

const (
	CatRegistry Category = "registry" // Declaration registration and coherence
	CatResolve  Category = "resolve"  // Dictionary resolution
	CatDerive   Category = "derive"   // Structural synthesis
	CatPipeline Category = "pipeline" // Unit merging
	CatCLI      Category = "cli"      // Command-line driver
)

var (
	mu      sync.Mutex
	out     io.Writer
	enabled bool
)

func init() {
	if os.Getenv("TRAITD_DEBUG") == "" {
		return
	}
	enabled = true
	out = os.Stderr
	if path := os.Getenv("TRAITD_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			out = f
		}
	}
}

// Enabled reports whether logging is active.
func Enabled() bool { return enabled }

func logf(level Level, cat Category, format string, args ...any) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(out, "%s %-5s [%s] %s\n", ts, level, cat, fmt.Sprintf(format, args...))
}

func Debug(cat Category, format string, args ...any) { logf(LevelDebug, cat, format, args...) }
func Info(cat Category, format string, args ...any)  { logf(LevelInfo, cat, format, args...) }
func Warn(cat Category, format string, args ...any)  { logf(LevelWarn, cat, format, args...) }
func Error(cat Category, format string, args ...any) { logf(LevelError, cat, format, args...) }
