// Package telemetry provides conditional, leveled logging for the
// exploration engine.
//
// Log verbosity is controlled explicitly by the CLI (-debug/-quiet flags);
// unlike pkg/debug's single env-var gate, a Logger carries its own level so
// batch workers can run at different verbosities concurrently. A DATA level
// below Debug appends one JSON object per call to a separate sink, mirroring
// netdice's own my_logging.py OnlyDataFilter/log.data split between a
// human-readable debug log and a machine-readable data log.
package telemetry

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
)

// Level is a logging verbosity threshold, ordered least to most verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelData
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// Logger is a leveled logger with a push/pop context stack for nested named
// scopes, and an optional JSONL data sink.
type Logger struct {
	mu     sync.Mutex
	level  Level
	out    *log.Logger
	data   io.Writer
	ctx    []string
}

// New constructs a Logger writing human-readable records to out at or below
// level, with DATA records (regardless of level) written to dataSink if
// non-nil.
func New(level Level, out io.Writer, dataSink io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{
		level: level,
		out:   log.New(out, "", log.LstdFlags),
		data:  dataSink,
	}
}

// Discard is a Logger that drops every record; used as the zero-config
// default and in tests.
func Discard() *Logger {
	return New(LevelError+1, io.Discard, nil)
}

func (l *Logger) logf(lvl Level, format string, args ...any) {
	if lvl > l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf("[%5s] %s", lvl, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) { l.logf(LevelError, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// WithContext pushes key onto the context stack recorded alongside every
// subsequent Data call, returning a function that pops it back off. Callers
// defer the returned function to scope the context to one block.
func (l *Logger) WithContext(key string) func() {
	l.mu.Lock()
	l.ctx = append(l.ctx, key)
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		if n := len(l.ctx); n > 0 {
			l.ctx = l.ctx[:n-1]
		}
		l.mu.Unlock()
	}
}

// Data appends {"ctx": [...context...], key: value} as one JSON line to the
// data sink. A no-op if no data sink was configured. Data records are
// side-effect only logging and must never influence exploration results.
func (l *Logger) Data(key string, value any) {
	if l.data == nil {
		return
	}
	l.mu.Lock()
	ctxCopy := append([]string(nil), l.ctx...)
	l.mu.Unlock()

	rec := map[string]any{"ctx": ctxCopy, key: value}
	enc, err := gojson.Marshal(rec)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data.Write(enc)
	l.data.Write([]byte("\n"))
}

// TimeMeasure runs fn and records its elapsed duration (in seconds) as a
// Data record under key, mirroring my_logging.py's time_measure context
// manager.
func (l *Logger) TimeMeasure(key string, fn func()) {
	start := time.Now()
	fn()
	l.Data(key, time.Since(start).Seconds())
}
