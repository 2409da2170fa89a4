// Package logx is the internal leveled logger. The default level is Warn;
// the process env SHMARR_LOG_LEVEL overrides it (0=Trace .. 5=off).
package logx

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	levelNoPrint
)

var (
	magenta = "\033[95m"
	green   = "\033[92m"
	blue    = "\033[94m"
	yellow  = "\033[93m"
	red     = "\033[91m"
	reset   = "\033[0m"

	colors     = []string{magenta, green, blue, yellow, red}
	levelNames = []string{"Trace", "Debug", "Info", "Warn", "Error"}

	level = LevelWarn

	// Default is the package-wide logger used by the lifecycle cleanup
	// path and the examples.
	Default = New("", os.Stdout)
)

func init() {
	if v := os.Getenv("SHMARR_LOG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n <= levelNoPrint {
			level = n
		}
	}
}

// SetLevel changes the global log level.
func SetLevel(l int) {
	if l <= levelNoPrint {
		level = l
	}
}

// Logger writes colored, caller-annotated lines to a single writer.
type Logger struct {
	name      string
	out       io.Writer
	callDepth int
}

// New builds a Logger writing to out (nil means stdout).
func New(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{name: name, out: out, callDepth: 3}
}

func (l *Logger) Errorf(format string, a ...interface{}) { l.printf(LevelError, format, a...) }
func (l *Logger) Warnf(format string, a ...interface{})  { l.printf(LevelWarn, format, a...) }
func (l *Logger) Infof(format string, a ...interface{})  { l.printf(LevelInfo, format, a...) }
func (l *Logger) Debugf(format string, a ...interface{}) { l.printf(LevelDebug, format, a...) }
func (l *Logger) Tracef(format string, a ...interface{}) { l.printf(LevelTrace, format, a...) }

func (l *Logger) printf(lv int, format string, a ...interface{}) {
	if level > lv {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(lv)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logx: write failed: %v\n", err)
	}
}

func (l *Logger) prefix(lv int) string {
	var buffer [64]byte
	buf := bytes.NewBuffer(buffer[:0])
	buf.WriteString(colors[lv])
	buf.WriteString(levelNames[lv])
	buf.WriteByte(' ')
	buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	buf.WriteByte(' ')
	buf.WriteString(l.location())
	if l.name != "" {
		buf.WriteByte(' ')
		buf.WriteString(l.name)
	}
	buf.WriteByte(' ')
	return buf.String()
}

func (l *Logger) location() string {
	_, file, line, ok := runtime.Caller(l.callDepth)
	if !ok {
		return "???:0"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
