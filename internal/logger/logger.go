package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"
)

var (
	mu         sync.Mutex
	stdout     io.Writer = os.Stdout
	fileWriter io.Writer
	debug      bool
	exit       = os.Exit
)

func SetFile(w io.Writer) {
	mu.Lock()
	fileWriter = w
	mu.Unlock()
}

// SetOutput replaces stdout as the console sink; nil restores it.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	mu.Lock()
	stdout = w
	mu.Unlock()
}

func SetDebug(enabled bool) {
	mu.Lock()
	debug = enabled
	mu.Unlock()
}

func write(color, prefix, msg string) {
	ts := time.Now().Format("15:04:05")
	colored := fmt.Sprintf("%s%s%s %s%s%s %s", Gray, ts, Reset, color, prefix, Reset, msg)
	plain := fmt.Sprintf("%s %s %s", ts, prefix, msg)

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(stdout, colored)
	if fileWriter != nil {
		fmt.Fprintln(fileWriter, plain)
	}
}

func Debug(format string, args ...interface{}) {
	mu.Lock()
	on := debug
	mu.Unlock()
	if on {
		write(Blue, "DEBUG", fmt.Sprintf(format, args...))
	}
}

func Info(format string, args ...interface{}) {
	write(Cyan, "INFO", fmt.Sprintf(format, args...))
}

func Success(format string, args ...interface{}) {
	write(Green, "OK", fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	write(Yellow, "WARN", fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	write(Red, "ERROR", fmt.Sprintf(format, args...))
}

// Component prints a line tagged with the subsystem that produced it.
func Component(name, msg string) {
	write(Magenta, "["+name+"]", msg)
}

func Fatal(format string, args ...interface{}) {
	write(Red, "FATAL", fmt.Sprintf(format, args...))
	exit(1)
}

// StdLogger adapts the standard library logger. Lines starting with a
// "[name]" tag are printed as component output.
type StdLogger struct{}

func (l *StdLogger) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if strings.HasPrefix(msg, "[") {
		if end := strings.Index(msg, "]"); end > 1 {
			Component(msg[1:end], strings.TrimSpace(msg[end+1:]))
			return len(p), nil
		}
	}
	Info("%s", msg)
	return len(p), nil
}

func NewStdLogger() *StdLogger {
	return &StdLogger{}
}
