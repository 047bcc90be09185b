package logger

import (
	"log"
	"os"

	"github.com/rollbar/rollbar-go"
)

// Logger writes to a standard logger and, when a rollbar token is
// configured, reports warnings and errors to rollbar as well.
type Logger struct {
	std     *log.Logger
	rollbar bool
}

type Options struct {
	RollbarToken string
	Environment  string
	CodeVersion  string
}

func New(std *log.Logger, opts Options) *Logger {
	if std == nil {
		std = log.New(os.Stdout, "", log.LstdFlags)
	}
	l := &Logger{std: std}
	if opts.RollbarToken != "" {
		rollbar.SetToken(opts.RollbarToken)
		rollbar.SetEnvironment(opts.Environment)
		rollbar.SetCodeVersion(opts.CodeVersion)
		if host, err := os.Hostname(); err == nil {
			rollbar.SetServerHost(host)
		}
		l.rollbar = true
	}
	return l
}

// Discard returns a logger that writes nowhere; used by tests.
func Discard() *Logger {
	return &Logger{std: log.New(nopWriter{}, "", 0)}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// expected args: error, map[string]interface{}
func (l *Logger) print(level string, msg string, args []interface{}) {
	l.std.Println("[" + level + "] " + msg)
	for _, arg := range args {
		l.std.Printf("  %+v\n", arg)
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.print("DEBUG", msg, args)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.print("INFO", msg, args)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Warning(append([]interface{}{msg}, args...)...)
	}
	l.print("WARN", msg, args)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Error(append([]interface{}{msg}, args...)...)
	}
	l.print("ERROR", msg, args)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.rollbar {
		rollbar.Critical(append([]interface{}{msg}, args...)...)
		rollbar.Wait()
	}
	l.print("FATAL", msg, args)
	os.Exit(1)
}

// Close flushes pending rollbar items.
func (l *Logger) Close() {
	if l.rollbar {
		rollbar.Close()
	}
}
