package logger

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/pgsampler/internal/errors"
	"github.com/rs/zerolog"
)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Log is a Logger backed by zerolog.
type Log struct {
	zl zerolog.Logger
}

// ParseLevel maps a configured level name to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, errors.New().WithData(errors.ErrInvalidLogLevel, name)
	}
}

// New returns a console logger writing to w at the given level.
func New(w io.Writer, level LogLevel, isService bool) *Log {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	return &Log{
		zl: zerolog.New(output).Level(zerolog.Level(level)).With().Timestamp().Logger(),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Log {
	return &Log{zl: zerolog.Nop()}
}

// Init returns the process logger, writing to stderr
func Init(level LogLevel, isService bool) *Log {
	return New(os.Stderr, level, isService)
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

func (l *Log) Debug() *LogEvent {
	return &LogEvent{l.zl.Debug()}
}

func (l *Log) Info() *LogEvent {
	return &LogEvent{l.zl.Info()}
}

func (l *Log) Warn() *LogEvent {
	return &LogEvent{l.zl.Warn()}
}

func (l *Log) Error() *LogEvent {
	return &LogEvent{l.zl.Error()}
}

// ErrorWithCode logs an error message with its error code
func (l *Log) ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{l.zl.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}
