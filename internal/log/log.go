// Package log is the diagnostic log. Every capture, transport and API failure ends up here.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias so callers do not import logrus directly
type Fields = logrus.Fields

// Options controls logger construction
type Options struct {
	Level   string // debug, info, warn, error
	File    string // optional rotating log file
	NoColor bool
	Output  io.Writer // defaults to stderr
}

var (
	logger *logrus.Logger
	once   sync.Once
)

// Init builds the global logger. Only the first call has any effect.
func Init(opts Options) *logrus.Logger {
	once.Do(func() {
		logger = newLogger(opts)
	})
	return logger
}

func newLogger(opts Options) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(parseLevel(opts.Level))
	l.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColor,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		FieldsOrder:     []string{"frame", "faces", "error"},
	})

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    20,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	l.SetOutput(io.MultiWriter(writers...))
	return l
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// L returns the global logger, initialising it with defaults if needed
func L() *logrus.Logger {
	return Init(Options{})
}

// With returns an entry carrying the given fields
func With(fields Fields) *logrus.Entry {
	return L().WithFields(fields)
}

func Debug(fields Fields, msg string) {
	With(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	With(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	With(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	With(fields).Error(msg)
}
