// Package logging builds the zerolog loggers used across the bot.
//
// Records go to stdout and, when a path is configured, are appended to a log
// file. Both sinks render the same human-readable line:
// time, logger name, level and message followed by key=value fields.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	timeFormat = "2006-01-02 15:04:05.000"

	// NameField carries the logger name on every record.
	NameField = "logger"
)

type Config struct {
	Level string
	File  string

	// Stdout overrides the console sink. Nil means os.Stdout.
	Stdout io.Writer
}

// New returns the root logger and a function that closes the file sink.
// The closer is never nil.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	zerolog.ErrorFieldName = "err"

	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}
	writers := []io.Writer{newConsoleWriter(out, false)}

	closer := func() error { return nil }
	if path := strings.TrimSpace(cfg.File); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file %q: %w", path, err)
		}
		writers = append(writers, zerolog.SyncWriter(newConsoleWriter(f, true)))
		closer = f.Close
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level, zerolog.DebugLevel)).
		With().Timestamp().Logger()
	return zl, closer, nil
}

// Named derives a logger tagged with the given name.
func Named(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(NameField, name).Logger()
}

// Critical starts a record at the most severe level without exiting the
// process; the caller decides how to terminate.
func Critical(l *zerolog.Logger) *zerolog.Event {
	return l.WithLevel(zerolog.FatalLevel)
}

func newConsoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: timeFormat,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			NameField,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{NameField},
	}
	cw.FormatFieldValue = func(i interface{}) string {
		if i == nil {
			return ""
		}
		return fmt.Sprintf("%v", i)
	}
	cw.FormatLevel = func(i interface{}) string {
		s, _ := i.(string)
		if s == zerolog.LevelFatalValue {
			s = "critical"
		}
		return "[" + strings.ToUpper(s) + "]"
	}
	return cw
}

// ParseLevel maps a level name to a zerolog level, falling back to def.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "CRITICAL", "FATAL":
		return zerolog.FatalLevel
	default:
		return def
	}
}

// Stack renders the caller's stack, skipping skip frames above Stack itself.
func Stack(skip, maxFrames int) string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		fr, more := frames.Next()
		if fr.File != "" {
			if b.Len() > 0 {
				b.WriteString(" <- ")
			}
			b.WriteString(filepath.Base(fr.File))
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(fr.Line))
		}
		if !more {
			break
		}
	}
	return b.String()
}
