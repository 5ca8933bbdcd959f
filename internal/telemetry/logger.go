package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level  string
	Format string
	// File enables rotated file output instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// SetupLogger installs the default slog logger and returns it.
func SetupLogger(c LogConfig) *slog.Logger {
	var w io.Writer = os.Stderr
	if c.File != "" {
		w = &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    max(c.MaxSizeMB, 1),
			MaxBackups: c.MaxBackups,
			Compress:   true,
		}
	}

	l := slog.New(newHandler(w, c))
	slog.SetDefault(l)
	return l
}

func newHandler(w io.Writer, c LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if strings.EqualFold(c.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
