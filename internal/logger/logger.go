package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // text, json
	File   string // optional rotating log file, stderr is always written
}

var std = logrus.New()

// Init configures the shared logger and returns it.
func Init(opts Options) *logrus.Logger {
	level, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	std.SetLevel(level)

	if strings.EqualFold(opts.Format, "json") {
		std.SetFormatter(&logrus.JSONFormatter{})
	} else {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	std.SetOutput(out)

	return std
}

// L returns the shared logger.
func L() *logrus.Logger {
	return std
}

// WithCollection returns an entry scoped to a collection path.
func WithCollection(path string) *logrus.Entry {
	return std.WithField("collection", path)
}

// SetOutput redirects the shared logger, used by tests to capture entries.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}
