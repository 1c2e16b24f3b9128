// Package logger hands out named logrus loggers ("app", "audit",
// "performance") that write to stdout, a rotated file, or both.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string
	Format     string // text, json
	Output     string // stdout, file, both
	Path       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		Output:     "stdout",
		Path:       "logs",
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     28,
	}
}

var (
	loggers   = make(map[string]*logrus.Logger)
	loggersMu sync.Mutex
	cfg       = DefaultConfig()
)

// Init sets the configuration for loggers created afterwards and drops any
// already-created ones.
func Init(c Config) error {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if c.Output == "file" || c.Output == "both" {
		if err := os.MkdirAll(c.Path, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	cfg = c
	loggers = make(map[string]*logrus.Logger)
	return nil
}

func Get(name string) *logrus.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}
	l := newLogger(name)
	loggers[name] = l
	return l
}

func App() *logrus.Logger         { return Get("app") }
func Audit() *logrus.Logger       { return Get("audit") }
func Performance() *logrus.Logger { return Get("performance") }

func newLogger(name string) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	if cfg.Output == "file" || cfg.Output == "both" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Path, name+".log"),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		})
	}
	if cfg.Output != "file" {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))
	return l
}

// InvariantViolation logs a broken ledger or state invariant to l, or to the
// app logger when l is nil. These are bugs or races and are kept apart from
// ordinary business errors.
func InvariantViolation(l *logrus.Logger, err error, fields logrus.Fields) {
	if l == nil {
		l = App()
	}
	entry := l.WithField("invariant_violation", true)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.WithError(err).Error("invariant violation")
}
