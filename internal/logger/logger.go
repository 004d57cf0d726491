// Package logger configures the shared logrus instance used across the
// pipeline and the web server.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/minhvu/faceclock/internal/config"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Fields is an alias so callers don't import logrus directly.
type Fields = logrus.Fields

// Setup initializes the shared logger from config. Safe to call more than
// once; only the first call takes effect.
func Setup(cfg config.LogConfig) *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()

		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			TimestampFormat: time.RFC3339,
			HideKeys:        false,
			NoColors:        cfg.Dir != "",
		})

		writers := []io.Writer{os.Stderr}
		if cfg.Dir != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   filepath.Join(cfg.Dir, "faceclock.log"),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    50, // MB
				MaxAge:     14, // days
				MaxBackups: 5,
			})
		}
		logger.SetOutput(io.MultiWriter(writers...))
	})

	return logger
}

// L returns the shared logger, initializing it with defaults if Setup has
// not run yet.
func L() *logrus.Logger {
	if logger == nil {
		return Setup(config.LogConfig{Level: "info"})
	}
	return logger
}
