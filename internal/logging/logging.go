// Package logging builds the logrus logger this service's HTTP boundary
// and background workers share, configured from config.LogConfig.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mautops/expense-approval/internal/config"
	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger from cfg, falling back to sane stdout/JSON
// defaults if construction of the configured output fails.
func New(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
			},
		})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetOutput(outputFor(cfg))
	logger.AddHook(&serviceFieldHook{service: "expense-approval"})

	return logger
}

func outputFor(cfg config.LogConfig) io.Writer {
	var writers []io.Writer
	if cfg.Output == "stdout" || cfg.Output == "both" || cfg.Output == "" {
		writers = append(writers, os.Stdout)
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll("logs", 0o755); err == nil {
			file, err := os.OpenFile(filepath.Join("logs", "expense-approval.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				writers = append(writers, file)
			}
		}
	}
	if len(writers) == 0 {
		return os.Stdout
	}
	return io.MultiWriter(writers...)
}

// serviceFieldHook stamps every log entry with the service name, the way
// log-aggregation pipelines expect to filter by service.
type serviceFieldHook struct {
	service string
}

func (h *serviceFieldHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serviceFieldHook) Fire(entry *logrus.Entry) error {
	entry.Data["service"] = h.service
	return nil
}
