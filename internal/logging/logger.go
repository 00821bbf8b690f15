package logging

import (
	"context"
	"fmt"
	"io"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

const ServiceID = "homealarm"

type ctxKey string

const ctxRequestID ctxKey = "REQ_ID"

var TextFormatter = &formatter.Formatter{
	TimestampFormat: "2006-01-02 15:04:05",
	HideKeys:        true,
	FieldsOrder:     []string{"req-id", "service", "subsystem"},
	CallerFirst:     true,
	CustomCallerFormatter: func(f *runtime.Frame) string {
		return fmt.Sprintf(" [%s %s():%d]", path.Base(f.File), f.Function, f.Line)
	},
}

// Config selects level and output format for every subsystem logger.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// Setup builds the root logger for the process.
func Setup(cfg Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	}

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(TextFormatter)
	}

	if cfg.Level == "none" {
		logger.SetOutput(io.Discard)
		return logger
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("invalid log level '%s'. Defaulting to info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Subsystem returns an entry tagged with the service and subsystem names.
func Subsystem(logger *logrus.Logger, subsystem string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"service":   ServiceID,
		"subsystem": subsystem,
	})
}

// Discard returns an entry that writes nowhere. Handy in tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// ForContext decorates logger with request scoped fields found in ctx.
func ForContext(ctx context.Context, logger *logrus.Entry) *logrus.Entry {
	if id := RequestID(ctx); id != "" {
		return logger.WithField("req-id", id)
	}
	return logger
}
