// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"fxseries/internal/config"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout and, when cfg.File is set, appending to that file too.
// The returned close function releases the file and is always safe to call.
func New(cfg config.Logging) (*logrus.Logger, func() error, error) {
	logger := logrus.New()
	closeFn := func() error { return nil }

	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.DateTime})
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		f, openErr := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if openErr != nil {
			return nil, closeFn, fmt.Errorf("failed to open log file %s: %w", cfg.File, openErr)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}
	logger.SetOutput(out)

	return logger, closeFn, nil
}

// Component tags entries of one component so they can be filtered.
func Component(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	return logger.WithField("component", name)
}
