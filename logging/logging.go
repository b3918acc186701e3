// Package logging builds the logrus entries shared by the service.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns an entry tagged with the service name. format is "json" or
// "text"; level is any logrus level name.
func New(service, level, format string, out io.Writer) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)

	switch format {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}

	return logger.WithField("service", service), nil
}

// NewDefault logs JSON at info level to stderr.
func NewDefault(service string) *logrus.Entry {
	entry, err := New(service, "info", "json", os.Stderr)
	if err != nil {
		panic(err)
	}
	return entry
}
