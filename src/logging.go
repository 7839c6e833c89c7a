package csi

import (
	"io"

	"github.com/charmbracelet/log"
)

const DefaultLogLevel = "info"

// NewLogger is the common logger setup for all the tools.
func NewLogger(w io.Writer, level string, prefix string) (*log.Logger, error) {
	if level == "" {
		level = DefaultLogLevel
	}

	var lvl, err = log.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{ //nolint:exhaustruct
		Level:           lvl,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	}), nil
}

// DiscardLogger is for tests and library users who don't care.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard)
}
