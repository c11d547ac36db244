package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Setup configures the package-level phuslu logger used across the application.
// format is "console" (human readable) or "json".
func Setup(level, format string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	logger := log.Logger{
		Level:      log.ParseLevel(level),
		Caller:     1,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	switch format {
	case "console", "":
		logger.Writer = &log.ConsoleWriter{ColorOutput: log.IsTerminal(os.Stderr.Fd()), EndWithMessage: true}
	case "json":
		logger.Writer = &log.IOWriter{Writer: os.Stderr}
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	log.DefaultLogger = logger
	return nil
}
