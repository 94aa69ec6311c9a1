package telemetry

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config/flag string ("debug", "info", "warn",
// "error") onto a zerolog.Level, case-insensitively. An empty string
// parses as info, the module's default verbosity.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("telemetry: unknown log level %q", level)
	}
}
