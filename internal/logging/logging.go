// Package logging builds the zerolog logger shared by the dgus tools.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// EnvLogLevel overrides Options.Level when set to a valid level name.
	EnvLogLevel = "DGUS_LOG_LEVEL"
	// EnvLogNoColor overrides Options.NoColor when set to a boolean.
	EnvLogNoColor = "DGUS_LOG_NOCOLOR"
)

// Options selects where and how much to log.
type Options struct {
	App     string
	Level   string
	Out     io.Writer
	NoColor bool
}

// New returns a console logger tagged with the app name and installs it as
// the global zerolog logger. Environment variables override opts.
func New(opts Options) zerolog.Logger {
	applyEnvOverrides(&opts)

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	level, ok := ParseLevel(opts.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", opts.App).Logger()
	log.Logger = logger
	return logger
}

func applyEnvOverrides(opts *Options) {
	if raw := os.Getenv(EnvLogLevel); strings.TrimSpace(raw) != "" {
		if _, ok := ParseLevel(raw); ok {
			opts.Level = raw
		}
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		opts.NoColor = v
	}
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
