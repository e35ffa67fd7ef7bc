// Package logging - zerolog construction shared by the binaries and packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config controls the logger output.
type Config struct {
	// Level is one of trace, debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`
	// Pretty enables the human readable console writer instead of JSON lines.
	Pretty bool `json:"pretty" yaml:"pretty"`
}

// New builds a zerolog.Logger writing to stderr.
//
// Arguments:
//   - cfg: The logger configuration.
//
// Returns:
//   - zerolog.Logger: The configured logger.
//   - error: An error if the level cannot be parsed.
func New(cfg Config) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter builds a zerolog.Logger writing to w.
func NewWithWriter(w io.Writer, cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if strings.TrimSpace(cfg.Level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
		level = parsed
	}

	out := w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
