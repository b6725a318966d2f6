// Package logger configures the global zerolog logger from command line options.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger holds logging options shared by all commands.
type Logger struct {
	Level   string `long:"log-level"    env:"LOG_LEVEL"    description:"Log level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Format  string `long:"log-format"   env:"LOG_FORMAT"   description:"Log output format" choice:"console" choice:"json" default:"console"`
	NoColor bool   `long:"log-no-color" env:"LOG_NO_COLOR" description:"Disable colors in console output"`
}

// Setup applies the options to the global logger. Output goes to stdout.
func (l *Logger) Setup() {
	l.SetupWriter(os.Stdout)
}

// SetupWriter is Setup with an explicit destination.
func (l *Logger) SetupWriter(out io.Writer) {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil || l.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	w := out
	if l.Format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    l.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
