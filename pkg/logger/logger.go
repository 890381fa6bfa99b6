package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Level        string `split_words:"true"`
	Service      string `split_words:"true" default:"support-router"`
}

var DefaultConfig = &Config{
	Service: "support-router",
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

// Init replaces the global logger. Level takes precedence over Debug when it
// names a valid zerolog level.
func Init(opts ...Config) {
	conf := safe(opts...)
	log.Logger = build(conf, os.Stdout)
}

func build(conf *Config, out io.Writer) zerolog.Logger {
	var logger zerolog.Logger
	if conf.PrettyFormat {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	} else {
		logger = zerolog.New(out)
	}

	ctx := logger.With().Timestamp()
	if svc := strings.TrimSpace(conf.Service); svc != "" {
		ctx = ctx.Str("service", svc)
	}
	logger = ctx.Logger().Level(resolveLevel(conf))

	return logger.With().Caller().Stack().Logger()
}

func resolveLevel(conf *Config) zerolog.Level {
	if raw := strings.TrimSpace(conf.Level); raw != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			return lvl
		}
	}
	if conf.Debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
