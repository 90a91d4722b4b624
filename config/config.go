package config

import (
	"os"

	"gopkg.in/urfave/cli.v1"
)

// Config is the CLI-level config, as opposed to the per-provider config
// held in a ProviderConfig.
type Config struct {
	ProviderName string
	Debug        bool

	SentryDSN        string
	SentryHookErrors bool

	LibratoEmail   string
	LibratoToken   string
	LibratoSource  string
	SilenceMetrics bool
}

// FromCLIContext creates a Config using a cli.Context by pulling
// configuration from the flags in the context.
func FromCLIContext(c *cli.Context) *Config {
	return &Config{
		ProviderName: c.GlobalString("provider-name"),
		Debug:        c.GlobalBool("debug"),

		SentryDSN:        c.GlobalString("sentry-dsn"),
		SentryHookErrors: c.GlobalBool("sentry-hook-errors"),

		LibratoEmail:   c.GlobalString("librato-email"),
		LibratoToken:   c.GlobalString("librato-token"),
		LibratoSource:  c.GlobalString("librato-source"),
		SilenceMetrics: c.GlobalBool("silence-metrics"),
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return h
}
