package config

import (
	"gopkg.in/urfave/cli.v1"
)

// Flags is the set of global flags understood by the CLI.
var Flags = []cli.Flag{
	cli.StringFlag{
		Name:   "provider-name, p",
		Value:  "opsource",
		Usage:  "The alias of the provider backend to use",
		EnvVar: "TRAVIS_COMPUTE_PROVIDER_NAME,PROVIDER_NAME",
	},
	cli.BoolFlag{
		Name:   "debug",
		Usage:  "Set log level to debug",
		EnvVar: "TRAVIS_COMPUTE_DEBUG,DEBUG",
	},
	cli.StringFlag{
		Name:   "sentry-dsn",
		Usage:  "The DSN to send Sentry events to",
		EnvVar: "TRAVIS_COMPUTE_SENTRY_DSN,SENTRY_DSN",
	},
	cli.BoolFlag{
		Name:   "sentry-hook-errors",
		Usage:  "Add logrus.ErrorLevel to logrus sentry hook",
		EnvVar: "TRAVIS_COMPUTE_SENTRY_HOOK_ERRORS,SENTRY_HOOK_ERRORS",
	},
	cli.StringFlag{
		Name:   "librato-email",
		Usage:  "Librato metrics account email",
		EnvVar: "TRAVIS_COMPUTE_LIBRATO_EMAIL,LIBRATO_EMAIL",
	},
	cli.StringFlag{
		Name:   "librato-token",
		Usage:  "Librato metrics account token",
		EnvVar: "TRAVIS_COMPUTE_LIBRATO_TOKEN,LIBRATO_TOKEN",
	},
	cli.StringFlag{
		Name:   "librato-source",
		Value:  hostname(),
		Usage:  "Librato metrics source name",
		EnvVar: "TRAVIS_COMPUTE_LIBRATO_SOURCE,LIBRATO_SOURCE",
	},
	cli.BoolFlag{
		Name:   "silence-metrics",
		Usage:  "Don't log metrics to stderr when no Librato account is configured",
		EnvVar: "TRAVIS_COMPUTE_SILENCE_METRICS,SILENCE_METRICS",
	},
}
