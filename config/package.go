// Package config contains the CLI-level configuration and the per-provider
// configuration store.
package config
