// Package context contains functions to embed data in a context which is
// picked up by LoggerFromContext so that log lines can be correlated.
package context

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type contextKey int

const (
	uuidKey contextKey = iota
	componentKey
	providerNameKey
)

// FromUUID generates a new context with the given context as its parent and
// stores the given UUID with the context. The UUID can be retrieved again
// using UUIDFromContext.
func FromUUID(ctx context.Context, uuid string) context.Context {
	return context.WithValue(ctx, uuidKey, uuid)
}

// FromComponent generates a new context with the given context as its
// parent and stores the given component name with the context.
func FromComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FromProviderName generates a new context with the given context as its
// parent and stores the given provider alias with the context.
func FromProviderName(ctx context.Context, providerName string) context.Context {
	return context.WithValue(ctx, providerNameKey, providerName)
}

// UUIDFromContext returns the UUID stored in the context with FromUUID. If
// no UUID was stored in the context, the second return value is false.
func UUIDFromContext(ctx context.Context) (string, bool) {
	uuid, ok := ctx.Value(uuidKey).(string)
	return uuid, ok
}

// ComponentFromContext returns the component name stored in the context
// with FromComponent.
func ComponentFromContext(ctx context.Context) (string, bool) {
	component, ok := ctx.Value(componentKey).(string)
	return component, ok
}

// ProviderNameFromContext returns the provider alias stored in the context
// with FromProviderName.
func ProviderNameFromContext(ctx context.Context) (string, bool) {
	providerName, ok := ctx.Value(providerNameKey).(string)
	return providerName, ok
}

// LoggerFromContext returns a logrus.Entry with fields pulled from the
// given context.
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.WithField("pid", os.Getpid())

	if uuid, ok := UUIDFromContext(ctx); ok {
		entry = entry.WithField("uuid", uuid)
	}

	if component, ok := ComponentFromContext(ctx); ok {
		entry = entry.WithField("component", component)
	}

	if providerName, ok := ProviderNameFromContext(ctx); ok {
		entry = entry.WithField("provider", providerName)
	}

	return entry
}
