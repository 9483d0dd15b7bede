// Package logging wires go.uber.org/zap behind the logr.Logger interface,
// the same pattern the teacher codebase uses via sigs.k8s.io/controller-runtime's
// ctrllog wrapper (go-logr/zapr under the hood) — minus the Kubernetes
// dependency, since this service has no CRDs or controller-runtime manager.
package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

type ctxKey struct{}

// New builds a logr.Logger backed by a production zap.Logger when dev is
// false, or a development zap.Logger (console-encoded, debug level) when
// dev is true.
func New(dev bool) (logr.Logger, error) {
	var zl *zap.Logger
	var err error
	if dev {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(zl), nil
}

// IntoContext returns a new context with the logger attached.
func IntoContext(ctx context.Context, log logr.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in ctx, or a no-op logger if none
// was attached.
func FromContext(ctx context.Context) logr.Logger {
	if log, ok := ctx.Value(ctxKey{}).(logr.Logger); ok {
		return log
	}
	return logr.Discard()
}
