package workspace

import (
	"context"
	"time"

	"github.com/crmarques/rossync/debugctx"
	"github.com/crmarques/rossync/internal/telemetry"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type operation struct {
	name      string
	startedAt time.Time
	logger    logr.Logger
	span      trace.Span
}

// startOperation tags ctx with a run id, opens a span and returns the
// operation handle. finish must be called exactly once.
func startOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *operation) {
	runID := uuid.NewString()
	attrs = append(attrs, attribute.String("rossync.run_id", runID))
	ctx, span := telemetry.StartSpan(ctx, "rossync."+name, attrs...)

	logger := debugctx.Logger(ctx).WithValues("operation", name, "run_id", runID)
	ctx = debugctx.WithLogger(ctx, logger)
	logger.V(1).Info("operation started")

	return ctx, &operation{
		name:      name,
		startedAt: time.Now(),
		logger:    logger,
		span:      span,
	}
}

func (o *operation) finish(err error, keysAndValues ...any) {
	if err != nil {
		o.logger.Error(err, "operation failed", keysAndValues...)
	} else {
		o.logger.Info("operation finished", keysAndValues...)
	}
	telemetry.ObserveOperation(o.name, time.Since(o.startedAt))
	telemetry.EndSpan(o.span, err)
}

func (o *operation) count(objectType string, outcome string) {
	telemetry.CountObject(o.name, objectType, outcome)
}
