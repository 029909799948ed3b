package logging

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/carson-networks/transaction-sync"

// WithSpan runs fn inside an OpenTelemetry span named name with a fresh LogData on the
// context, and logs "<name>.Start", "<name>.Complete" or "<name>.Error" with its duration.
func WithSpan(ctx context.Context, logger *logrus.Logger, name string, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	logData := NewLogData(logger)
	if sc := span.SpanContext(); sc.HasTraceID() {
		logData.AddData("traceId", sc.TraceID().String())
	}
	ctx = WithLogData(ctx, logData)

	logger.Debugf("%v.Start", name)
	endTimer := logData.AddTiming("duration")
	err := fn(ctx)
	endTimer()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logData.Log().WithError(err).Errorf("%v.Error", name)
		return err
	}

	span.SetAttributes(attribute.Bool("success", true))
	logData.Log().Infof("%v.Complete", name)
	return nil
}
