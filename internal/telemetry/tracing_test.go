package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Not parallel: installs the global provider and propagator.
func TestInitTracerProvider(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp, err := InitTracerProvider(ctx, Config{ServiceName: "sitecorpus-test", SampleRatio: 1},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	spanCtx, span := Tracer().Start(ctx, "unit")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "unit", ended[0].Name())
	require.Equal(t, InstrumentationName, ended[0].InstrumentationScope().Name)
	require.Contains(t, ended[0].Resource().Attributes(), semconv.ServiceName("sitecorpus-test"))

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(spanCtx, carrier)
	require.Contains(t, carrier.Get("traceparent"), span.SpanContext().TraceID().String())
}

func TestInitTracerProviderRatioSampling(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := InitTracerProvider(context.Background(), Config{SampleRatio: 0},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer().Start(context.Background(), "dropped")
	span.End()
	require.False(t, span.SpanContext().IsSampled())
	require.Empty(t, recorder.Ended())
}
