package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/proof/internal/adapters/telemetry"
	"go.trai.ch/proof/internal/core/ports"
)

func recordedProvider() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestOTelTracer_StartAppliesAttributes(t *testing.T) {
	sr, tp := recordedProvider()
	tracer := telemetry.NewOTelTracer(tp, "proof")

	_, span := tracer.Start(context.Background(), "calc#test",
		ports.WithAttribute(ports.AttrNode, "calc#test"),
		ports.WithAttribute("jobs", 4),
	)
	span.SetAttribute("cached", false)
	span.SetAttribute("inputs", []string{"calc.c"})
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "calc#test", attrs[ports.AttrNode].AsString())
	assert.Equal(t, int64(4), attrs["jobs"].AsInt64())
	assert.False(t, attrs["cached"].AsBool())
	assert.Equal(t, []string{"calc.c"}, attrs["inputs"].AsStringSlice())
}

func TestOTelTracer_RecordError(t *testing.T) {
	sr, tp := recordedProvider()
	tracer := telemetry.NewOTelTracer(tp, "proof")

	_, span := tracer.Start(context.Background(), "libmath")
	span.RecordError(errors.New("undefined reference to `sqrt'"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "undefined reference to `sqrt'", spans[0].Status().Description)
}

func TestOTelTracer_WriteWithoutBridgeAddsEvents(t *testing.T) {
	sr, tp := recordedProvider()
	tracer := telemetry.NewOTelTracer(tp, "proof")

	_, span := tracer.Start(context.Background(), "libmath")
	n, err := span.Write([]byte("compiling math.c\n"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	span.(interface{ MarkExecStart() }).MarkExecStart()
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 2)
	assert.Equal(t, "log", events[0].Name)
	assert.Equal(t, "exec_start", events[1].Name)
}

func TestOTelTracer_EmitPlanRecordsEvent(t *testing.T) {
	sr, tp := recordedProvider()
	tracer := telemetry.NewOTelTracer(tp, "proof")

	// Without an active span only the renderer would be told.
	tracer.EmitPlan(context.Background(), []string{"libmath"}, nil, []string{"libmath"})

	ctx, root := tp.Tracer("test").Start(context.Background(), "run")
	tracer.EmitPlan(ctx, []string{"libmath", "calc", "calc#test"}, nil, []string{"calc#test"})
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "plan_emitted", events[0].Name)
	assert.Equal(t, []string{"libmath", "calc", "calc#test"}, attrMap(events[0].Attributes)["tasks"].AsStringSlice())
}

func TestOTelTracer_OutputPrecedesCompletion(t *testing.T) {
	renderer := newRecordingRenderer()
	bridge := telemetry.NewBridge(renderer)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(bridge))
	tracer := telemetry.NewOTelTracer(tp, "proof").WithBridge(bridge)

	ctx := context.Background()
	tracer.EmitPlan(ctx, []string{"calc#test"}, map[string][]string{}, []string{"calc#test"})

	_, span := tracer.Start(ctx, "calc#test", ports.WithAttribute(ports.AttrNode, "calc#test"))
	_, err := span.Write([]byte("ok 1 - add\nok 2 - sub"))
	require.NoError(t, err)
	span.RecordError(errors.New("test calc#test failed (exit code 1)"))
	span.End()

	require.NoError(t, tp.Shutdown(ctx))

	assert.Equal(t, []string{
		"plan [calc#test] -> [calc#test]",
		"start calc#test",
		"log calc#test",
		"complete calc#test test calc#test failed (exit code 1)",
	}, renderer.snapshot())
	assert.Equal(t, "ok 1 - add\nok 2 - sub", renderer.outputOf("calc#test"))
}
