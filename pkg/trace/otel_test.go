package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/daviddao/priosim/pkg/model"
)

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestOTel_RecordsOneSpanPerRun(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	feed(NewOTel(context.Background(), tp), testReport())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "simulation", span.Name())

	attrs := attrMap(span.Attributes())
	assert.True(t, attrs["sched.preemptive"].AsBool())
	assert.False(t, attrs["sched.aging.enabled"].AsBool())
	assert.Equal(t, int64(4), attrs["sched.ticks"].AsInt64())
	assert.Equal(t, int64(1), attrs["sched.idle_ticks"].AsInt64())
	assert.Equal(t, int64(2), attrs["sched.processes"].AsInt64())
	assert.InDelta(t, 3.5, attrs["sched.avg_turnaround"].AsFloat64(), 1e-9)

	events := span.Events()
	require.Len(t, events, 4)
	first := attrMap(events[0].Attributes)
	assert.True(t, first["idle"].AsBool())
	_, hasPID := first["pid"]
	assert.False(t, hasPID, "idle ticks carry no pid")
	last := attrMap(events[3].Attributes)
	assert.Equal(t, int64(3), last["tick"].AsInt64())
	assert.Equal(t, int64(2), last["pid"].AsInt64())
}

func TestOTel_TickBeforeStartIsIgnored(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	o := NewOTel(context.Background(), tp)
	o.Tick(model.TickRecord{Time: 0, PID: 1})
	o.Finish(testReport())
	assert.Empty(t, sr.Ended())
}

func TestNewStdoutProvider_FlushesOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewStdoutProvider(&buf, "priosim", "test")
	require.NoError(t, err)

	feed(NewOTel(context.Background(), tp), testReport())
	require.NoError(t, tp.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name": "simulation"`)
	assert.Contains(t, out, "sched.avg_waiting")
	assert.Contains(t, out, "priosim")
}
