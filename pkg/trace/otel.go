package trace

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/daviddao/priosim/pkg/model"
)

const instrumentationName = "github.com/daviddao/priosim"

// OTel exports a run as one OpenTelemetry span. Each tick becomes a span
// event; the report is attached as span attributes on Finish.
type OTel struct {
	ctx    context.Context
	tracer oteltrace.Tracer
	span   oteltrace.Span
}

// NewOTel returns a sink that starts its span under ctx using tp.
func NewOTel(ctx context.Context, tp oteltrace.TracerProvider) *OTel {
	return &OTel{ctx: ctx, tracer: tp.Tracer(instrumentationName)}
}

func (o *OTel) Start(p model.Policy) {
	_, o.span = o.tracer.Start(o.ctx, "simulation",
		oteltrace.WithAttributes(
			attribute.Bool("sched.preemptive", p.Preemptive),
			attribute.Bool("sched.aging.enabled", p.AgingEnabled),
			attribute.Int("sched.aging.interval", p.AgingInterval),
			attribute.Int("sched.aging.increment", p.AgingIncrement),
		))
}

func (o *OTel) Tick(rec model.TickRecord) {
	if o.span == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int("tick", rec.Time),
		attribute.Bool("idle", rec.Idle),
	}
	if !rec.Idle {
		attrs = append(attrs, attribute.Int("pid", rec.PID))
	}
	if rec.Preempted {
		attrs = append(attrs, attribute.Int("preempted_pid", rec.PreemptedPID))
	}
	o.span.AddEvent("tick", oteltrace.WithAttributes(attrs...))
}

func (o *OTel) Finish(report model.Report) {
	if o.span == nil {
		return
	}
	o.span.SetAttributes(
		attribute.Int("sched.processes", len(report.Results)),
		attribute.Int("sched.ticks", report.TotalTicks),
		attribute.Int("sched.idle_ticks", report.IdleTicks),
		attribute.Int("sched.preemptions", report.Preemptions),
		attribute.Float64("sched.avg_waiting", report.AvgWaiting),
		attribute.Float64("sched.avg_turnaround", report.AvgTurnaround),
	)
	o.span.End()
	o.span = nil
}

// NewStdoutProvider builds a tracer provider that writes finished spans as
// JSON to w. Callers must Shutdown the provider to flush it.
func NewStdoutProvider(w io.Writer, serviceName, serviceVersion string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	), nil
}
