// Package tracing настраивает провайдер трейсов OpenTelemetry.
// Спаны нужны для корреляции логов по trace_id и span_id.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider оборачивает SDK провайдер трейсов
type Provider struct {
	provider *sdktrace.TracerProvider
}

// Init создает провайдер и регистрирует его глобально
func Init(serviceName string, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}, opts...)
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{provider: tp}, nil
}

// Tracer возвращает именованный трейсер
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.provider.Tracer(name)
}

// Shutdown сбрасывает и закрывает провайдер
func (p *Provider) Shutdown() error {
	if p == nil || p.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.provider.Shutdown(ctx)
}
