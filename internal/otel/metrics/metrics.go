// Package metrics предоставляет функционал для сбора и экспорта метрик приложения.
// Метрики отслеживают входящие запросы, результаты генерации изображений,
// время ответа провайдера и его готовность.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Config задает имя сервиса. Каждый провайдер пишет в свой реестр Prometheus.
type Config struct {
	ServiceName string
}

// MetricProvider представляет собой обертку над провайдером метрик OpenTelemetry
// вместе с инструментами сервиса.
type MetricProvider struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter
	registry *promclient.Registry

	// HTTPRequests подсчитывает входящие запросы по маршруту и коду ответа
	HTTPRequests *Counter
	// Generations подсчитывает генерации по провайдеру и исходу
	Generations *Counter
	// ProviderResponseTime измеряет время ответа провайдера изображений
	ProviderResponseTime *Histogram
	// ProviderReady равен 1, если провайдер инициализирован
	ProviderReady *Gauge
}

// Counter представляет собой счетчик метрик.
// Значение счетчика может только увеличиваться.
type Counter struct {
	counter metric.Int64Counter
}

// Histogram представляет собой гистограмму метрик
type Histogram struct {
	histogram metric.Float64Histogram
}

// Gauge хранит значение, которое считывается при сборе метрик
type Gauge struct {
	gauge metric.Float64ObservableGauge
	value float64
	mu    sync.Mutex
}

// InitMetrics инициализирует систему метрик и настраивает экспорт в Prometheus.
func InitMetrics(cfg Config) (*MetricProvider, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.TelemetrySDKLanguageGo,
			semconv.TelemetrySDKName("opentelemetry"),
			semconv.TelemetrySDKVersion(otel.Version()),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	mp := &MetricProvider{
		provider: provider,
		meter:    provider.Meter(cfg.ServiceName),
		registry: registry,
	}

	if mp.HTTPRequests, err = mp.NewCounter(
		"imagegen_http_requests_total",
		"Total number of HTTP requests by route and status code",
	); err != nil {
		return nil, err
	}

	if mp.Generations, err = mp.NewCounter(
		"imagegen_generations_total",
		"Total number of image generations by provider and outcome",
	); err != nil {
		return nil, err
	}

	if mp.ProviderResponseTime, err = mp.NewHistogram(
		"imagegen_provider_duration_seconds",
		"Time taken to get responses from the image provider",
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	); err != nil {
		return nil, err
	}

	if mp.ProviderReady, err = mp.NewGauge(
		"imagegen_provider_ready",
		"1 if the image provider initialized successfully, 0 otherwise",
	); err != nil {
		return nil, err
	}

	return mp, nil
}

// NewCounter создает новый счетчик с указанным именем и описанием.
func (mp *MetricProvider) NewCounter(name, description string) (*Counter, error) {
	counter, err := mp.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{counter: counter}, nil
}

// NewHistogram создает новую гистограмму
func (mp *MetricProvider) NewHistogram(name, description string, opts ...metric.Float64HistogramOption) (*Histogram, error) {
	opts = append([]metric.Float64HistogramOption{metric.WithDescription(description)}, opts...)
	histogram, err := mp.meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil, err
	}
	return &Histogram{histogram: histogram}, nil
}

// NewGauge создает gauge, значение которого отдается через callback
func (mp *MetricProvider) NewGauge(name, description string) (*Gauge, error) {
	g := &Gauge{}
	gauge, err := mp.meter.Float64ObservableGauge(
		name,
		metric.WithDescription(description),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(g.Value())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	g.gauge = gauge
	return g, nil
}

// Inc увеличивает счетчик с заданными атрибутами
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	if c == nil || c.counter == nil {
		return
	}
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Observe записывает значение в гистограмму с лейблами
func (h *Histogram) Observe(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	if h == nil || h.histogram == nil {
		return
	}
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Since записывает время, прошедшее с start, в секундах
func (h *Histogram) Since(ctx context.Context, start time.Time, attrs ...attribute.KeyValue) {
	h.Observe(ctx, time.Since(start).Seconds(), attrs...)
}

func (g *Gauge) Set(value float64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = value
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Handler возвращает HTTP обработчик экспорта метрик Prometheus
func (mp *MetricProvider) Handler() http.Handler {
	return promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{})
}

// Shutdown корректно завершает работу провайдера метрик, освобождая ресурсы.
func (mp *MetricProvider) Shutdown() error {
	if mp == nil || mp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return mp.provider.Shutdown(ctx)
}
