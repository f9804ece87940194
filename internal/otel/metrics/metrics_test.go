package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func scrape(t *testing.T, mp *MetricProvider) string {
	t.Helper()
	rec := httptest.NewRecorder()
	mp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestInitMetrics_ExportsInstruments(t *testing.T) {
	mp, err := InitMetrics(Config{ServiceName: "test-service"})
	require.NoError(t, err)
	defer mp.Shutdown()

	ctx := context.Background()
	mp.HTTPRequests.Inc(ctx, attribute.String("route", "/generate"), attribute.Int("code", 200))
	mp.Generations.Inc(ctx, attribute.String("provider", "pollinations"), attribute.String("outcome", "success"))
	mp.ProviderResponseTime.Observe(ctx, 0.25, attribute.String("provider", "pollinations"))
	mp.ProviderReady.Set(1)

	body := scrape(t, mp)
	assert.Contains(t, body, "imagegen_http_requests_total")
	assert.Contains(t, body, `route="/generate"`)
	assert.Contains(t, body, "imagegen_generations_total")
	assert.Contains(t, body, `outcome="success"`)
	assert.Contains(t, body, "imagegen_provider_duration_seconds_bucket")
	assert.Contains(t, body, "imagegen_provider_ready 1")
}

func TestInitMetrics_SeparateRegistries(t *testing.T) {
	// Два провайдера не должны конфликтовать при регистрации
	first, err := InitMetrics(Config{ServiceName: "a"})
	require.NoError(t, err)
	defer first.Shutdown()

	second, err := InitMetrics(Config{ServiceName: "b"})
	require.NoError(t, err)
	defer second.Shutdown()

	first.ProviderReady.Set(1)
	assert.Contains(t, scrape(t, first), "imagegen_provider_ready 1")
	assert.Contains(t, scrape(t, second), "imagegen_provider_ready 0")
}

func TestNilInstrumentsAreNoop(t *testing.T) {
	var (
		c  *Counter
		h  *Histogram
		g  *Gauge
		mp *MetricProvider
	)
	assert.NotPanics(t, func() {
		c.Inc(context.Background())
		h.Observe(context.Background(), 1)
		g.Set(1)
		assert.Equal(t, float64(0), g.Value())
		assert.NoError(t, mp.Shutdown())
	})
}
