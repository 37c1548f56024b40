package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/internal/logger"
)

func TestPrometheusRoundTrip(t *testing.T) {
	registry := prometheus.NewRegistry()

	mp, err := NewMetricProvider(
		WithServiceName("test"),
		WithPrometheus(),
		WithRegisterer(registry),
	)
	require.NoError(t, err)
	defer mp.Shutdown(context.Background())

	counter, err := mp.Meter("test").Int64Counter("sniper_test_events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)
	srv := NewPromServer(log, WithGatherer(registry))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "sniper_test_events"), body)
}
