package apm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fd1az/pool-sniper/internal/logger"
)

func TestNewTraceProvider_EmptyByDefault(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)

	tp, err := NewTraceProvider(log)
	require.NoError(t, err)
	assert.NoError(t, tp.Stop())
}

func TestNewTraceProvider_Unknown(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)

	tp, err := NewTraceProvider(log, WithProvider("carrier-pigeon", ""))
	require.Error(t, err)
	assert.NoError(t, tp.Stop())
}

func TestSpan_NoticeError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(prev)

	tracer := NewTracer("test")
	_, span := tracer.StartSpanFromContext(context.Background(), "op")
	span.NoticeError(nil)
	span.NoticeError(errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "op", ended[0].Name())
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Len(t, ended[0].Events(), 1)
}
