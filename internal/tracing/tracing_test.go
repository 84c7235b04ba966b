package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/JonMunkholm/dataviz/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(config.TracingConfig{Enabled: false, Exporter: "stdout"}, Options{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(config.TracingConfig{Enabled: true, Exporter: "jaeger"}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jaeger")
}

func TestSetup_StdoutExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := Setup(config.TracingConfig{
		Enabled:     true,
		Exporter:    "stdout",
		SampleRatio: 1,
		ServiceName: "dataviz-test",
	}, Options{Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "dataviz.load")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "dataviz.load")
	assert.Contains(t, buf.String(), "dataviz-test")
}
