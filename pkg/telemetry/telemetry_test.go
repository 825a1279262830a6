package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_Stdout(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Options{ServiceName: "nia-d", ServiceVersion: "test", Stdout: true, Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("nia.test").Start(context.Background(), "analysis_span")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "analysis_span")
	assert.Contains(t, buf.String(), "nia-d")
}

func TestInit_Disabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := Init(context.Background(), Options{ServiceName: "nia-d"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
