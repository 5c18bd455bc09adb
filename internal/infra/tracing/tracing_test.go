package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracer(ctx, "http://localhost:4318/v1/traces", "extract")
	require.NoError(t, err)
	defer tp.Shutdown(ctx)

	assert.Same(t, tp, otel.GetTracerProvider())
}

func TestInitTracerNeedsEndpoint(t *testing.T) {
	_, err := InitTracer(context.Background(), "", "extract")
	assert.Error(t, err)
}
