package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestTracing_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracing, err := newTracing(&buf, nil, "qc-vision-test")
	require.NoError(t, err)

	_, span := tracing.Tracer("qc-vision/playback").Start(context.Background(), "playback.run")
	span.SetAttributes(attribute.Int("playback.frames_displayed", 3))
	span.End()

	require.NoError(t, tracing.Shutdown(context.Background()))

	out := buf.String()
	require.Contains(t, out, `"Name":"playback.run"`)
	require.Contains(t, out, "playback.frames_displayed")
	require.Contains(t, out, "qc-vision-test")
}
