package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithComponentFromContext_EmitsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "test"})

	ctx := ContextWithCorrelationID(context.Background(), "corr-123")
	ctx = ContextWithRequestID(ctx, "req-456")

	WithComponentFromContext(ctx, "playback").Info().Msg("skip started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "corr-123", entry[FieldCorrelationID])
	require.Equal(t, "req-456", entry[FieldRequestID])
	require.Equal(t, "playback", entry[FieldComponent])
}

func TestWithComponentFromContext_NoIDsWhenContextBare(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "test"})

	WithComponentFromContext(context.Background(), "apicache").Info().Msg("prune")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.NotContains(t, entry, FieldCorrelationID)
	require.Equal(t, "apicache", entry[FieldComponent])
}

func TestCorrelationIDFromContext_RoundTrip(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "abc")
	require.Equal(t, "abc", CorrelationIDFromContext(ctx))
	require.Empty(t, CorrelationIDFromContext(context.Background()))
}
