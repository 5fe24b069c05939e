package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got, s)
	}

	_, ok := ParseLevel("chatty")
	require.False(t, ok)
}

func TestNewWriterFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWriter(&buf, zapcore.WarnLevel)
	l.Infow("generator starting")
	l.Warnw("ALARM: Low fuel level: 5.0%", "type", "low_fuel")
	require.NoError(t, l.Sync())

	out := buf.String()
	require.NotContains(t, out, "generator starting")
	require.Contains(t, out, "WARN")
	require.Contains(t, out, `"type": "low_fuel"`)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWriter(&buf, zapcore.InfoLevel)
	ctx := NewContext(context.Background(), l)
	require.Same(t, l, FromContext(ctx))

	require.NotNil(t, FromContext(context.Background()))
	FromContext(context.Background()).Info("dropped")
	require.Empty(t, buf.String())
}
