package telemetry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressfGatedByVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, VerbosityStandard)

	logger.Progressf(VerbosityStandard, "visible line")
	require.Contains(t, buf.String(), "visible line")

	buf.Reset()
	logger.Progressf(VerbosityData, "hidden line")
	require.Empty(t, buf.String())
}

func TestProgressfNilLoggerIsANoop(t *testing.T) {
	var logger *Logger
	require.NotPanics(t, func() {
		logger.Progressf(VerbosityStandard, "should not panic")
	})
}
