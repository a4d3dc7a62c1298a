package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestInfoWritesSortedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Info("analysis.chunk", map[string]any{
		"total":   3,
		"current": 1,
		"err":     errors.New("boom"),
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "analysis.chunk", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 1, fields["current"])
	assert.EqualValues(t, 3, fields["total"])
	assert.Equal(t, "boom", fields["err"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestInitInstallsLogger(t *testing.T) {
	require.NoError(t, Init("info", "json"))
	t.Cleanup(func() { SetLogger(nil) })
	assert.NotNil(t, L())
}
