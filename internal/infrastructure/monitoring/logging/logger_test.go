package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: LevelInfo, Format: format, OutputPaths: []string{"stderr"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_EmptyOutputPathsRejected(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNewLogger_NilOutputPathsDefaulted(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("Error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapLogger_FieldsAreTyped(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Info("search finished",
		String("query", "toluol"),
		Strings("classes", []string{"exact", "deviating"}),
		Int("exact", 1),
		Int64("evaluated", 3),
		Float64("top_score", 1.0),
		Bool("assumed", false),
		Duration("took", 5*time.Millisecond),
		Err(errors.New("boom")),
		Any("extra", map[string]int{"a": 1}),
	)

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "toluol", ctx["query"])
	assert.Equal(t, int64(1), ctx["exact"])
	assert.Equal(t, int64(3), ctx["evaluated"])
	assert.Equal(t, 1.0, ctx["top_score"])
	assert.Equal(t, false, ctx["assumed"])
	assert.Equal(t, 5*time.Millisecond, ctx["took"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	l, logs := newObservedLogger(zapcore.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")
	assert.Equal(t, 2, logs.Len())
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)
	child := l.Named("matcher").With(String("component", "scoring"))
	child.Debug("scored")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "matcher", entry.LoggerName)
	assert.Equal(t, "scoring", entry.ContextMap()["component"])
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	assert.NotNil(t, l.With(String("k", "v")))
	assert.NotNil(t, l.Named("x"))
	assert.NoError(t, l.Sync())
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	SetDefault(nil)
	assert.Equal(t, orig, Default())

	l := NewNopLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())
}

func TestNewDevelopmentLogger_NotNil(t *testing.T) {
	assert.NotNil(t, NewDevelopmentLogger())
}
