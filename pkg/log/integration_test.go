package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoggerInterface tests the Logger interface implementation
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", "operation", "test")
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", fmt.Errorf("test error"), "error_code", "TEST_ERROR")

	require.NotEmpty(t, buffer.String())

	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), "missing %q", msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0)) // JSON numbers decode as float64
	assert.True(t, testLogger.ContainsField(ErrorKey, "test error"))
}

// TestLoggerWith tests the With method for context-aware logging
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(
		ModelNameKey, "RandomForestClassifier",
		ComponentKey, "ensemble",
	)
	contextLogger.Info("contextual message", OperationKey, OperationFit)

	assert.True(t, testLogger.ContainsField(ModelNameKey, "RandomForestClassifier"))
	assert.True(t, testLogger.ContainsField(ComponentKey, "ensemble"))
	assert.True(t, testLogger.ContainsField(OperationKey, OperationFit))
}

// TestLoggerEnabled tests the Enabled method
func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	assert.False(t, testLogger.ContainsMessage("this should not appear"))
	assert.True(t, testLogger.ContainsMessage("this should appear"))
}

func TestMLAttributeKeys(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	testLogger.Info("Training completed",
		OperationKey, OperationFit,
		PhaseKey, PhaseTraining,
		SamplesKey, 150,
		FeaturesKey, 4,
		TreesKey, 100,
		ModelNameKey, "RandomForestClassifier",
	)

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	expected := map[string]interface{}{
		OperationKey: OperationFit,
		PhaseKey:     PhaseTraining,
		SamplesKey:   150.0,
		FeaturesKey:  4.0,
		TreesKey:     100.0,
		ModelNameKey: "RandomForestClassifier",
	}
	for key, want := range expected {
		assert.Equal(t, want, entries[0][key], key)
	}
}

func TestLoggerProviderIntegration(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)

	provider.GetLogger().Info("provider test message")
	provider.GetLoggerWithName("tree.classifier").Info("named logger message")

	out := buffer.String()
	assert.Contains(t, out, "provider test message")
	assert.Contains(t, out, "named logger message")
	assert.True(t, provider.Logger().ContainsField(ComponentKey, "tree.classifier"))

	provider.SetLevel(LevelError)
	provider.GetLogger().Info("suppressed")
	assert.NotContains(t, buffer.String(), "suppressed")
}

func TestSetProviderRoutesPackageLoggers(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelDebug)
	prev := SetProvider(provider)
	defer SetProvider(prev)

	GetLoggerWithName("ensemble.forest").Debug("routed")

	assert.True(t, provider.Logger().ContainsMessage("routed"))
	assert.True(t, provider.Logger().ContainsField(ComponentKey, "ensemble.forest"))
}

func TestWarningsAreRoutedToProvider(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelDebug)
	prev := SetProvider(provider)
	defer SetProvider(prev)

	scierrors.Warn(scierrors.NewOOBWarning(2, 10, 3))

	assert.True(t, provider.Logger().ContainsMessage("2 of 10 samples have no out-of-bag prediction"))
	assert.True(t, provider.Logger().ContainsField(ErrorTypeKey, "*errors.OOBWarning"))
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo).With(ModelNameKey, "DecisionTreeClassifier")

	logger.Debug("hidden")
	logger.Info("Training completed", DepthKey, 3, LeavesKey, 5)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Training completed", entry["message"])
	assert.Equal(t, "DecisionTreeClassifier", entry[ModelNameKey])
	assert.Equal(t, 3.0, entry[DepthKey])

	assert.True(t, logger.Enabled(context.Background(), LevelWarn))
	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
}

func TestZerologLogger_ErrorWithStack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	err := scierrors.NewNotFittedError("RandomForestClassifier", "Predict")
	logger.Error("Prediction failed", err, OperationKey, OperationPredict)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, err.Error(), entry[ErrorKey])
	assert.NotEmpty(t, entry[StacktraceKey])
	assert.Equal(t, OperationPredict, entry[OperationKey])
}

func TestZerologLogger_ObjectMarshaler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	logger.Warn("oob", "warning", scierrors.NewOOBWarning(1, 4, 2))

	assert.Contains(t, buf.String(), `"warning":{"unscored":1,"samples":4,"estimators":2,"type":"OOBWarning"}`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, scierrors.IsInvalidConfiguration(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConcurrentLogging(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			testLogger.With(WorkersKey, worker).Info("tree fitted")
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}
