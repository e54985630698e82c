package logic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeviceLifecycle(t *testing.T) {
	dev := New("logic_1", nil)
	require.False(t, dev.IsConnected())

	require.NoError(t, dev.Connect(context.Background()))
	require.True(t, dev.IsConnected())
	require.True(t, dev.HealthCheck(context.Background()))
	require.Equal(t, "logic", dev.Info()["type"])

	require.NoError(t, dev.Disconnect(context.Background()))
	require.False(t, dev.IsConnected())
}

func TestBuilderExposesFunctions(t *testing.T) {
	b := Builder()
	require.NotNil(t, b.Device)
	for _, name := range []string{"DelayFunction", "BranchFunction", "PrintFunction", "SetVariableFunction"} {
		require.Contains(t, b.Functions, name)
	}
}

func TestDelayFunction(t *testing.T) {
	fn := NewDelayFunction(nil)

	start := time.Now()
	outputs, err := fn.Execute(context.Background(), map[string]any{"duration_ms": 15.0})
	require.NoError(t, err)
	require.Equal(t, true, outputs["complete"])
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fn.Execute(ctx, map[string]any{"duration_ms": 60000.0})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBranchFunction(t *testing.T) {
	fn := NewBranchFunction(nil)

	outputs, err := fn.Execute(context.Background(), map[string]any{"condition": "yes"})
	require.NoError(t, err)
	require.Equal(t, true, outputs["true"])
	require.Equal(t, false, outputs["false"])

	outputs, err = fn.Execute(context.Background(), map[string]any{"condition": "no"})
	require.NoError(t, err)
	require.Equal(t, false, outputs["true"])
	require.Equal(t, true, outputs["false"])

	outputs, err = fn.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.Equal(t, false, outputs["true"])
}

func TestSetVariableFunction(t *testing.T) {
	fn := NewSetVariableFunction(nil)

	outputs, err := fn.Execute(context.Background(), map[string]any{"value": 3.5})
	require.NoError(t, err)
	require.Equal(t, true, outputs["complete"])
	require.Equal(t, 3.5, outputs["value"])
}
