package loadcell

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	rferrors "github.com/rigflow/rigflow/pkg/errors"
)

func connectedCell(t *testing.T) *Device {
	t.Helper()
	d := New("cell-1", nil)
	require.NoError(t, d.Connect(context.Background()))
	return d
}

func TestGetValueReadsAroundNominal(t *testing.T) {
	t.Parallel()

	d := connectedCell(t)
	out, err := NewGetValueFunction(d).Execute(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, true, out["complete"])
	require.Equal(t, "g", out["unit"])
	value := out["value"].(float64)
	require.InDelta(t, nominalLoad, value, 2.5)
}

func TestTareZeroesSubsequentReadings(t *testing.T) {
	t.Parallel()

	d := connectedCell(t)
	ctx := context.Background()

	// First reading establishes a load near nominal, tare removes it.
	_, err := d.GetValue(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Tare(ctx))

	reading, err := d.GetValue(ctx)
	require.NoError(t, err)
	require.InDelta(t, 0, reading.Value, 5)
}

func TestGetAverageUsesSampleCount(t *testing.T) {
	t.Parallel()

	d := connectedCell(t)
	out, err := NewGetAverageFunction(d).Execute(context.Background(), map[string]any{"samples": 3})
	require.NoError(t, err)

	value := out["value"].(float64)
	require.InDelta(t, nominalLoad, value, 2.5)
	require.Contains(t, out, "stable")
}

func TestEvaluateAgainstSpec(t *testing.T) {
	t.Parallel()

	d := connectedCell(t)
	fn := NewEvaluateFunction(d)

	out, err := fn.Execute(context.Background(), map[string]any{
		"value":    50.0,
		"spec_min": 45.0,
		"spec_max": 55.0,
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"pass":   true,
		"fail":   false,
		"result": "PASS",
		"value":  50.0,
	}, out)

	out, err = fn.Execute(context.Background(), map[string]any{
		"value":    60.0,
		"spec_min": 45.0,
		"spec_max": 55.0,
	})
	require.NoError(t, err)
	require.Equal(t, "FAIL", out["result"])
	require.Equal(t, true, out["fail"])
}

func TestEvaluateRequiresLimits(t *testing.T) {
	t.Parallel()

	d := connectedCell(t)
	_, err := NewEvaluateFunction(d).Execute(context.Background(), map[string]any{
		"value":    50.0,
		"spec_min": 45.0,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "spec_max")
}

func TestReadingsRequireConnection(t *testing.T) {
	t.Parallel()

	d := New("cell-1", nil)
	_, err := NewGetValueFunction(d).Execute(context.Background(), nil)

	var notConnected *rferrors.DeviceNotConnectedError
	require.ErrorAs(t, err, &notConnected)
}

func TestConnectFunctionReportsState(t *testing.T) {
	t.Parallel()

	d := New("cell-1", nil)
	out, err := NewConnectFunction(d).Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, true, out["connected"])
	require.True(t, d.IsConnected())

	out, err = NewDisconnectFunction(d).Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, true, out["complete"])
	require.False(t, d.IsConnected())
}
