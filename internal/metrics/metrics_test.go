package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rigflow/rigflow/internal/bus"
	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/logger"
)

func TestObserveCountsPipelineOutcomes(t *testing.T) {
	t.Parallel()

	m := New()
	b := bus.New(logger.Nop())
	sub := m.Observe(b)

	ctx := context.Background()
	b.Publish(ctx, events.PipelineCompleted{
		PipelineID:    "run-1",
		Timestamp:     time.Now(),
		Success:       true,
		ExecutionTime: 1.5,
		NodesExecuted: 4,
	})
	b.Publish(ctx, events.PipelineError{
		PipelineID:   "run-2",
		Timestamp:    time.Now(),
		ErrorMessage: "station failed",
	})

	require.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("failed")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.NodesExecuted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(events.TypePipelineCompleted)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(events.TypePipelineError)))

	sub.Unsubscribe()
	b.Publish(ctx, events.PipelineCompleted{PipelineID: "run-3", Timestamp: time.Now()})
	require.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("completed")))
}

func TestObserveTracksDeviceGauge(t *testing.T) {
	t.Parallel()

	m := New()
	b := bus.New(logger.Nop())
	m.Observe(b)

	ctx := context.Background()
	b.Publish(ctx, events.DeviceConnected{DeviceID: "servo_1", PluginID: "mock_servo", Timestamp: time.Now()})
	b.Publish(ctx, events.DeviceConnected{DeviceID: "cell_1", PluginID: "load_cell", Timestamp: time.Now()})
	require.Equal(t, 2.0, testutil.ToFloat64(m.DevicesConnected))

	b.Publish(ctx, events.DeviceDisconnected{DeviceID: "servo_1", Timestamp: time.Now()})
	require.Equal(t, 1.0, testutil.ToFloat64(m.DevicesConnected))

	b.Publish(ctx, events.DeviceError{DeviceID: "cell_1", Timestamp: time.Now(), ErrorMessage: "overload"})
	require.Equal(t, 1.0, testutil.ToFloat64(m.DeviceErrors))
}

func TestHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	m := New()
	b := bus.New(logger.Nop())
	m.Observe(b)
	b.Publish(context.Background(), events.PipelineCompleted{
		PipelineID:    "run-1",
		Timestamp:     time.Now(),
		Success:       true,
		ExecutionTime: 0.25,
		NodesExecuted: 2,
	})
	m.WSClients.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	require.Contains(t, text, `rigflow_pipeline_runs_total{status="completed"} 1`)
	require.Contains(t, text, "rigflow_pipeline_duration_seconds_count 1")
	require.Contains(t, text, "rigflow_ws_clients 1")
	require.Contains(t, text, "go_goroutines")
}
